package syntax

import "github.com/ritzau/encap-analyzer/pkg/model"

// Element is an in-memory Node, used for scripted providers and tests.
// Build trees with Elem and Attach; parents are wired by Attach.
type Element struct {
	kind      Kind
	span      model.Span
	nameSpan  model.Span
	modifiers []Token
	parent    *Element
	children  []*Element
}

// Elem creates a detached element
func Elem(kind Kind, span model.Span) *Element {
	return &Element{kind: kind, span: span}
}

// Named sets the name span of a declaration element
func (e *Element) Named(span model.Span) *Element {
	e.nameSpan = span
	return e
}

// With adds modifier tokens
func (e *Element) With(mods ...Token) *Element {
	e.modifiers = append(e.modifiers, mods...)
	return e
}

// Attach appends children and returns the receiver
func (e *Element) Attach(children ...*Element) *Element {
	for _, c := range children {
		c.parent = e
		e.children = append(e.children, c)
	}
	return e
}

func (e *Element) Kind() Kind { return e.kind }

func (e *Element) Parent() Node {
	if e.parent == nil {
		return nil
	}
	return e.parent
}

func (e *Element) Children() []Node {
	nodes := make([]Node, len(e.children))
	for i, c := range e.children {
		nodes[i] = c
	}
	return nodes
}

func (e *Element) Span() model.Span     { return e.span }
func (e *Element) NameSpan() model.Span { return e.nameSpan }
func (e *Element) Modifiers() []Token   { return e.modifiers }
