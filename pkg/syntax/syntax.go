// Package syntax is the language-neutral view of a parsed document that the
// classifier and the rewrite engine operate on.
package syntax

import (
	"context"
	"iter"

	"github.com/ritzau/encap-analyzer/pkg/model"
)

// Kind classifies syntax nodes into the categories the analysis cares about
type Kind int

const (
	KindOther Kind = iota
	KindRoot
	KindNamespace

	// Type declarations
	KindClass
	KindStruct
	KindInterface
	KindEnum
	KindRecord
	KindDelegate

	// Member declarations
	KindConstructor
	KindMethod
	KindProperty
	KindField

	// Executable code
	KindStatement
	KindBlock
	KindInvocation
	KindObjectCreation

	KindIdentifier
)

var kindNames = map[Kind]string{
	KindOther:          "other",
	KindRoot:           "root",
	KindNamespace:      "namespace",
	KindClass:          "class",
	KindStruct:         "struct",
	KindInterface:      "interface",
	KindEnum:           "enum",
	KindRecord:         "record",
	KindDelegate:       "delegate",
	KindConstructor:    "constructor",
	KindMethod:         "method",
	KindProperty:       "property",
	KindField:          "field",
	KindStatement:      "statement",
	KindBlock:          "block",
	KindInvocation:     "invocation",
	KindObjectCreation: "object_creation",
	KindIdentifier:     "identifier",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// IsTypeDeclaration reports whether k declares a type (delegates included)
func (k Kind) IsTypeDeclaration() bool {
	return k >= KindClass && k <= KindDelegate
}

// Token is a leaf token such as a modifier keyword
type Token struct {
	Text string
	Span model.Span
}

// Node is a node of a parsed document.
type Node interface {
	Kind() Kind
	Parent() Node
	Children() []Node
	Span() model.Span

	// NameSpan is the span of the declared name for declarations and the
	// zero span otherwise.
	NameSpan() model.Span

	// Modifiers returns the modifier tokens of a declaration in source order.
	Modifiers() []Token
}

// Parser produces syntax trees for documents
type Parser interface {
	Parse(ctx context.Context, doc *model.Document) (Node, error)
}

// Ancestors yields n and then each of its ancestors up to the root
func Ancestors(n Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for cur := n; cur != nil; cur = cur.Parent() {
			if !yield(cur) {
				return
			}
		}
	}
}

// Walk yields every node of the tree rooted at n in pre-order
func Walk(n Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		stack := []Node{n}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(cur) {
				return
			}
			children := cur.Children()
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		}
	}
}

// Modifier returns the modifier token with the given text
func Modifier(n Node, text string) (Token, bool) {
	for _, m := range n.Modifiers() {
		if m.Text == text {
			return m, true
		}
	}
	return Token{}, false
}

// IsPublic reports whether the declaration carries an explicit public modifier
func IsPublic(n Node) bool {
	_, ok := Modifier(n, "public")
	return ok
}

// Equivalent reports whether two nodes denote the same declaration. Nodes
// from different parses of the same text are equivalent.
func Equivalent(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Kind() == b.Kind() && a.Span() == b.Span() && a.NameSpan() == b.NameSpan()
}

// Innermost returns the deepest node whose span contains span, or nil
func Innermost(root Node, span model.Span) Node {
	if root == nil || !root.Span().Contains(span) {
		return nil
	}
	cur := root
	for {
		next := Node(nil)
		for _, c := range cur.Children() {
			if c.Span().Contains(span) {
				next = c
				break
			}
		}
		if next == nil {
			return cur
		}
		cur = next
	}
}

// EnclosingDeclaration returns the nearest type declaration containing span
func EnclosingDeclaration(root Node, span model.Span) Node {
	for n := range Ancestors(Innermost(root, span)) {
		if n.Kind().IsTypeDeclaration() {
			return n
		}
	}
	return nil
}
