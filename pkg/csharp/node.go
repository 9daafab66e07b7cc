package csharp

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/syntax"
)

var kinds = map[string]syntax.Kind{
	"compilation_unit":                    syntax.KindRoot,
	"namespace_declaration":               syntax.KindNamespace,
	"file_scoped_namespace_declaration":   syntax.KindNamespace,
	"class_declaration":                   syntax.KindClass,
	"struct_declaration":                  syntax.KindStruct,
	"interface_declaration":               syntax.KindInterface,
	"enum_declaration":                    syntax.KindEnum,
	"record_declaration":                  syntax.KindRecord,
	"record_struct_declaration":           syntax.KindRecord,
	"delegate_declaration":                syntax.KindDelegate,
	"constructor_declaration":             syntax.KindConstructor,
	"method_declaration":                  syntax.KindMethod,
	"operator_declaration":                syntax.KindMethod,
	"conversion_operator_declaration":     syntax.KindMethod,
	"destructor_declaration":              syntax.KindMethod,
	"property_declaration":                syntax.KindProperty,
	"indexer_declaration":                 syntax.KindProperty,
	"event_declaration":                   syntax.KindProperty,
	"field_declaration":                   syntax.KindField,
	"event_field_declaration":             syntax.KindField,
	"block":                               syntax.KindBlock,
	"invocation_expression":               syntax.KindInvocation,
	"object_creation_expression":          syntax.KindObjectCreation,
	"implicit_object_creation_expression": syntax.KindObjectCreation,
	"identifier":                          syntax.KindIdentifier,
}

func kindOf(nodeType string) syntax.Kind {
	if k, ok := kinds[nodeType]; ok {
		return k
	}
	if strings.HasSuffix(nodeType, "_statement") {
		return syntax.KindStatement
	}
	return syntax.KindOther
}

// node adapts a tree-sitter node to syntax.Node
type node struct {
	n   *sitter.Node
	src []byte
}

// wrap returns a nil interface for a nil node so that Parent() terminates
// ancestor walks.
func wrap(n *sitter.Node, src []byte) syntax.Node {
	if n == nil {
		return nil
	}
	return &node{n: n, src: src}
}

func (n *node) Kind() syntax.Kind {
	return kindOf(n.n.Type())
}

func (n *node) Parent() syntax.Node {
	return wrap(n.n.Parent(), n.src)
}

func (n *node) Children() []syntax.Node {
	count := int(n.n.NamedChildCount())
	children := make([]syntax.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.n.NamedChild(i); c != nil {
			children = append(children, &node{n: c, src: n.src})
		}
	}
	return children
}

func (n *node) Span() model.Span {
	return spanOf(n.n)
}

func (n *node) NameSpan() model.Span {
	switch k := n.Kind(); {
	case k.IsTypeDeclaration(), k == syntax.KindNamespace, k == syntax.KindConstructor,
		k == syntax.KindMethod, k == syntax.KindProperty:
		if name := n.n.ChildByFieldName("name"); name != nil {
			return spanOf(name)
		}
	}
	return model.Span{}
}

func (n *node) Modifiers() []syntax.Token {
	return modifiers(n.n, n.src)
}

func spanOf(n *sitter.Node) model.Span {
	return model.Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func modifiers(n *sitter.Node, src []byte) []syntax.Token {
	var mods []syntax.Token
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || c.Type() != "modifier" {
			continue
		}
		mods = append(mods, syntax.Token{Text: c.Content(src), Span: spanOf(c)})
	}
	return mods
}

func hasModifier(n *sitter.Node, src []byte, text string) bool {
	for _, m := range modifiers(n, src) {
		if m.Text == text {
			return true
		}
	}
	return false
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	children := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		if c := n.NamedChild(i); c != nil {
			children = append(children, c)
		}
	}
	return children
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
