package csharp

import (
	"cmp"
	"context"
	"iter"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ritzau/encap-analyzer/pkg/model"
)

// referenceForm is how a name occurrence may denote a type
type referenceForm int

const (
	formName      referenceForm = iota // the type name as declared
	formAttribute                      // attribute usage without the Attribute suffix
	formAlias                          // a using alias of the type
)

// FindReferences binds name occurrences in the scope documents, one
// document at a time in ID order. Occurrences that bind to more than one
// type are reported as candidates.
func (c *compilation) FindReferences(ctx context.Context, sym *model.Symbol, scope model.DocumentSet) iter.Seq2[model.ReferenceEvent, error] {
	return func(yield func(model.ReferenceEvent, error) bool) {
		for _, id := range scope.Sorted() {
			if err := ctx.Err(); err != nil {
				yield(model.ReferenceEvent{}, err)
				return
			}
			fi, ok := c.index.files[id]
			if !ok {
				continue
			}
			for _, ev := range c.index.referencesIn(fi, sym) {
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}

func (idx *index) referencesIn(fi *fileInfo, sym *model.Symbol) []model.ReferenceEvent {
	if !idx.visible[fi.doc.Unit][sym.Unit] {
		return nil
	}
	if sym.Kind == model.SymbolExtension {
		return idx.extensionReferences(fi, sym)
	}

	var events []model.ReferenceEvent
	collect := func(name string, form referenceForm) {
		for _, id := range fi.identifiers[name] {
			if ev, ok := idx.typeReference(fi, id, sym, form); ok {
				events = append(events, ev)
			}
		}
	}

	collect(sym.Name, formName)
	if short, ok := strings.CutSuffix(sym.Name, "Attribute"); ok && short != "" {
		collect(short, formAttribute)
	}
	for u := range idx.usingsOf(fi) {
		if u.alias != "" && u.alias != sym.Name && idx.resolveType(fi, "", u.target) == sym {
			collect(u.alias, formAlias)
		}
	}

	slices.SortFunc(events, func(a, b model.ReferenceEvent) int {
		return cmp.Compare(a.Location.Span.Start, b.Location.Span.Start)
	})
	return events
}

func (idx *index) typeReference(fi *fileInfo, id *sitter.Node, sym *model.Symbol, form referenceForm) (model.ReferenceEvent, bool) {
	if isDeclarationName(id) || isNamespaceName(fi, id) {
		return model.ReferenceEvent{}, false
	}

	ref, parent := id, id.Parent()
	if parent != nil && parent.Type() == "generic_name" {
		ref, parent = parent, parent.Parent()
	}
	if form == formAttribute && !isAttributeName(ref) {
		return model.ReferenceEvent{}, false
	}

	ev := model.ReferenceEvent{
		Symbol:    sym.ID,
		Container: containerOf(fi, id),
		Location:  model.Location{Document: fi.doc.ID, Span: spanOf(id)},
		Unit:      fi.doc.Unit,
	}

	ns := idx.namespaceAt(fi, id)
	namespaces, qualified := idx.qualifierScope(fi, ns, parent, ref)
	switch {
	case form == formAlias:
		// An alias is never the right side of a qualification
		return ev, !qualified
	case qualified:
		return ev, slices.Contains(namespaces, sym.Namespace)
	}

	visible := idx.visibleNamespaces(fi, ns)
	matches := idx.lookup(fi.doc.Unit, fi.text(id), visible)
	if form == formAttribute {
		matches = append(matches, idx.lookup(fi.doc.Unit, sym.Name, visible)...)
	}
	if !slices.Contains(matches, sym) {
		return model.ReferenceEvent{}, false
	}
	ev.Candidate = len(matches) > 1
	return ev, true
}

// qualifierScope returns the namespaces denoted by the qualifier when ref
// is the right side of a qualified name or member access.
func (idx *index) qualifierScope(fi *fileInfo, ns string, parent, ref *sitter.Node) ([]string, bool) {
	if parent == nil {
		return nil, false
	}

	switch parent.Type() {
	case "qualified_name":
		qualifier, name := qualifiedParts(parent)
		if sameNode(name, ref) && qualifier != nil {
			return idx.qualifierNamespaces(fi, ns, normalizeName(fi.text(qualifier))), true
		}
	case "member_access_expression":
		if sameNode(parent.ChildByFieldName("name"), ref) {
			expr := parent.ChildByFieldName("expression")
			return idx.qualifierNamespaces(fi, ns, normalizeName(fi.text(expr))), true
		}
	case "member_binding_expression":
		// x?.Name is always a member
		return nil, true
	case "alias_qualified_name":
		if sameNode(parent.ChildByFieldName("name"), ref) {
			alias := fi.text(parent.ChildByFieldName("alias"))
			if alias == "global" {
				return []string{""}, true
			}
			target, _ := idx.alias(fi, alias)
			return []string{target}, true
		}
	}
	return nil, false
}

func qualifiedParts(n *sitter.Node) (qualifier, name *sitter.Node) {
	qualifier, name = n.ChildByFieldName("qualifier"), n.ChildByFieldName("name")
	if qualifier == nil || name == nil {
		children := namedChildren(n)
		if len(children) >= 2 {
			qualifier, name = children[0], children[len(children)-1]
		}
	}
	return qualifier, name
}

// nonDeclaring are node types whose name field is a use, not a declaration
var nonDeclaring = map[string]bool{
	"qualified_name":            true,
	"member_access_expression":  true,
	"member_binding_expression": true,
	"generic_name":              true,
	"alias_qualified_name":      true,
	"attribute":                 true,
}

// isDeclarationName reports whether id is the name a declaration
// introduces, such as a type, member, parameter or local.
func isDeclarationName(id *sitter.Node) bool {
	p := id.Parent()
	if p == nil || nonDeclaring[p.Type()] {
		return false
	}
	switch p.Type() {
	case "name_equals", "name_colon", "labeled_statement":
		return true
	case "variable_declarator":
		if first := p.NamedChild(0); sameNode(first, id) {
			return true
		}
	}
	return sameNode(p.ChildByFieldName("name"), id)
}

// isNamespaceName reports whether id is part of a namespace name, either in
// a namespace declaration or in a plain using directive.
func isNamespaceName(fi *fileInfo, id *sitter.Node) bool {
	top := id
	for p := top.Parent(); p != nil && (p.Type() == "qualified_name" || p.Type() == "alias_qualified_name"); p = p.Parent() {
		top = p
	}
	p := top.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "namespace_declaration", "file_scoped_namespace_declaration":
		return sameNode(p.ChildByFieldName("name"), top)
	case "using_directive":
		u := parseUsing(fi.text(p))
		return !u.static && u.alias == ""
	}
	return false
}

func isAttributeName(ref *sitter.Node) bool {
	p := ref.Parent()
	if p != nil && p.Type() == "qualified_name" {
		if _, name := qualifiedParts(p); sameNode(name, ref) {
			ref, p = p, p.Parent()
		}
	}
	return p != nil && p.Type() == "attribute" && sameNode(p.ChildByFieldName("name"), ref)
}

// containerOf returns the name of the innermost type declaration around n
func containerOf(fi *fileInfo, n *sitter.Node) string {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if _, ok := symbolKinds[cur.Type()]; ok {
			return fi.text(cur.ChildByFieldName("name"))
		}
	}
	return ""
}

// extensionReferences finds invocations of sym in member-call form,
// x.Name(...) or x?.Name(...), where the declaring class is in scope.
func (idx *index) extensionReferences(fi *fileInfo, sym *model.Symbol) []model.ReferenceEvent {
	var events []model.ReferenceEvent
	for _, id := range fi.identifiers[sym.Name] {
		ref, parent := id, id.Parent()
		if parent != nil && parent.Type() == "generic_name" {
			ref, parent = parent, parent.Parent()
		}
		if parent == nil {
			continue
		}
		if t := parent.Type(); t != "member_access_expression" && t != "member_binding_expression" {
			continue
		}
		if !sameNode(parent.ChildByFieldName("name"), ref) {
			continue
		}
		call := parent.Parent()
		if call == nil || call.Type() != "invocation_expression" || !sameNode(call.ChildByFieldName("function"), parent) {
			continue
		}

		inScope := idx.extensionsInScope(fi, idx.namespaceAt(fi, id), sym.Name)
		if !slices.Contains(inScope, sym) {
			continue
		}
		events = append(events, model.ReferenceEvent{
			Symbol:    sym.ID,
			Container: containerOf(fi, id),
			Location:  model.Location{Document: fi.doc.ID, Span: spanOf(id)},
			Unit:      fi.doc.Unit,
			Candidate: len(inScope) > 1,
		})
	}
	return events
}

// extensionsInScope returns the extension functions named name that can be
// called at a position inside namespace ns of fi
func (idx *index) extensionsInScope(fi *fileInfo, ns, name string) []*model.Symbol {
	visible := idx.visibleNamespaces(fi, ns)
	var inScope []*model.Symbol
	for _, ext := range idx.extensions[name] {
		if !idx.visible[fi.doc.Unit][ext.Unit] {
			continue
		}
		class := strings.TrimSuffix(ext.QualifiedName, "."+ext.Name)
		if slices.Contains(visible, ext.Namespace) || idx.staticallyImported(fi, class) {
			inScope = append(inScope, ext)
		}
	}
	return inScope
}

func (idx *index) staticallyImported(fi *fileInfo, class string) bool {
	for u := range idx.usingsOf(fi) {
		if u.static && (u.target == class || strings.HasSuffix(class, "."+u.target)) {
			return true
		}
	}
	return false
}
