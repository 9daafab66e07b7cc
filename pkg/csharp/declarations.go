package csharp

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ritzau/encap-analyzer/pkg/model"
)

var symbolKinds = map[string]model.SymbolKind{
	"class_declaration":         model.SymbolClass,
	"struct_declaration":        model.SymbolStruct,
	"interface_declaration":     model.SymbolInterface,
	"enum_declaration":          model.SymbolEnum,
	"record_declaration":        model.SymbolRecord,
	"record_struct_declaration": model.SymbolRecord,
	"delegate_declaration":      model.SymbolDelegate,
}

// declaration is one part of a namespace-level type declaration
type declaration struct {
	name       string
	namespace  string
	kind       model.SymbolKind
	access     model.Accessibility
	static     bool
	nameSpan   model.Span
	base       string // first entry of the base list, normalized
	extensions []extensionDecl
}

func (d declaration) qualifiedName() string {
	return joinName(d.namespace, d.name)
}

// extensionDecl is a public method whose first parameter carries `this`
type extensionDecl struct {
	name     string
	receiver string
	nameSpan model.Span
}

type usingDirective struct {
	global bool
	static bool
	alias  string
	target string
}

// fileInfo is everything the provider needs from one parsed document.
// It is built in the goroutine that parsed the tree and read-only after.
type fileInfo struct {
	doc     *model.Document
	version string
	tree    *sitter.Tree
	src     []byte

	fileNamespace string
	decls         []declaration
	usings        []usingDirective
	friends       []string

	// identifiers indexes identifier nodes by their text
	identifiers map[string][]*sitter.Node
}

func (fi *fileInfo) root() *sitter.Node {
	return fi.tree.RootNode()
}

func extract(doc *model.Document, tree *sitter.Tree) *fileInfo {
	fi := &fileInfo{
		doc:         doc,
		version:     doc.Version(),
		tree:        tree,
		src:         doc.Text,
		identifiers: make(map[string][]*sitter.Node),
	}
	root := tree.RootNode()
	fi.visitMembers(root, "")
	fi.indexIdentifiers(root)
	return fi
}

func (fi *fileInfo) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(fi.src)
}

func (fi *fileInfo) visitMembers(parent *sitter.Node, ns string) {
	for _, c := range namedChildren(parent) {
		switch t := c.Type(); {
		case t == "namespace_declaration":
			full := joinName(ns, normalizeName(fi.text(c.ChildByFieldName("name"))))
			if body := c.ChildByFieldName("body"); body != nil {
				fi.visitMembers(body, full)
			} else {
				fi.visitMembers(c, full)
			}
		case t == "file_scoped_namespace_declaration":
			// Depending on the grammar version the members are either
			// children of this node or its following siblings.
			ns = joinName(ns, normalizeName(fi.text(c.ChildByFieldName("name"))))
			fi.fileNamespace = ns
			fi.visitMembers(c, ns)
		case t == "declaration_list":
			fi.visitMembers(c, ns)
		case t == "using_directive":
			fi.usings = append(fi.usings, parseUsing(fi.text(c)))
		case symbolKinds[t] != "":
			fi.declare(c, ns)
		case strings.Contains(t, "attribute"):
			fi.globalAttributes(c)
		}
	}
}

func (fi *fileInfo) declare(n *sitter.Node, ns string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}

	d := declaration{
		name:      fi.text(nameNode),
		namespace: ns,
		kind:      symbolKinds[n.Type()],
		access:    model.AccessInternal,
		static:    hasModifier(n, fi.src, "static"),
		nameSpan:  spanOf(nameNode),
	}
	if hasModifier(n, fi.src, "public") {
		d.access = model.AccessPublic
	}

	if d.kind == model.SymbolClass || d.kind == model.SymbolRecord {
		for _, c := range namedChildren(n) {
			if c.Type() != "base_list" {
				continue
			}
			if bases := namedChildren(c); len(bases) > 0 {
				d.base = normalizeType(fi.text(bases[0]))
			}
		}
	}

	if d.kind == model.SymbolClass && d.static {
		if body := n.ChildByFieldName("body"); body != nil {
			for _, m := range namedChildren(body) {
				if ext, ok := fi.extension(m); ok {
					d.extensions = append(d.extensions, ext)
				}
			}
		}
	}

	fi.decls = append(fi.decls, d)
}

func (fi *fileInfo) extension(m *sitter.Node) (extensionDecl, bool) {
	if m.Type() != "method_declaration" || !hasModifier(m, fi.src, "public") || !hasModifier(m, fi.src, "static") {
		return extensionDecl{}, false
	}
	params := m.ChildByFieldName("parameters")
	name := m.ChildByFieldName("name")
	if params == nil || name == nil {
		return extensionDecl{}, false
	}

	var first *sitter.Node
	for _, p := range namedChildren(params) {
		if p.Type() == "parameter" {
			first = p
			break
		}
	}
	if first == nil || !fi.hasThisModifier(first) {
		return extensionDecl{}, false
	}

	return extensionDecl{
		name:     fi.text(name),
		receiver: normalizeType(fi.text(first.ChildByFieldName("type"))),
		nameSpan: spanOf(name),
	}, true
}

func (fi *fileInfo) hasThisModifier(param *sitter.Node) bool {
	for i := 0; i < int(param.ChildCount()); i++ {
		c := param.Child(i)
		if c != nil && c.Content(fi.src) == "this" {
			return true
		}
	}
	return false
}

// globalAttributes collects InternalsVisibleTo friends from an
// assembly-level attribute list.
func (fi *fileInfo) globalAttributes(n *sitter.Node) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(fi.text(n)), "["))
	if !strings.HasPrefix(body, "assembly") {
		return
	}

	var visit func(*sitter.Node)
	visit = func(c *sitter.Node) {
		if c.Type() == "attribute" {
			name := simpleName(normalizeName(fi.text(c.ChildByFieldName("name"))))
			if name == "InternalsVisibleTo" || name == "InternalsVisibleToAttribute" {
				if lit := fi.firstString(c); lit != "" {
					fi.friends = append(fi.friends, lit)
				}
			}
			return
		}
		for _, cc := range namedChildren(c) {
			visit(cc)
		}
	}
	visit(n)
}

func (fi *fileInfo) firstString(n *sitter.Node) string {
	if strings.Contains(n.Type(), "string_literal") {
		s := strings.TrimPrefix(fi.text(n), "@")
		return strings.Trim(s, `"`)
	}
	for _, c := range namedChildren(n) {
		if s := fi.firstString(c); s != "" {
			return s
		}
	}
	return ""
}

func (fi *fileInfo) indexIdentifiers(root *sitter.Node) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Type() == "identifier" {
			text := fi.text(n)
			fi.identifiers[text] = append(fi.identifiers[text], n)
			continue
		}
		children := namedChildren(n)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// parseUsing reads a using directive from its source text
func parseUsing(text string) usingDirective {
	var u usingDirective
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	if rest, ok := cutWord(s, "global"); ok {
		u.global = true
		s = rest
	}
	s, _ = cutWord(s, "using")
	if rest, ok := cutWord(s, "static"); ok {
		u.static = true
		s = rest
	}
	if alias, target, ok := strings.Cut(s, "="); ok {
		u.alias = strings.TrimSpace(alias)
		s = target
	}
	u.target = normalizeType(s)
	return u
}

func cutWord(s, word string) (string, bool) {
	rest, ok := strings.CutPrefix(s, word)
	if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\n' && rest[0] != '\r') {
		return s, false
	}
	return strings.TrimSpace(rest), true
}

// normalizeName removes whitespace and the global:: prefix from a dotted name
func normalizeName(s string) string {
	s = strings.Join(strings.Fields(s), "")
	return strings.TrimPrefix(s, "global::")
}

// normalizeType reduces a type reference to its dotted name without type
// arguments, constructor arguments or nullable and array suffixes.
func normalizeType(s string) string {
	s = normalizeName(s)
	if i := strings.IndexAny(s, "<([?"); i >= 0 {
		s = s[:i]
	}
	return s
}

func simpleName(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

func splitQualified(s string) (qualifier, name string) {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

func joinName(ns, name string) string {
	if ns == "" {
		return name
	}
	if name == "" {
		return ns
	}
	return ns + "." + name
}

// namespacePrefixes returns ns and each enclosing namespace, ending with
// the global namespace
func namespacePrefixes(ns string) []string {
	var prefixes []string
	for ns != "" {
		prefixes = append(prefixes, ns)
		ns, _ = splitQualified(ns)
	}
	return append(prefixes, "")
}
