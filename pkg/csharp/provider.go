package csharp

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/ritzau/encap-analyzer/pkg/graph"
	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/semantic"
	"github.com/ritzau/encap-analyzer/pkg/syntax"
)

// Provider implements semantic.Provider for C# codebases
type Provider struct {
	parser *Parser
}

// NewProvider creates a provider that parses through p. Sharing the parser
// with the rewrite engine shares its cache.
func NewProvider(p *Parser) *Provider {
	return &Provider{parser: p}
}

// Compile parses every document of the snapshot and binds the types of all
// units. The result is scoped to unit.
func (pr *Provider) Compile(ctx context.Context, cb *model.Codebase, unit model.UnitID) (semantic.Compilation, error) {
	if _, ok := cb.Unit(unit); !ok {
		return nil, fmt.Errorf("unit %s is not part of the codebase", unit)
	}

	docs := cb.AllDocuments()
	keep := make(model.DocumentSet, len(docs))
	for _, d := range docs {
		keep.Add(d.ID)
	}
	pr.parser.Prune(keep)

	files, err := pr.parser.ParseAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	return &compilation{
		unit:  unit,
		index: buildIndex(cb, files),
	}, nil
}

// index binds declarations of the whole snapshot
type index struct {
	cb    *model.Codebase
	files map[model.DocumentID]*fileInfo

	// visible maps a unit to itself and every unit it reaches
	visible map[model.UnitID]map[model.UnitID]bool

	types        map[model.UnitID]map[string]*model.Symbol
	byName       map[string][]*model.Symbol
	extensions   map[string][]*model.Symbol
	globalUsings map[model.UnitID][]usingDirective
}

func buildIndex(cb *model.Codebase, files map[model.DocumentID]*fileInfo) *index {
	idx := &index{
		cb:           cb,
		files:        files,
		visible:      make(map[model.UnitID]map[model.UnitID]bool),
		types:        make(map[model.UnitID]map[string]*model.Symbol),
		byName:       make(map[string][]*model.Symbol),
		extensions:   make(map[string][]*model.Symbol),
		globalUsings: make(map[model.UnitID][]usingDirective),
	}

	ug := graph.BuildUnitGraph(cb)
	for _, u := range cb.Units() {
		vis := map[model.UnitID]bool{u.ID: true}
		for _, ref := range ug.TransitiveReferences(u.ID) {
			vis[ref] = true
		}
		idx.visible[u.ID] = vis
		idx.types[u.ID] = make(map[string]*model.Symbol)

		for _, doc := range cb.Documents(u.ID) {
			fi, ok := files[doc.ID]
			if !ok {
				continue
			}
			for _, us := range fi.usings {
				if us.global {
					idx.globalUsings[u.ID] = append(idx.globalUsings[u.ID], us)
				}
			}
			for _, d := range fi.decls {
				idx.declare(u.ID, doc.ID, d)
			}
		}
	}

	// Bases and extension receivers resolve once every type is known
	for _, u := range cb.Units() {
		for _, doc := range cb.Documents(u.ID) {
			if fi, ok := files[doc.ID]; ok {
				idx.bind(fi)
			}
		}
	}
	return idx
}

func (idx *index) declare(unit model.UnitID, doc model.DocumentID, d declaration) {
	loc := model.Location{Document: doc, Span: d.nameSpan}
	qualified := d.qualifiedName()

	if sym, ok := idx.types[unit][qualified]; ok {
		// Another part of a partial type
		sym.Locations = append(sym.Locations, loc)
		if d.access == model.AccessPublic {
			sym.Accessibility = model.AccessPublic
		}
		return
	}

	sym := &model.Symbol{
		ID:            model.SymbolID(fmt.Sprintf("T:%s|%s", unit, qualified)),
		Name:          d.name,
		QualifiedName: qualified,
		Namespace:     d.namespace,
		Kind:          d.kind,
		Accessibility: d.access,
		Unit:          unit,
		Locations:     []model.Location{loc},
	}
	idx.types[unit][qualified] = sym
	idx.byName[d.name] = append(idx.byName[d.name], sym)
}

func (idx *index) bind(fi *fileInfo) {
	unit := fi.doc.Unit
	for _, d := range fi.decls {
		sym := idx.types[unit][d.qualifiedName()]
		if sym == nil {
			continue
		}

		if d.base != "" && sym.BaseType == "" {
			if base := idx.resolveType(fi, d.namespace, d.base); base != nil &&
				(base.Kind == model.SymbolClass || base.Kind == model.SymbolRecord) && base != sym {
				sym.BaseType = base.ID
			}
		}

		for _, e := range d.extensions {
			ext := &model.Symbol{
				ID:            model.SymbolID(fmt.Sprintf("M:%s|%s.%s@%s:%d", unit, sym.QualifiedName, e.name, fi.doc.ID, e.nameSpan.Start)),
				Name:          e.name,
				QualifiedName: sym.QualifiedName + "." + e.name,
				Namespace:     sym.Namespace,
				Kind:          model.SymbolExtension,
				Accessibility: model.AccessPublic,
				Unit:          unit,
				Locations:     []model.Location{{Document: fi.doc.ID, Span: e.nameSpan}},
			}
			idx.extensions[e.name] = append(idx.extensions[e.name], ext)

			sym.Extensions = append(sym.Extensions, ext)
			sym.MightContainExtensions = true
			if recv := idx.resolveType(fi, d.namespace, e.receiver); recv != nil && recv != sym {
				recv.Extensions = append(recv.Extensions, ext)
				recv.MightContainExtensions = true
			}
		}
	}
}

// resolveType binds a type name written in fi inside namespace ns. It
// returns nil unless exactly one type matches.
func (idx *index) resolveType(fi *fileInfo, ns, name string) *model.Symbol {
	if name == "" {
		return nil
	}
	if target, ok := idx.alias(fi, name); ok {
		name = target
	}

	qualifier, simple := splitQualified(name)
	var namespaces []string
	if qualifier != "" {
		namespaces = idx.qualifierNamespaces(fi, ns, qualifier)
	} else {
		namespaces = idx.visibleNamespaces(fi, ns)
	}

	matches := idx.lookup(fi.doc.Unit, simple, namespaces)
	if len(matches) != 1 {
		return nil
	}
	return matches[0]
}

// lookup returns the types named name declared in one of namespaces by a
// unit visible from unit
func (idx *index) lookup(unit model.UnitID, name string, namespaces []string) []*model.Symbol {
	var matches []*model.Symbol
	for _, sym := range idx.byName[name] {
		if idx.visible[unit][sym.Unit] && slices.Contains(namespaces, sym.Namespace) {
			matches = append(matches, sym)
		}
	}
	return matches
}

// visibleNamespaces lists the namespaces whose types can be named without
// qualification at a position inside namespace ns of fi.
func (idx *index) visibleNamespaces(fi *fileInfo, ns string) []string {
	namespaces := namespacePrefixes(ns)
	for u := range idx.usingsOf(fi) {
		if !u.static && u.alias == "" && !slices.Contains(namespaces, u.target) {
			namespaces = append(namespaces, u.target)
		}
	}
	return namespaces
}

// qualifierNamespaces lists the namespaces a written qualifier can denote
func (idx *index) qualifierNamespaces(fi *fileInfo, ns, qualifier string) []string {
	var namespaces []string
	if target, ok := idx.alias(fi, qualifier); ok {
		namespaces = append(namespaces, target)
	}
	head, rest, _ := strings.Cut(qualifier, ".")
	if target, ok := idx.alias(fi, head); ok && rest != "" {
		namespaces = append(namespaces, joinName(target, rest))
	}
	for _, prefix := range namespacePrefixes(ns) {
		namespaces = append(namespaces, joinName(prefix, qualifier))
	}
	return namespaces
}

func (idx *index) alias(fi *fileInfo, name string) (string, bool) {
	for u := range idx.usingsOf(fi) {
		if u.alias != "" && u.alias == name {
			return u.target, true
		}
	}
	return "", false
}

func (idx *index) usingsOf(fi *fileInfo) iter.Seq[usingDirective] {
	return func(yield func(usingDirective) bool) {
		for _, u := range fi.usings {
			if !yield(u) {
				return
			}
		}
		for _, u := range idx.globalUsings[fi.doc.Unit] {
			if !yield(u) {
				return
			}
		}
	}
}

// namespaceAt returns the namespace enclosing n in fi
func (idx *index) namespaceAt(fi *fileInfo, n *sitter.Node) string {
	var parts []string
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "namespace_declaration" {
			parts = append(parts, normalizeName(fi.text(cur.ChildByFieldName("name"))))
		}
	}
	ns := fi.fileNamespace
	for i := len(parts) - 1; i >= 0; i-- {
		ns = joinName(ns, parts[i])
	}
	return ns
}

// compilation is the view of the index from one unit
type compilation struct {
	unit  model.UnitID
	index *index
}

func (c *compilation) Unit() model.UnitID {
	return c.unit
}

// GlobalNamespace builds the namespace tree of the unit and the units it
// references. Delegates are left out: they are never rewritten.
func (c *compilation) GlobalNamespace() *model.Namespace {
	root := &model.Namespace{}
	nodes := map[string]*model.Namespace{"": root}

	var ensure func(name string) *model.Namespace
	ensure = func(name string) *model.Namespace {
		if ns, ok := nodes[name]; ok {
			return ns
		}
		parentName, _ := splitQualified(name)
		parent := ensure(parentName)
		ns := &model.Namespace{Name: name}
		parent.Namespaces = append(parent.Namespaces, ns)
		nodes[name] = ns
		return ns
	}

	for unit := range c.index.visible[c.unit] {
		for _, sym := range c.index.types[unit] {
			if sym.Kind == model.SymbolDelegate {
				continue
			}
			ns := ensure(sym.Namespace)
			ns.Types = append(ns.Types, sym)
		}
	}

	for _, ns := range nodes {
		slices.SortFunc(ns.Namespaces, func(a, b *model.Namespace) int {
			return cmp.Compare(a.Name, b.Name)
		})
		slices.SortFunc(ns.Types, func(a, b *model.Symbol) int {
			if r := cmp.Compare(a.Name, b.Name); r != 0 {
				return r
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}
	return root
}

// Friends returns the InternalsVisibleTo names declared in the unit's source
func (c *compilation) Friends() []string {
	var friends []string
	for _, doc := range c.index.cb.Documents(c.unit) {
		if fi, ok := c.index.files[doc.ID]; ok {
			friends = append(friends, fi.friends...)
		}
	}
	return friends
}

func (c *compilation) SyntaxAt(ctx context.Context, loc model.Location) (syntax.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fi, ok := c.index.files[loc.Document]
	if !ok {
		return nil, fmt.Errorf("document %s is not part of the compilation", loc.Document)
	}
	n := syntax.Innermost(wrap(fi.root(), fi.src), loc.Span)
	if n == nil {
		return nil, fmt.Errorf("no syntax at %s", loc)
	}
	return n, nil
}
