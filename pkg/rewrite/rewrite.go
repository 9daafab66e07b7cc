// Package rewrite narrows the accessibility of type declarations from
// public to internal by editing the modifier token in place.
package rewrite

import (
	"context"
	"fmt"
	"slices"

	"github.com/ritzau/encap-analyzer/pkg/logging"
	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/syntax"
)

// declVariant is the closed set of declarations the engine rewrites
type declVariant int

const (
	classLike declVariant = iota
	interfaceDecl
	enumDecl
	recordLike
)

func (v declVariant) String() string {
	return [...]string{"class", "interface", "enum", "record"}[v]
}

// variants maps the rewritable syntax kinds to their variant. Delegates and
// members are never rewritten.
var variants = map[syntax.Kind]declVariant{
	syntax.KindClass:     classLike,
	syntax.KindStruct:    classLike,
	syntax.KindInterface: interfaceDecl,
	syntax.KindEnum:      enumDecl,
	syntax.KindRecord:    recordLike,
}

const (
	fromModifier = "public"
	toModifier   = "internal"
)

// Engine applies accessibility downgrades to a codebase snapshot
type Engine struct {
	parser syntax.Parser
}

// NewEngine creates an engine that parses documents with p
func NewEngine(p syntax.Parser) *Engine {
	return &Engine{parser: p}
}

// Apply rewrites every declaration of the given symbols to internal and
// returns the resulting snapshot. Documents are processed one at a time in
// ID order, each against the latest snapshot. A document that is missing or
// cannot be parsed is logged and skipped.
func (e *Engine) Apply(ctx context.Context, cb *model.Codebase, symbols []*model.Symbol) (*model.Codebase, error) {
	logger := logging.New("rewrite")

	groups := make(map[model.DocumentID][]model.Span)
	for _, sym := range symbols {
		for _, loc := range sym.Locations {
			if !slices.Contains(groups[loc.Document], loc.Span) {
				groups[loc.Document] = append(groups[loc.Document], loc.Span)
			}
		}
	}

	docIDs := make([]model.DocumentID, 0, len(groups))
	for id := range groups {
		docIDs = append(docIDs, id)
	}
	slices.Sort(docIDs)

	current := cb
	for _, id := range docIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, ok := current.Document(id)
		if !ok {
			logger.Error("document to rewrite not found", "document", string(id))
			continue
		}

		root, err := e.parser.Parse(ctx, doc)
		if err != nil || root == nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Error("cannot parse document to rewrite", "document", string(id), "error", err)
			continue
		}

		edits := Edits(root, groups[id])
		if len(edits) == 0 {
			continue
		}

		rewritten, err := doc.Rewrite(edits)
		if err != nil {
			return nil, fmt.Errorf("rewriting %s: %w", id, err)
		}
		current = current.WithDocuments(rewritten)
		logger.Debug("rewrote declarations", "document", string(id), "edits", len(edits))
	}

	return current, nil
}

// Edits computes the modifier replacements for the declarations whose names
// lie at the given spans. Declarations without a public modifier produce no
// edit.
func Edits(root syntax.Node, nameSpans []model.Span) []model.Edit {
	var targets []syntax.Node
	for _, span := range nameSpans {
		decl := syntax.EnclosingDeclaration(root, span)
		if decl == nil {
			logging.Debug("no declaration at location", "span", span.String())
			continue
		}
		targets = append(targets, decl)
	}

	var edits []model.Edit
	for n := range syntax.Walk(root) {
		variant, ok := variants[n.Kind()]
		if !ok || !slices.ContainsFunc(targets, func(t syntax.Node) bool { return syntax.Equivalent(t, n) }) {
			continue
		}

		tok, ok := syntax.Modifier(n, fromModifier)
		if !ok {
			logging.Trace("declaration has no public modifier", "kind", variant.String(), "span", n.Span().String())
			continue
		}
		edits = append(edits, model.Edit{Span: tok.Span, NewText: toModifier})
	}
	return edits
}
