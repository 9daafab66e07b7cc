// Package csharp is the C# front end: a tree-sitter based parser and a
// name-resolving semantic provider for the analyzer.
package csharp

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/encap-analyzer/pkg/logging"
	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/syntax"
)

// Parser parses C# documents and caches the result per document version.
// Superseded trees are released by their finalizers, never closed here,
// since nodes handed out earlier may still be in use.
type Parser struct {
	mu      sync.Mutex
	cache   map[model.DocumentID]*fileInfo
	workers int
}

// NewParser creates a parser that parses up to GOMAXPROCS documents at once
func NewParser() *Parser {
	return &Parser{
		cache:   make(map[model.DocumentID]*fileInfo),
		workers: runtime.GOMAXPROCS(0),
	}
}

// Parse implements syntax.Parser
func (p *Parser) Parse(ctx context.Context, doc *model.Document) (syntax.Node, error) {
	fi, err := p.file(ctx, doc)
	if err != nil {
		return nil, err
	}
	return wrap(fi.root(), fi.src), nil
}

func (p *Parser) file(ctx context.Context, doc *model.Document) (*fileInfo, error) {
	if fi := p.cached(doc); fi != nil {
		return fi, nil
	}
	fi, err := parseDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	p.store(fi)
	return fi, nil
}

// ParseAll parses the documents in parallel. Documents already parsed at
// the same version come from the cache.
func (p *Parser) ParseAll(ctx context.Context, docs []*model.Document) (map[model.DocumentID]*fileInfo, error) {
	files := make(map[model.DocumentID]*fileInfo, len(docs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	parsed := 0
	for _, doc := range docs {
		if fi := p.cached(doc); fi != nil {
			mu.Lock()
			files[doc.ID] = fi
			mu.Unlock()
			continue
		}
		parsed++
		g.Go(func() error {
			fi, err := parseDocument(gctx, doc)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", doc.ID, err)
			}
			p.store(fi)
			mu.Lock()
			files[doc.ID] = fi
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	logging.Debug("parsed documents", "parsed", parsed, "cached", len(docs)-parsed)
	return files, nil
}

// Prune drops cached documents that are not part of keep
func (p *Parser) Prune(keep model.DocumentSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.cache {
		if !keep.Contains(id) {
			delete(p.cache, id)
		}
	}
}

func (p *Parser) cached(doc *model.Document) *fileInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fi, ok := p.cache[doc.ID]; ok && fi.version == doc.Version() {
		return fi
	}
	return nil
}

func (p *Parser) store(fi *fileInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[fi.doc.ID] = fi
}

// parseDocument parses one document and extracts its declarations. The
// tree's node cache is not safe for concurrent use, so everything that
// walks the tree during parallel parsing happens here.
func parseDocument(ctx context.Context, doc *model.Document) (*fileInfo, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(csharp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, doc.Text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if tree.RootNode().HasError() {
		logging.Debug("document has syntax errors", "document", string(doc.ID))
	}
	return extract(doc, tree), nil
}
