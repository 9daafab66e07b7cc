package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/ritzau/encap-analyzer/pkg/classify"
	"github.com/ritzau/encap-analyzer/pkg/graph"
	"github.com/ritzau/encap-analyzer/pkg/logging"
	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/scope"
	"github.com/ritzau/encap-analyzer/pkg/semantic"
)

var (
	// ErrUnitNotFound is returned when the analyzed unit is not part of the
	// codebase.
	ErrUnitNotFound = errors.New("unit not found")
	// ErrCompilationUnavailable is returned when the provider cannot
	// compile the analyzed unit.
	ErrCompilationUnavailable = errors.New("compilation unavailable")
)

type visitState int

const (
	undecided visitState = iota
	mustRemainPublic
	canBeInternal
)

// Analyzer finds public types of a unit that no other unit needs.
type Analyzer struct {
	provider semantic.Provider
	policy   scope.Policy
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithPolicy selects which dependent units are searched
func WithPolicy(p scope.Policy) Option {
	return func(a *Analyzer) {
		a.policy = p
	}
}

// NewAnalyzer creates an analyzer backed by the given provider
func NewAnalyzer(provider semantic.Provider, opts ...Option) *Analyzer {
	a := &Analyzer{
		provider: provider,
		policy:   scope.PolicyTransitive,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// pass holds the state of one Analyze call
type pass struct {
	comp     semantic.Compilation
	cb       *model.Codebase
	unit     model.UnitID
	external model.DocumentSet
	own      model.DocumentSet
	logger   *slog.Logger

	byID     map[model.SymbolID]*model.Symbol
	state    map[model.SymbolID]visitState
	deferred map[model.SymbolID]bool
}

// Analyze returns the public types of unit that can be made internal, in
// enumeration order. When ctx is cancelled the partial result is discarded
// and ctx.Err() is returned.
func (a *Analyzer) Analyze(ctx context.Context, cb *model.Codebase, unitID model.UnitID, progress ProgressFunc) ([]*model.Symbol, error) {
	logger := logging.New("analysis").With("unit", string(unitID))
	report := func(p Progress) {
		p.Unit = string(unitID)
		progress.report(p)
	}

	report(Progress{Phase: PhaseEnumerate})

	unit, ok := cb.Unit(unitID)
	if !ok {
		logger.Error("unit not found in codebase")
		return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, unitID)
	}

	comp, err := a.provider.Compile(ctx, cb, unitID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Error("compilation failed", "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrCompilationUnavailable, unitID, err)
	}

	symbols := slices.Collect(PublicTypes(comp.GlobalNamespace(), unitID))
	logger.Debug("enumerated public types", "count", len(symbols))
	report(Progress{Phase: PhaseEnumerate, Current: len(symbols), Total: len(symbols), Done: true})

	report(Progress{Phase: PhaseScope})
	friends := scope.Friends(unit, comp.Friends())
	p := &pass{
		comp:     comp,
		cb:       cb,
		unit:     unitID,
		external: scope.Resolve(graph.BuildUnitGraph(cb), cb, unitID, friends, a.policy),
		own:      scope.Own(cb, unitID),
		logger:   logger,
		byID:     make(map[model.SymbolID]*model.Symbol, len(symbols)),
		state:    make(map[model.SymbolID]visitState, len(symbols)),
		deferred: make(map[model.SymbolID]bool),
	}
	for _, sym := range symbols {
		p.byID[sym.ID] = sym
	}
	logger.Debug("computed search scope", "documents", len(p.external), "friends", len(friends), "policy", a.policy)
	report(Progress{Phase: PhaseScope, Done: true})

	processed := 0
	queue := slices.Clone(symbols)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sym := queue[0]
		queue = queue[1:]
		if p.state[sym.ID] != undecided {
			continue
		}

		// A base class has to be decided before its subclasses. Each symbol
		// defers at most once so malformed inheritance loops terminate.
		if base, ok := p.byID[sym.BaseType]; ok && p.state[base.ID] == undecided && !p.deferred[sym.ID] {
			p.deferred[sym.ID] = true
			queue = append([]*model.Symbol{base, sym}, queue...)
			continue
		}

		processed++
		report(Progress{Phase: PhaseSearch, Current: processed, Total: len(symbols), Symbol: sym.String()})

		public, err := p.mustRemainPublic(ctx, sym)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn("reference search failed, keeping symbol public", "symbol", sym.String(), "error", err)
			public = true
		}

		if public {
			p.markPublic(sym)
		} else {
			p.state[sym.ID] = canBeInternal
		}
	}
	report(Progress{Phase: PhaseSearch, Current: processed, Total: len(symbols), Done: true})

	report(Progress{Phase: PhaseClassify})
	var result []*model.Symbol
	for _, sym := range symbols {
		if p.state[sym.ID] == canBeInternal {
			result = append(result, sym)
		}
	}
	logger.Info("analysis complete", "public", len(symbols), "internal", len(result))
	report(Progress{Phase: PhaseClassify, Current: len(result), Total: len(symbols), Done: true})

	return result, nil
}

// markPublic marks sym and every public base class of this unit as
// required to stay public. A subclass that stays public forces its bases
// to stay public even if they were already found internal.
func (p *pass) markPublic(sym *model.Symbol) {
	seen := make(map[model.SymbolID]bool)
	for cur := sym; cur != nil && !seen[cur.ID]; cur = p.byID[cur.BaseType] {
		seen[cur.ID] = true
		p.state[cur.ID] = mustRemainPublic
	}
}

func (p *pass) mustRemainPublic(ctx context.Context, sym *model.Symbol) (bool, error) {
	found, err := p.referencedOutside(ctx, sym)
	if err != nil || found {
		return found, err
	}

	if sym.MightContainExtensions {
		for _, ext := range sym.Extensions {
			found, err := p.referencedOutside(ctx, ext)
			if err != nil || found {
				return found, err
			}
		}
	}

	return p.leaksThroughOwnSurface(ctx, sym)
}

// referencedOutside searches the external scope and stops at the first
// reference from another unit. Speculative matches count as references.
func (p *pass) referencedOutside(ctx context.Context, sym *model.Symbol) (bool, error) {
	if len(p.external) == 0 {
		return false, nil
	}

	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for ev, err := range p.comp.FindReferences(searchCtx, sym, p.external) {
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, fmt.Errorf("finding references to %s: %w", sym, err)
		}

		if ev.Unit == p.unit {
			continue
		}

		cancel()
		if logging.TraceEnabled() {
			p.logger.Log(ctx, logging.LevelTrace, "symbol is used by other unit",
				"symbol", sym.String(), "usedBy", string(ev.Unit), "location", p.describe(ev.Location))
		}
		return true, nil
	}

	p.logger.Log(ctx, logging.LevelTrace, "no external references", "symbol", sym.String())
	return false, nil
}

// leaksThroughOwnSurface searches the unit's own documents for a reference
// that appears in the public signature of another public type.
func (p *pass) leaksThroughOwnSurface(ctx context.Context, sym *model.Symbol) (bool, error) {
	for ev, err := range p.comp.FindReferences(ctx, sym, p.own) {
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, fmt.Errorf("finding own references to %s: %w", sym, err)
		}
		if ev.Candidate {
			continue
		}

		node, err := p.comp.SyntaxAt(ctx, ev.Location)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			// Only references with a resolvable position are classified
			p.logger.Log(ctx, logging.LevelTrace, "skipping unresolvable reference",
				"symbol", sym.String(), "location", p.describe(ev.Location), "error", err)
			continue
		}

		res := classify.Classify(node)
		if !res.Leak || isOwnDeclaration(sym, ev.Location.Document, res) {
			continue
		}

		p.logger.Log(ctx, logging.LevelTrace, "symbol leaks through public signature",
			"symbol", sym.String(), "location", p.describe(ev.Location))
		return true, nil
	}
	return false, nil
}

// isOwnDeclaration reports whether the leaking declaration is sym itself,
// as in a public factory method returning its own type.
func isOwnDeclaration(sym *model.Symbol, doc model.DocumentID, res classify.Result) bool {
	if res.Declaration == nil {
		return false
	}
	name := model.Location{Document: doc, Span: res.Declaration.NameSpan()}
	return slices.Contains(sym.Locations, name)
}

func (p *pass) describe(loc model.Location) string {
	doc, ok := p.cb.Document(loc.Document)
	if !ok {
		return loc.String()
	}
	line, col := doc.Position(loc.Span.Start)
	return fmt.Sprintf("%s:%d:%d", loc.Document, line, col)
}
