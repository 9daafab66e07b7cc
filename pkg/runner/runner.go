// Package runner orchestrates one analysis run over a workspace: loading,
// per-unit analysis, optional rewriting and publishing of the report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/encap-analyzer/pkg/analysis"
	"github.com/ritzau/encap-analyzer/pkg/csharp"
	"github.com/ritzau/encap-analyzer/pkg/cycles"
	"github.com/ritzau/encap-analyzer/pkg/graph"
	"github.com/ritzau/encap-analyzer/pkg/logging"
	"github.com/ritzau/encap-analyzer/pkg/model"
	"github.com/ritzau/encap-analyzer/pkg/rewrite"
	"github.com/ritzau/encap-analyzer/pkg/scope"
	"github.com/ritzau/encap-analyzer/pkg/workspace"
)

// Sink receives status updates and finished reports. The web server is
// one; the CLI runs without a sink.
type Sink interface {
	PublishStatus(state, message string, step, total int) error
	PublishProgress(p analysis.Progress) error
	SetReport(report *model.Report)
}

// Options configures one run
type Options struct {
	Unit     string // assembly name, unit ID or project path; empty selects all units
	Fix      bool
	Policy   scope.Policy
	Progress analysis.ProgressFunc
	Reason   string // e.g., "initial analysis", "sources changed"
}

const totalSteps = 4

// Runner runs analyses. Concurrent runs are serialized.
type Runner struct {
	workspace string
	sink      Sink
	parser    *csharp.Parser
	mu        sync.Mutex
}

// New creates a runner for the workspace at root. sink may be nil.
func New(root string, sink Sink) *Runner {
	return &Runner{
		workspace: root,
		sink:      sink,
		parser:    csharp.NewParser(),
	}
}

// Run executes a full analysis and returns its report. A unit that cannot
// be analyzed is recorded in its UnitReport; only a failure to load the
// workspace, an unknown unit, a failed save or cancellation fail the run.
func (r *Runner) Run(ctx context.Context, opts Options) (*model.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A run started by a web request shares the request's ID
	runID := logging.GetRequestID(ctx)
	if runID == "" {
		runID = uuid.New().String()
	}
	logger := logging.New("runner").With("run", runID)
	report := &model.Report{
		RunID:   runID,
		Started: time.Now(),
	}
	logger.Info("starting analysis", "reason", opts.Reason)

	// Step 1: load
	r.status("loading", "Loading workspace...", 1)
	base, err := workspace.Load(ctx, r.workspace)
	if err != nil {
		r.status("error", fmt.Sprintf("Error loading workspace: %v", err), 1)
		return nil, fmt.Errorf("loading workspace: %w", err)
	}
	report.Workspace = base.Root

	ug := graph.BuildUnitGraph(base)
	for _, c := range cycles.FindUnitCycles(ug) {
		logger.Warn("unit reference cycle", "units", c.Units)
		report.Cycles = append(report.Cycles, c.Units)
	}

	// Step 2: select units
	units, err := selectUnits(base, ug, opts.Unit)
	if err != nil {
		r.status("error", err.Error(), 2)
		return nil, err
	}

	// Step 3: analyze, threading the snapshot through rewrites
	r.status("analyzing", fmt.Sprintf("Analyzing %d unit(s)...", len(units)), 3)
	analyzer := analysis.NewAnalyzer(csharp.NewProvider(r.parser), analysis.WithPolicy(opts.Policy))
	engine := rewrite.NewEngine(r.parser)

	current := base
	for _, unit := range units {
		ur := model.UnitReport{Unit: unit.ID, Name: unit.Name}

		progress := analysis.Tee(opts.Progress, r.forward, func(p analysis.Progress) {
			if p.Phase == analysis.PhaseEnumerate && p.Done {
				ur.Analyzed = p.Total
			}
		})

		symbols, err := analyzer.Analyze(ctx, current, unit.ID, progress)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				r.status("cancelled", "Analysis cancelled", 3)
				return nil, ctxErr
			}
			logger.Error("unit analysis failed", "unit", string(unit.ID), "error", err)
			ur.Error = err.Error()
			report.Units = append(report.Units, ur)
			continue
		}

		for _, sym := range symbols {
			ur.Candidates = append(ur.Candidates, model.Candidate{
				Symbol:    sym.String(),
				Kind:      sym.Kind,
				Unit:      sym.Unit,
				Locations: positions(current, sym.Locations),
			})
		}
		report.Units = append(report.Units, ur)

		if opts.Fix && len(symbols) > 0 {
			next, err := engine.Apply(ctx, current, symbols)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				logger.Error("rewrite failed", "unit", string(unit.ID), "error", err)
				continue
			}
			current = next
		}
	}

	// Step 4: save
	if opts.Fix {
		r.status("rewriting", "Writing rewritten documents...", 4)
		written, err := workspace.Save(current, base)
		if err != nil {
			r.status("error", fmt.Sprintf("Error writing documents: %v", err), 4)
			return nil, fmt.Errorf("saving rewritten documents: %w", err)
		}
		report.Fixed = true
		for _, id := range written {
			report.Rewritten = append(report.Rewritten, string(id))
		}
	}

	report.Duration = time.Since(report.Started)
	logger.Info("analysis complete",
		"units", len(report.Units),
		"candidates", report.CandidateCount(),
		"duration", report.Duration.Round(time.Millisecond))

	if r.sink != nil {
		r.sink.SetReport(report)
	}
	r.status("ready", fmt.Sprintf("%d type(s) can be made internal", report.CandidateCount()), totalSteps)

	return report, nil
}

// selectUnits returns the unit matching query, or every unit in dependency
// order when query is empty.
func selectUnits(cb *model.Codebase, ug *graph.UnitGraph, query string) ([]*model.Unit, error) {
	if query != "" {
		u, err := workspace.FindUnit(cb, query)
		if err != nil {
			return nil, err
		}
		return []*model.Unit{u}, nil
	}

	order, ok := ug.DependencyOrder()
	if !ok {
		logging.Debug("unit graph has cycles, analyzing in ID order")
	}
	units := make([]*model.Unit, 0, len(order))
	for _, id := range order {
		if u, ok := cb.Unit(id); ok {
			units = append(units, u)
		}
	}
	return units, nil
}

// positions formats locations as document:line:col
func positions(cb *model.Codebase, locs []model.Location) []string {
	out := make([]string, 0, len(locs))
	for _, loc := range locs {
		doc, ok := cb.Document(loc.Document)
		if !ok {
			out = append(out, loc.String())
			continue
		}
		line, col := doc.Position(loc.Span.Start)
		out = append(out, fmt.Sprintf("%s:%d:%d", loc.Document, line, col))
	}
	return out
}

func (r *Runner) status(state, message string, step int) {
	if r.sink == nil {
		return
	}
	if err := r.sink.PublishStatus(state, message, step, totalSteps); err != nil {
		logging.Debug("could not publish status", "error", err)
	}
}

func (r *Runner) forward(p analysis.Progress) {
	if r.sink == nil {
		return
	}
	if err := r.sink.PublishProgress(p); err != nil {
		logging.Debug("could not publish progress", "error", err)
	}
}

// IsUnitNotFound reports whether err means the requested unit does not exist
func IsUnitNotFound(err error) bool {
	return errors.Is(err, workspace.ErrUnitNotFound)
}
