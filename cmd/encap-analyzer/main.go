package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/encap-analyzer/pkg/config"
	"github.com/ritzau/encap-analyzer/pkg/logging"
	"github.com/ritzau/encap-analyzer/pkg/output"
	"github.com/ritzau/encap-analyzer/pkg/runner"
	"github.com/ritzau/encap-analyzer/pkg/scope"
	"github.com/ritzau/encap-analyzer/pkg/watcher"
	"github.com/ritzau/encap-analyzer/pkg/web"
)

func main() {
	f := pflag.NewFlagSet("encap-analyzer", pflag.ExitOnError)
	f.StringP("workspace", "w", ".", "Path to the workspace root")
	f.StringP("unit", "u", "", "Unit to analyze (assembly name or project path); all units when empty")
	f.Bool("fix", false, "Rewrite narrowable public types to internal")
	f.String("scope", "transitive", "Dependent units to search: transitive or direct")
	f.Bool("web", false, "Start web server instead of printing to console")
	f.Int("port", 8080, "Port for web server (only used with --web)")
	f.Bool("watch", false, "Re-run the analysis when sources or projects change")
	f.Bool("progress", true, "Show progress bars")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	f.Bool("json-logs", false, "Emit logs as JSON")
	f.Parse(os.Args[1:])

	cfg, err := config.Load(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.LevelFromFlags(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}

	policy, err := scope.ParsePolicy(cfg.Scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runner.Options{
		Unit:   cfg.Unit,
		Fix:    cfg.Fix,
		Policy: policy,
	}

	switch {
	case cfg.WebMode:
		err = runWeb(ctx, cfg, opts)
	case cfg.Watch:
		err = runWatch(ctx, cfg, opts)
	default:
		err = runOnce(ctx, cfg, opts)
	}

	if errors.Is(err, context.Canceled) && (cfg.WebMode || cfg.Watch) {
		// Interrupting a long-running mode is the normal way to stop it
		logging.Info("stopped")
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runOnce runs a single analysis and prints the report
func runOnce(ctx context.Context, cfg *config.Config, opts runner.Options) error {
	r := runner.New(cfg.Workspace, nil)
	return analyzeAndPrint(ctx, r, cfg, opts, "command line")
}

func analyzeAndPrint(ctx context.Context, r *runner.Runner, cfg *config.Config, opts runner.Options, reason string) error {
	var tracker *output.ProgressTracker
	if cfg.Progress {
		tracker = output.NewProgressTracker(os.Stderr)
		opts.Progress = tracker.Report
	}
	opts.Reason = reason

	report, err := r.Run(ctx, opts)
	if tracker != nil {
		tracker.Close()
	}
	if err != nil {
		return err
	}

	output.PrintReport(os.Stdout, report)
	return nil
}

// runWatch prints a report, then re-runs on every debounced change until
// interrupted
func runWatch(ctx context.Context, cfg *config.Config, opts runner.Options) error {
	r := runner.New(cfg.Workspace, nil)
	if err := analyzeAndPrint(ctx, r, cfg, opts, "initial analysis"); err != nil {
		return err
	}

	return watch(ctx, cfg.Workspace, func(reason string) error {
		return analyzeAndPrint(ctx, r, cfg, opts, reason)
	})
}

// runWeb serves the latest report and re-runs on demand and on changes
func runWeb(ctx context.Context, cfg *config.Config, opts runner.Options) error {
	server := web.NewServer()
	r := runner.New(cfg.Workspace, server)

	run := func(ctx context.Context, reason string) error {
		o := opts
		o.Reason = reason
		_, err := r.Run(ctx, o)
		return err
	}
	server.SetAnalyzeFunc(run)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx, cfg.Port)
	}()

	go func() {
		if err := run(ctx, "initial analysis"); err != nil && ctx.Err() == nil {
			logging.Error("initial analysis failed", "error", err)
		}
	}()

	if cfg.Watch {
		go func() {
			err := watch(ctx, cfg.Workspace, func(reason string) error {
				return run(ctx, reason)
			})
			if err != nil && ctx.Err() == nil {
				logging.Error("watch mode stopped", "error", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return <-errCh
	}
}

// watch calls rerun for every debounced batch of changes. A failed rerun
// is logged; the watch continues.
func watch(ctx context.Context, workspace string, rerun func(reason string) error) error {
	fw, err := watcher.NewFileWatcher(workspace)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 500*time.Millisecond, 3*time.Second)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		change := watcher.AnalyzeChanges(event, workspace)
		logging.Info("change detected", "reason", change.Reason, "reload", change.NeedReloadUnits)

		if err := rerun(change.Reason); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Error("re-analysis failed", "error", err)
		}
	}
	return ctx.Err()
}
