package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/ritzau/encap-analyzer/pkg/analysis"
	"github.com/ritzau/encap-analyzer/pkg/model"
)

func init() {
	color.NoColor = true
}

func TestPrintReport(t *testing.T) {
	report := &model.Report{
		RunID:     "run-1",
		Workspace: "/ws",
		Duration:  1500 * time.Millisecond,
		Cycles:    [][]model.UnitID{{"A/A.csproj", "B/B.csproj"}},
		Units: []model.UnitReport{
			{
				Unit:     "Lib/Lib.csproj",
				Name:     "Lib",
				Analyzed: 3,
				Candidates: []model.Candidate{
					{Symbol: "Lib.Bar", Kind: model.SymbolClass, Unit: "Lib/Lib.csproj", Locations: []string{"Lib/Bar.cs:3:18"}},
				},
			},
			{Unit: "App/App.csproj", Name: "App", Analyzed: 1},
			{Unit: "Broken/Broken.csproj", Name: "Broken", Error: "compilation unavailable"},
		},
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)
	out := buf.String()

	for _, want := range []string{
		"Workspace: /ws",
		"Run: run-1 (1.5s)",
		"Warning: unit reference cycle: A/A.csproj -> B/B.csproj",
		"Lib (Lib/Lib.csproj): 3 public type(s) analyzed",
		"class Lib.Bar",
		"Lib/Bar.cs:3:18",
		"All public types are used by other units",
		"Error: compilation unavailable",
		"Summary: 1 type(s) can be made internal in 1 unit(s)",
		"--fix",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReportFixed(t *testing.T) {
	report := &model.Report{
		Fixed:     true,
		Rewritten: []string{"Lib/Bar.cs"},
		Units:     []model.UnitReport{{Unit: "Lib/Lib.csproj", Name: "Lib"}},
	}

	var buf bytes.Buffer
	PrintReport(&buf, report)
	out := buf.String()

	if !strings.Contains(out, "Fixed: rewrote 1 file(s)") || !strings.Contains(out, "Lib/Bar.cs") {
		t.Errorf("fixed report missing rewrite summary:\n%s", out)
	}
	if !strings.Contains(out, "No public types can be narrowed") {
		t.Errorf("expected the all-clear line:\n%s", out)
	}
}

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf)

	tracker.Report(analysis.Progress{Unit: "Lib", Phase: analysis.PhaseEnumerate})
	if tracker.bar != nil {
		t.Fatal("non-search phases should not create a bar")
	}

	tracker.Report(analysis.Progress{Unit: "Lib", Phase: analysis.PhaseSearch, Current: 1, Total: 2, Symbol: "Foo"})
	if tracker.bar == nil {
		t.Fatal("search progress should create a bar")
	}
	tracker.Report(analysis.Progress{Unit: "Lib", Phase: analysis.PhaseSearch, Current: 2, Total: 2, Done: true})
	if tracker.bar != nil {
		t.Error("bar should be finished after the done event")
	}

	// Units without public types never draw a bar
	tracker.Report(analysis.Progress{Unit: "Empty", Phase: analysis.PhaseSearch, Done: true})
	if tracker.bar != nil {
		t.Error("empty unit should not create a bar")
	}
	tracker.Close()
}
