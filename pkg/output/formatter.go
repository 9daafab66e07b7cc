package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/ritzau/encap-analyzer/pkg/model"
)

// PrintReport prints a nicely formatted analysis report with colors
func PrintReport(w io.Writer, report *model.Report) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Encapsulation Analyzer - Report")
	bold.Fprintln(w, "===============================")
	fmt.Fprintf(w, "Workspace: %s\n", report.Workspace)
	fmt.Fprintf(w, "Run: %s (%s)\n", report.RunID, report.Duration.Round(time.Millisecond))

	for _, cycle := range report.Cycles {
		parts := make([]string, len(cycle))
		for i, u := range cycle {
			parts[i] = string(u)
		}
		yellow.Fprintf(w, "Warning: unit reference cycle: %s\n", strings.Join(parts, " -> "))
	}
	fmt.Fprintln(w)

	units := 0
	for _, ur := range report.Units {
		bold.Fprintf(w, "%s", ur.Name)
		fmt.Fprintf(w, " (%s): %d public type(s) analyzed\n", ur.Unit, ur.Analyzed)

		if ur.Error != "" {
			red.Fprintf(w, "  Error: %s\n", ur.Error)
			fmt.Fprintln(w)
			continue
		}
		if len(ur.Candidates) == 0 {
			green.Fprintln(w, "  All public types are used by other units")
			fmt.Fprintln(w)
			continue
		}

		units++
		yellow.Fprintln(w, "  CAN BE INTERNAL:")
		for _, c := range ur.Candidates {
			yellow.Fprintf(w, "    %s %s\n", c.Kind, c.Symbol)
			for _, loc := range c.Locations {
				cyan.Fprintf(w, "      %s\n", loc)
			}
		}
		fmt.Fprintln(w)
	}

	// Summary
	count := report.CandidateCount()
	if count == 0 {
		green.Fprintln(w, "✓ No public types can be narrowed")
	} else {
		yellow.Fprintf(w, "Summary: %d type(s) can be made internal in %d unit(s)\n", count, units)
	}

	if report.Fixed {
		green.Fprintf(w, "Fixed: rewrote %d file(s)\n", len(report.Rewritten))
		for _, f := range report.Rewritten {
			fmt.Fprintf(w, "  %s\n", f)
		}
	} else if count > 0 {
		fmt.Fprintln(w, "Run again with --fix to apply the changes")
	}
}
