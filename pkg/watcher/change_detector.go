package watcher

import (
	"fmt"
	"path/filepath"
)

// ChangeAnalysis describes what changed and how much has to be reloaded
type ChangeAnalysis struct {
	// NeedReloadUnits is set when project files changed and the unit
	// graph has to be rebuilt
	NeedReloadUnits bool
	ChangedFiles    []string
	Reason          string
}

// AnalyzeChanges determines what a debounced change event requires
func AnalyzeChanges(event ChangeEvent, workspace string) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	switch event.Type {
	case ChangeTypeProject:
		// Units, references or friend declarations may have changed
		analysis.NeedReloadUnits = true
		analysis.Reason = fmt.Sprintf("project changed: %s", describe(event.Paths, workspace))
	case ChangeTypeSource:
		analysis.Reason = fmt.Sprintf("sources changed: %s", describe(event.Paths, workspace))
	}

	return analysis
}

func describe(paths []string, workspace string) string {
	if len(paths) == 0 {
		return "none"
	}
	first := paths[0]
	if rel, err := filepath.Rel(workspace, first); err == nil {
		first = filepath.ToSlash(rel)
	}
	if len(paths) == 1 {
		return first
	}
	return fmt.Sprintf("%s and %d more", first, len(paths)-1)
}
