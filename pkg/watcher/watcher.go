package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ritzau/encap-analyzer/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	// ChangeTypeProject is a project file change; units or references may differ
	ChangeTypeProject ChangeType = iota
	// ChangeTypeSource is a source document change
	ChangeTypeSource
)

func (t ChangeType) String() string {
	if t == ChangeTypeProject {
		return "project"
	}
	return "source"
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

const batchWindow = 100 * time.Millisecond

// FileWatcher watches a workspace for project and source changes
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	workspace string
	events    chan ChangeEvent
	stopOnce  sync.Once
}

// NewFileWatcher creates a new file system watcher for a workspace
func NewFileWatcher(workspace string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:   watcher,
		workspace: workspace,
		events:    make(chan ChangeEvent, 100),
	}

	return fw, nil
}

// Start begins watching for file changes. The events channel is closed
// when ctx is done.
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.watchTree(fw.workspace)
	if err != nil {
		return err
	}
	logging.Info("started watching workspace", "path", fw.workspace, "directories", count)

	// Process events
	go fw.processEvents(ctx)

	return nil
}

// watchTree adds dir and every source directory below it. fsnotify does
// not watch recursively.
func (fw *FileWatcher) watchTree(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip directories we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && ignoredDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk workspace: %w", err)
	}
	return count, nil
}

func ignoredDir(name string) bool {
	switch strings.ToLower(name) {
	case "bin", "obj", "node_modules":
		return true
	}
	return strings.HasPrefix(name, ".")
}

// Classify maps a changed path to its change type
func Classify(path string) (ChangeType, bool) {
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case ext == ".csproj", strings.EqualFold(filepath.Base(path), "Directory.Build.props"):
		return ChangeTypeProject, true
	case ext == ".cs":
		return ChangeTypeSource, true
	}
	return 0, false
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	// Batch events to avoid sending one event per file
	var projectFiles []string
	var sourceFiles []string

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		if len(projectFiles) > 0 {
			fw.events <- ChangeEvent{Type: ChangeTypeProject, Paths: projectFiles, Timestamp: time.Now()}
			projectFiles = nil
		}
		if len(sourceFiles) > 0 {
			fw.events <- ChangeEvent{Type: ChangeTypeSource, Paths: sourceFiles, Timestamp: time.Now()}
			sourceFiles = nil
		}
	}

	defer close(fw.events)

	for {
		select {
		case <-ctx.Done():
			_ = fw.Stop()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories have to be watched explicitly
			if event.Has(fsnotify.Create) {
				if _, err := fw.watchTree(event.Name); err != nil {
					logging.Debug("could not watch new path", "path", event.Name, "error", err)
				}
			}

			typ, relevant := Classify(event.Name)
			if !relevant {
				continue
			}
			logging.Trace("file changed", "path", event.Name, "op", event.Op.String())
			if typ == ChangeTypeProject {
				projectFiles = append(projectFiles, event.Name)
			} else {
				sourceFiles = append(sourceFiles, event.Name)
			}
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
