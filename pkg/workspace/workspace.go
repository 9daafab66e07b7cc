// Package workspace loads a directory of C# projects into a codebase
// snapshot and writes rewritten documents back to disk.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ritzau/encap-analyzer/pkg/finder"
	"github.com/ritzau/encap-analyzer/pkg/logging"
	"github.com/ritzau/encap-analyzer/pkg/model"
)

// ErrUnitNotFound is returned by FindUnit when no unit matches
var ErrUnitNotFound = errors.New("unit not found")

// Load discovers every project below root and reads its documents
func Load(ctx context.Context, root string) (*model.Codebase, error) {
	logger := logging.New("workspace")

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace path: %w", err)
	}

	projects, err := finder.FindProjects(root)
	if err != nil {
		return nil, fmt.Errorf("finding projects in %s: %w", root, err)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", finder.ProjectExt, root)
	}

	var units []*model.Unit
	var docs []*model.Document
	for _, projectPath := range projects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		unit, unitDocs, err := loadUnit(root, projectPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded unit", "unit", string(unit.ID), "name", unit.Name,
			"documents", len(unitDocs), "references", len(unit.References))
		units = append(units, unit)
		docs = append(docs, unitDocs...)
	}

	logger.Info("loaded workspace", "root", root, "units", len(units), "documents", len(docs))
	return model.NewCodebase(root, units, docs), nil
}

func loadUnit(root, projectPath string) (*model.Unit, []*model.Document, error) {
	data, err := os.ReadFile(projectPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading project: %w", err)
	}
	project, err := ParseProject(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", projectPath, err)
	}

	projectDir := filepath.Dir(projectPath)
	unit := &model.Unit{
		ID:      model.UnitID(relSlash(root, projectPath)),
		Name:    project.AssemblyName,
		Path:    projectPath,
		Friends: project.Friends,
	}
	if unit.Name == "" {
		unit.Name = strings.TrimSuffix(filepath.Base(projectPath), filepath.Ext(projectPath))
	}

	for _, ref := range project.References {
		target := filepath.Join(projectDir, filepath.FromSlash(ref))
		unit.References = append(unit.References, model.UnitID(relSlash(root, target)))
	}

	files, err := finder.FindSourceFiles(projectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("finding sources of %s: %w", unit.ID, err)
	}

	var docs []*model.Document
	for _, f := range files {
		if project.IsRemoved(relSlash(projectDir, f)) {
			continue
		}
		text, err := os.ReadFile(f)
		if err != nil {
			return nil, nil, fmt.Errorf("reading source: %w", err)
		}
		doc := model.NewDocument(model.DocumentID(relSlash(root, f)), unit.ID, f, text)
		unit.Documents = append(unit.Documents, doc.ID)
		docs = append(docs, doc)
	}
	return unit, docs, nil
}

func relSlash(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Save writes every document of cb whose text differs from base and
// returns the IDs written.
func Save(cb, base *model.Codebase) ([]model.DocumentID, error) {
	var written []model.DocumentID
	for _, doc := range cb.ChangedDocuments(base) {
		mode := os.FileMode(0o644)
		if info, err := os.Stat(doc.Path); err == nil {
			mode = info.Mode().Perm()
		}
		if err := os.WriteFile(doc.Path, doc.Text, mode); err != nil {
			return written, fmt.Errorf("writing %s: %w", doc.ID, err)
		}
		logging.Debug("wrote document", "document", string(doc.ID))
		written = append(written, doc.ID)
	}
	return written, nil
}

// FindUnit looks a unit up by assembly name, unit ID or project path
func FindUnit(cb *model.Codebase, query string) (*model.Unit, error) {
	if u, ok := cb.UnitByName(query); ok {
		return u, nil
	}
	if u, ok := cb.Unit(model.UnitID(filepath.ToSlash(query))); ok {
		return u, nil
	}

	abs := query
	if !filepath.IsAbs(abs) {
		if wd, err := os.Getwd(); err == nil {
			abs = filepath.Join(wd, query)
		}
	}
	for _, u := range cb.Units() {
		if filepath.Clean(u.Path) == filepath.Clean(abs) {
			return u, nil
		}
	}
	for _, u := range cb.Units() {
		if strings.EqualFold(u.Name, query) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, query)
}
