package finder

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

const (
	ProjectExt = ".csproj"
	SourceExt  = ".cs"
)

// skipDir reports whether a directory holds build output or tooling state
func skipDir(name string) bool {
	switch strings.ToLower(name) {
	case "bin", "obj", "node_modules", "packages":
		return true
	}
	return strings.HasPrefix(name, ".")
}

// FindProjects walks the workspace directory and returns all .csproj files,
// excluding build output and hidden directories.
func FindProjects(workspaceRoot string) ([]string, error) {
	var projects []string

	err := filepath.WalkDir(workspaceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != workspaceRoot && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.EqualFold(filepath.Ext(path), ProjectExt) {
			projects = append(projects, path)
		}
		return nil
	})

	slices.Sort(projects)
	return projects, err
}

// FindSourceFiles returns the .cs files below projectDir. Directories that
// contain a project of their own belong to that project and are skipped.
func FindSourceFiles(projectDir string) ([]string, error) {
	var sourceFiles []string

	err := filepath.WalkDir(projectDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == projectDir {
				return nil
			}
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			nested, err := hasProject(path)
			if err != nil {
				return err
			}
			if nested {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.EqualFold(filepath.Ext(path), SourceExt) {
			sourceFiles = append(sourceFiles, path)
		}
		return nil
	})

	slices.Sort(sourceFiles)
	return sourceFiles, err
}

func hasProject(dir string) (bool, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+ProjectExt))
	return len(matches) > 0, err
}
