package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Project identifies one book project under the projects root.
type Project struct {
	ID      string
	RootDir string
}

// ListProjects returns the projects under root, sorted by ID. A missing root
// yields an empty list.
func ListProjects(root string) ([]Project, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]Project, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projects = append(projects, Project{
			ID:      entry.Name(),
			RootDir: filepath.Join(root, entry.Name()),
		})
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects, nil
}

// InitProject creates the fixed directory layout for a new project.
func InitProject(root, id string) (Project, error) {
	projectDir := filepath.Join(root, id)
	for _, dir := range []string{
		SourceDir(projectDir),
		CleanupDir(projectDir),
		TranslateDir(projectDir),
		TTSSessionsDir(projectDir),
		AssemblyDir(projectDir),
		VideoDir(projectDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Project{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return Project{ID: id, RootDir: projectDir}, nil
}

// RemoveArtifact deletes an artifact and cascades to anything derived from
// it: removing a translation also removes its sentence-pair cache and any
// synthesis session for that language.
func RemoveArtifact(projectDir string, artifact Artifact) error {
	if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	if artifact.Stage != StageTranslate || artifact.Language == "" {
		return nil
	}
	pairs := SentencePairsPath(projectDir, artifact.Language)
	if err := os.Remove(pairs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove sentence pairs: %w", err)
	}
	session := SessionDir(projectDir, artifact.Language)
	if err := os.RemoveAll(session); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
