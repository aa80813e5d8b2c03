package catalog

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"

	"polyvox/internal/language"
)

// Scan lists a project's stage directories and classifies every EPUB it
// finds. Missing directories yield an empty inventory, not an error; only
// genuine I/O failures propagate.
func Scan(projectDir string) (*Snapshot, error) {
	snap := &Snapshot{ProjectDir: projectDir}

	dirs := []struct {
		path  string
		stage Stage
	}{
		{SourceDir(projectDir), StageSource},
		{CleanupDir(projectDir), StageCleanup},
		{TranslateDir(projectDir), StageTranslate},
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir.path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("scan %s: %w", dir.path, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			artifact, ok := classify(dir.stage, entry.Name())
			if !ok {
				continue
			}
			artifact.Path = filepath.Join(dir.path, entry.Name())
			snap.Artifacts = append(snap.Artifacts, artifact)
		}
	}

	sort.Slice(snap.Artifacts, func(i, j int) bool {
		if snap.Artifacts[i].Stage != snap.Artifacts[j].Stage {
			return snap.Artifacts[i].Stage < snap.Artifacts[j].Stage
		}
		return snap.Artifacts[i].Filename < snap.Artifacts[j].Filename
	})
	snap.Fingerprint = fingerprint(snap.Artifacts)
	return snap, nil
}

// classify maps a filename to its artifact identity. Files not matching any
// convention are ignored, not errors.
func classify(stage Stage, name string) (Artifact, bool) {
	base, ok := strings.CutSuffix(name, ".epub")
	if !ok {
		return Artifact{}, false
	}
	switch stage {
	case StageSource:
		if base == FileOriginal || base == FileExported {
			return Artifact{Stage: StageSource, Filename: base}, true
		}
	case StageCleanup:
		if base == FileCleaned || base == FileSimplified {
			return Artifact{Stage: StageCleanup, Filename: base}, true
		}
	case StageTranslate:
		if language.IsValid(base) {
			return Artifact{Stage: StageTranslate, Filename: base, Language: base}, true
		}
	}
	return Artifact{}, false
}

// fingerprint digests the inventory so a compile can detect that the catalog
// changed between scan and emission.
func fingerprint(artifacts []Artifact) string {
	hasher := blake3.New()
	for _, a := range artifacts {
		fmt.Fprintf(hasher, "%s|%s|%s|%s\n", a.Stage, a.Filename, a.Language, a.Path)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// Validate re-scans the project and reports whether the snapshot still
// describes the directory contents.
func (s *Snapshot) Validate() (bool, error) {
	if s == nil {
		return false, errors.New("nil snapshot")
	}
	current, err := Scan(s.ProjectDir)
	if err != nil {
		return false, err
	}
	return current.Fingerprint == s.Fingerprint, nil
}
