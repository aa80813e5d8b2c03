package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"polyvox/internal/catalog"
	"polyvox/internal/language"
)

// ManifestName is the session metadata file written when synthesis starts.
const ManifestName = "session.json"

// Manifest records what a synthesis session was asked to produce.
type Manifest struct {
	Language       string    `json:"language"`
	Voice          string    `json:"voice"`
	Speed          float64   `json:"speed"`
	TotalSentences int       `json:"total_sentences"`
	SourceEpubPath string    `json:"source_epub_path"`
	CreatedAt      time.Time `json:"created_at"`
}

// Session describes one discovered per-language synthesis session.
type Session struct {
	Language      string
	SessionDir    string
	SentenceCount int
	Complete      bool
	CreatedAt     time.Time
}

// ResumeInfo reports how far an existing session progressed.
type ResumeInfo struct {
	CompletedSentences int
	TotalSentences     int
	Complete           bool
	SourceEpubPath     string
	Voice              string
	Speed              float64
}

// Scan discovers the synthesis sessions of a project. A missing sessions root
// yields an empty list. Directories without a readable manifest are skipped.
func Scan(projectDir string) ([]Session, error) {
	root := catalog.TTSSessionsDir(projectDir)
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan sessions: %w", err)
	}

	var found []Session
	for _, entry := range entries {
		if !entry.IsDir() || !language.IsValid(entry.Name()) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		manifest, err := readManifest(dir)
		if err != nil {
			continue
		}
		completed := countSentences(dir)
		found = append(found, Session{
			Language:      entry.Name(),
			SessionDir:    dir,
			SentenceCount: completed,
			Complete:      manifest.TotalSentences > 0 && completed >= manifest.TotalSentences,
			CreatedAt:     manifest.CreatedAt,
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Language < found[j].Language })
	return found, nil
}

// CheckResume inspects a session directory for partial progress.
func CheckResume(sessionDir string) (ResumeInfo, error) {
	manifest, err := readManifest(sessionDir)
	if err != nil {
		return ResumeInfo{}, err
	}
	completed := countSentences(sessionDir)
	return ResumeInfo{
		CompletedSentences: completed,
		TotalSentences:     manifest.TotalSentences,
		Complete:           manifest.TotalSentences > 0 && completed >= manifest.TotalSentences,
		SourceEpubPath:     manifest.SourceEpubPath,
		Voice:              manifest.Voice,
		Speed:              manifest.Speed,
	}, nil
}

// IsComplete reports whether the session at dir finished all sentences.
// Unreadable or absent sessions count as incomplete.
func IsComplete(sessionDir string) bool {
	info, err := CheckResume(sessionDir)
	return err == nil && info.Complete
}

// WriteManifest persists the session manifest, creating the directory.
func WriteManifest(sessionDir string, manifest Manifest) error {
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, ManifestName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// SentencePath returns the WAV path of the idx-th sentence (1-based).
func SentencePath(sessionDir string, idx int) string {
	return filepath.Join(sessionDir, fmt.Sprintf("%04d.wav", idx))
}

func readManifest(sessionDir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(sessionDir, ManifestName))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return manifest, nil
}

func countSentences(sessionDir string) int {
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".wav") {
			count++
		}
	}
	return count
}
