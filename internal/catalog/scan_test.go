package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("epub"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanMissingDirectoriesYieldEmptyInventory(t *testing.T) {
	snap, err := Scan(filepath.Join(t.TempDir(), "nonexistent"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Artifacts) != 0 {
		t.Fatalf("expected empty inventory, got %d artifacts", len(snap.Artifacts))
	}
}

func TestScanClassifiesByConvention(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, OriginalPath(dir))
	writeFile(t, ExportedPath(dir))
	writeFile(t, CleanedPath(dir))
	writeFile(t, SimplifiedPath(dir))
	writeFile(t, TranslationPath(dir, "de"))
	writeFile(t, TranslationPath(dir, "fr"))
	// Files outside the conventions are ignored.
	writeFile(t, filepath.Join(SourceDir(dir), "notes.txt"))
	writeFile(t, filepath.Join(TranslateDir(dir), "deu.epub"))
	writeFile(t, filepath.Join(TranslateDir(dir), "sentence_pairs_de.json"))

	snap, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snap.Artifacts) != 6 {
		t.Fatalf("expected 6 artifacts, got %d: %+v", len(snap.Artifacts), snap.Artifacts)
	}

	if _, ok := snap.Lookup(StageSource, FileOriginal); !ok {
		t.Fatal("missing original artifact")
	}
	if _, ok := snap.Lookup(StageCleanup, FileSimplified); !ok {
		t.Fatal("missing simplified artifact")
	}
	art, ok := snap.Translation("de")
	if !ok {
		t.Fatal("missing de translation")
	}
	if art.Language != "de" || art.Path != TranslationPath(dir, "de") {
		t.Fatalf("unexpected translation artifact: %+v", art)
	}
}

func TestScanFingerprintChangesWithInventory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, OriginalPath(dir))

	first, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := first.Validate()
	if err != nil || !ok {
		t.Fatalf("expected snapshot to validate, ok=%v err=%v", ok, err)
	}

	writeFile(t, CleanedPath(dir))
	ok, err = first.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected stale snapshot after inventory change")
	}
}

func TestRemoveArtifactCascadesTranslation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, TranslationPath(dir, "de"))
	writeFile(t, SentencePairsPath(dir, "de"))
	writeFile(t, filepath.Join(SessionDir(dir, "de"), "0001.wav"))

	snap, err := Scan(dir)
	if err != nil {
		t.Fatal(err)
	}
	art, ok := snap.Translation("de")
	if !ok {
		t.Fatal("missing translation artifact")
	}

	if err := RemoveArtifact(dir, art); err != nil {
		t.Fatalf("RemoveArtifact: %v", err)
	}
	for _, path := range []string{art.Path, SentencePairsPath(dir, "de"), SessionDir(dir, "de")} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed", path)
		}
	}
}

func TestInitProjectCreatesLayout(t *testing.T) {
	root := t.TempDir()
	project, err := InitProject(root, "alice-in-wonderland")
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	for _, dir := range []string{
		SourceDir(project.RootDir),
		CleanupDir(project.RootDir),
		TranslateDir(project.RootDir),
		TTSSessionsDir(project.RootDir),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}

	projects, err := ListProjects(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].ID != "alice-in-wonderland" {
		t.Fatalf("unexpected projects: %+v", projects)
	}
}
