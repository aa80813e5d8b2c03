package translate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"polyvox/internal/catalog"
	"polyvox/internal/compile"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/services/textengine"
	"polyvox/internal/testsupport"
)

type fakeEngine struct {
	translated []textengine.TranslateRequest
	skipPairs  bool
}

func (f *fakeEngine) Clean(context.Context, textengine.CleanRequest, func(textengine.ProgressUpdate)) error {
	return nil
}

func (f *fakeEngine) Translate(_ context.Context, req textengine.TranslateRequest, progress func(textengine.ProgressUpdate)) error {
	f.translated = append(f.translated, req)
	if progress != nil {
		progress(textengine.ProgressUpdate{Percent: 100, Message: "done"})
	}
	if err := os.WriteFile(req.OutputPath, []byte("epub"), 0o644); err != nil {
		return err
	}
	if f.skipPairs || req.PairsPath == "" {
		return nil
	}
	return os.WriteFile(req.PairsPath, []byte("{}"), 0o644)
}

func (f *fakeEngine) Segment(context.Context, string, string) error { return nil }

func (f *fakeEngine) HealthCheck(context.Context) error { return nil }

func newItem(t *testing.T, projectDir, lang string) *queue.Item {
	t.Helper()

	item := &queue.Item{Status: queue.StatusRunning}
	err := item.SetJob(compile.Job{
		Type:        compile.JobTranslate,
		WorkflowID:  "wf-1",
		ProjectDir:  projectDir,
		InputPath:   catalog.CleanedPath(projectDir),
		InputExists: true,
		Translate: &compile.TranslateJob{
			Language:   lang,
			Provider:   "deepl",
			OutputPath: catalog.TranslationPath(projectDir, lang),
			PairsPath:  catalog.SentencePairsPath(projectDir, lang),
		},
	})
	if err != nil {
		t.Fatalf("SetJob: %v", err)
	}
	return item
}

func TestTranslateWritesPairsAlongsideEpub(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")
	testsupport.WriteEPUB(t, catalog.CleanedPath(projectDir))

	engine := &fakeEngine{}
	handler := New(cfg, store, logging.NewNop(), engine)
	item := newItem(t, projectDir, "de")

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(engine.translated) != 1 {
		t.Fatalf("expected one translate call, got %d", len(engine.translated))
	}
	req := engine.translated[0]
	if req.Language != "de" || req.Provider != "deepl" {
		t.Fatalf("engine config not forwarded: %+v", req)
	}
	if req.PairsPath != catalog.SentencePairsPath(projectDir, "de") {
		t.Fatalf("pairs path = %q", req.PairsPath)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", item.Status)
	}
}

func TestTranslateRejectsMissingPairs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")
	testsupport.WriteEPUB(t, catalog.CleanedPath(projectDir))

	engine := &fakeEngine{skipPairs: true}
	handler := New(cfg, store, logging.NewNop(), engine)
	item := newItem(t, projectDir, "de")

	if err := handler.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error when pairs file is missing")
	}
}

func TestTranslateRejectsMissingInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	handler := New(cfg, store, logging.NewNop(), &fakeEngine{})
	item := newItem(t, projectDir, "de")

	if err := handler.Prepare(context.Background(), item); err == nil {
		t.Fatal("expected missing input rejection")
	}
}
