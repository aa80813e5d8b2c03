package cleanup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"polyvox/internal/catalog"
	"polyvox/internal/compile"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/services"
	"polyvox/internal/services/textengine"
	"polyvox/internal/testsupport"
)

type fakeEngine struct {
	cleaned []textengine.CleanRequest
	fail    error
	silent  bool
}

func (f *fakeEngine) Clean(_ context.Context, req textengine.CleanRequest, progress func(textengine.ProgressUpdate)) error {
	f.cleaned = append(f.cleaned, req)
	if f.fail != nil {
		return f.fail
	}
	if progress != nil {
		progress(textengine.ProgressUpdate{Percent: 50, Message: "halfway"})
	}
	if f.silent {
		return nil
	}
	return os.WriteFile(req.OutputPath, []byte("epub"), 0o644)
}

func (f *fakeEngine) Translate(context.Context, textengine.TranslateRequest, func(textengine.ProgressUpdate)) error {
	return nil
}

func (f *fakeEngine) Segment(context.Context, string, string) error { return nil }

func (f *fakeEngine) HealthCheck(context.Context) error { return nil }

func newItem(t *testing.T, projectDir string, simplify bool) *queue.Item {
	t.Helper()

	outputPath := catalog.CleanedPath(projectDir)
	if simplify {
		outputPath = catalog.SimplifiedPath(projectDir)
	}
	item := &queue.Item{Status: queue.StatusRunning}
	err := item.SetJob(compile.Job{
		Type:        compile.JobCleanup,
		WorkflowID:  "wf-1",
		ProjectDir:  projectDir,
		InputPath:   catalog.ExportedPath(projectDir),
		InputExists: true,
		Cleanup: &compile.CleanupJob{
			Simplify:   simplify,
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			OutputPath: outputPath,
		},
	})
	if err != nil {
		t.Fatalf("SetJob: %v", err)
	}
	return item
}

func TestCleanupForwardsEngineConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")
	testsupport.WriteEPUB(t, catalog.ExportedPath(projectDir))

	engine := &fakeEngine{}
	handler := New(cfg, store, logging.NewNop(), engine)
	item := newItem(t, projectDir, false)

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(engine.cleaned) != 1 {
		t.Fatalf("expected one clean call, got %d", len(engine.cleaned))
	}
	req := engine.cleaned[0]
	if req.Simplify {
		t.Fatal("simplify should be off")
	}
	if req.Provider != "openai" || req.Model != "gpt-4o-mini" {
		t.Fatalf("engine config not forwarded: %+v", req)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", item.Status)
	}
}

func TestSimplifyUsesOwnOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")
	testsupport.WriteEPUB(t, catalog.ExportedPath(projectDir))

	engine := &fakeEngine{}
	handler := New(cfg, store, logging.NewNop(), engine)
	item := newItem(t, projectDir, true)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !engine.cleaned[0].Simplify {
		t.Fatal("simplify flag not forwarded")
	}
	if engine.cleaned[0].OutputPath != catalog.SimplifiedPath(projectDir) {
		t.Fatalf("output = %q, want simplified path", engine.cleaned[0].OutputPath)
	}
}

func TestCleanupSurfacesEngineFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")
	testsupport.WriteEPUB(t, catalog.ExportedPath(projectDir))

	engine := &fakeEngine{fail: errors.New("exit status 1")}
	handler := New(cfg, store, logging.NewNop(), engine)
	item := newItem(t, projectDir, false)

	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestCleanupRejectsSilentEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")
	testsupport.WriteEPUB(t, catalog.ExportedPath(projectDir))

	engine := &fakeEngine{silent: true}
	handler := New(cfg, store, logging.NewNop(), engine)
	item := newItem(t, projectDir, false)

	if err := handler.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error when engine wrote no output")
	}
}
