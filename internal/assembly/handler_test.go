package assembly

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"polyvox/internal/catalog"
	"polyvox/internal/compile"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/services/ffmpeg"
	"polyvox/internal/sessions"
	"polyvox/internal/testsupport"
	"polyvox/internal/wizard"
)

type fakeFFmpeg struct {
	assembled []ffmpeg.AssembleRequest
	fail      error
}

func (f *fakeFFmpeg) Assemble(_ context.Context, req ffmpeg.AssembleRequest, progress func(ffmpeg.ProgressUpdate)) error {
	f.assembled = append(f.assembled, req)
	if f.fail != nil {
		return f.fail
	}
	if progress != nil {
		progress(ffmpeg.ProgressUpdate{Seconds: 12})
	}
	return os.WriteFile(req.OutputPath, []byte("m4b"), 0o644)
}

func (f *fakeFFmpeg) RenderVideo(context.Context, ffmpeg.VideoRequest, func(ffmpeg.ProgressUpdate)) error {
	return nil
}

func (f *fakeFFmpeg) HealthCheck(context.Context) error { return nil }

func seedSession(t *testing.T, dir string, count int) {
	t.Helper()

	if err := sessions.WriteManifest(dir, sessions.Manifest{TotalSentences: count}); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	for idx := 1; idx <= count; idx++ {
		testsupport.WriteFile(t, sessions.SentencePath(dir, idx), 32)
	}
}

func newItem(t *testing.T, projectDir string, asm *compile.AssemblyJob) *queue.Item {
	t.Helper()

	item := &queue.Item{Status: queue.StatusRunning}
	err := item.SetJob(compile.Job{
		Type:       compile.JobAssembly,
		WorkflowID: "wf-1",
		ProjectDir: projectDir,
		Assembly:   asm,
	})
	if err != nil {
		t.Fatalf("SetJob: %v", err)
	}
	return item
}

func TestAssemblyRunsCompleteSessions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	srcDir := catalog.SessionDir(projectDir, "en")
	tgtDir := catalog.SessionDir(projectDir, "de")
	seedSession(t, srcDir, 2)
	seedSession(t, tgtDir, 2)

	client := &fakeFFmpeg{}
	handler := New(cfg, store, logging.NewNop(), client)
	item := newItem(t, projectDir, &compile.AssemblyJob{
		SourceLanguage:   "en",
		TargetLanguage:   "de",
		Pattern:          wizard.PatternTargetFirst,
		PauseMs:          400,
		SourceSessionDir: srcDir,
		TargetSessionDir: tgtDir,
		OutputPath:       catalog.AssemblyOutputPath(projectDir, "en", "de"),
	})

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(client.assembled) != 1 {
		t.Fatalf("expected one assemble call, got %d", len(client.assembled))
	}
	req := client.assembled[0]
	if req.Pattern != ffmpeg.PatternTargetFirst {
		t.Fatalf("pattern = %q, want target-first", req.Pattern)
	}
	if req.PauseMs != 400 {
		t.Fatalf("pause = %d, want 400", req.PauseMs)
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", item.Status)
	}
	if item.OutputPath != req.OutputPath {
		t.Fatalf("output path = %q, want %q", item.OutputPath, req.OutputPath)
	}
}

func TestAssemblyRejectsIncompleteSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	srcDir := catalog.SessionDir(projectDir, "en")
	tgtDir := catalog.SessionDir(projectDir, "de")
	seedSession(t, srcDir, 2)
	if err := sessions.WriteManifest(tgtDir, sessions.Manifest{TotalSentences: 2}); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	testsupport.WriteFile(t, sessions.SentencePath(tgtDir, 1), 32)

	handler := New(cfg, store, logging.NewNop(), &fakeFFmpeg{})
	item := newItem(t, projectDir, &compile.AssemblyJob{
		SourceLanguage:   "en",
		TargetLanguage:   "de",
		Pattern:          wizard.PatternSourceFirst,
		SourceSessionDir: srcDir,
		TargetSessionDir: tgtDir,
		OutputPath:       catalog.AssemblyOutputPath(projectDir, "en", "de"),
	})

	if err := handler.Prepare(context.Background(), item); err == nil {
		t.Fatal("expected incomplete session rejection")
	}
}

func TestAssemblyRejectsUnboundSides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	handler := New(cfg, store, logging.NewNop(), &fakeFFmpeg{})
	item := newItem(t, projectDir, &compile.AssemblyJob{
		SourceLanguage: "en",
		TargetLanguage: "de",
		OutputPath:     catalog.AssemblyOutputPath(projectDir, "en", "de"),
	})

	if err := handler.Prepare(context.Background(), item); err == nil {
		t.Fatal("expected unbound sides rejection")
	}
}
