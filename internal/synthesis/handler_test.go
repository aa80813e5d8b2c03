package synthesis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"polyvox/internal/catalog"
	"polyvox/internal/compile"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/sentences"
	"polyvox/internal/services/textengine"
	"polyvox/internal/services/tts"
	"polyvox/internal/sessions"
	"polyvox/internal/testsupport"
)

type fakeSpeaker struct {
	requests []tts.Request
}

func (f *fakeSpeaker) Speak(_ context.Context, req tts.Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	return []byte("RIFF" + req.Text), nil
}

func (f *fakeSpeaker) HealthCheck(context.Context) error { return nil }

// fakeSegmenter satisfies textengine.Client and writes a fixed sentence list.
type fakeSegmenter struct {
	sentences []string
	segmented int
}

func (f *fakeSegmenter) Clean(context.Context, textengine.CleanRequest, func(textengine.ProgressUpdate)) error {
	return nil
}

func (f *fakeSegmenter) Translate(context.Context, textengine.TranslateRequest, func(textengine.ProgressUpdate)) error {
	return nil
}

func (f *fakeSegmenter) Segment(_ context.Context, _, outputPath string) error {
	f.segmented++
	data, err := json.Marshal(sentences.ListDocument{Sentences: f.sentences})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

func (f *fakeSegmenter) HealthCheck(context.Context) error { return nil }

func newItem(t *testing.T, projectDir, lang string) *queue.Item {
	t.Helper()

	job := compile.Job{
		Type:        compile.JobTTS,
		WorkflowID:  "wf-1",
		ProjectDir:  projectDir,
		InputPath:   filepath.Join(projectDir, "stages", "02-translate", lang+".epub"),
		InputExists: true,
		TTS: &compile.TTSJob{
			Language:   lang,
			Voice:      "anna",
			Speed:      1.0,
			SessionDir: catalog.SessionDir(projectDir, lang),
		},
	}
	item := &queue.Item{Status: queue.StatusRunning}
	if err := item.SetJob(job); err != nil {
		t.Fatalf("SetJob: %v", err)
	}
	return item
}

func writePairs(t *testing.T, projectDir string, doc sentences.PairsDocument) {
	t.Helper()

	path := catalog.SentencePairsPath(projectDir, doc.TargetLanguage)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal pairs: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write pairs: %v", err)
	}
}

func TestExecuteRendersPairsTargetSide(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	writePairs(t, projectDir, sentences.PairsDocument{
		SourceLanguage: "en",
		TargetLanguage: "de",
		Pairs: []sentences.Pair{
			{Source: "Hello.", Target: "Hallo."},
			{Source: "Goodbye.", Target: "Tschuess."},
		},
	})
	testsupport.WriteEPUB(t, catalog.TranslationPath(projectDir, "de"))

	speaker := &fakeSpeaker{}
	handler := New(cfg, store, logging.NewNop(), speaker, nil)
	item := newItem(t, projectDir, "de")

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(speaker.requests) != 2 {
		t.Fatalf("expected 2 synthesis requests, got %d", len(speaker.requests))
	}
	if speaker.requests[0].Text != "Hallo." || speaker.requests[1].Text != "Tschuess." {
		t.Fatalf("unexpected texts: %+v", speaker.requests)
	}
	if speaker.requests[0].Voice != "anna" {
		t.Fatalf("voice not forwarded: %+v", speaker.requests[0])
	}

	sessionDir := catalog.SessionDir(projectDir, "de")
	for idx := 1; idx <= 2; idx++ {
		if _, err := os.Stat(sessions.SentencePath(sessionDir, idx)); err != nil {
			t.Fatalf("sentence %d missing: %v", idx, err)
		}
	}
	if !sessions.IsComplete(sessionDir) {
		t.Fatal("session should be complete")
	}
	if item.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", item.Status)
	}
	if item.OutputPath != sessionDir {
		t.Fatalf("output path = %q, want %q", item.OutputPath, sessionDir)
	}
}

func TestExecuteSegmentsSourceLanguage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	job := compile.Job{
		Type:        compile.JobTTS,
		WorkflowID:  "wf-1",
		ProjectDir:  projectDir,
		InputPath:   catalog.ExportedPath(projectDir),
		InputExists: true,
		TTS: &compile.TTSJob{
			Language:   "en",
			SessionDir: catalog.SessionDir(projectDir, "en"),
		},
	}
	testsupport.WriteEPUB(t, job.InputPath)
	item := &queue.Item{Status: queue.StatusRunning}
	if err := item.SetJob(job); err != nil {
		t.Fatalf("SetJob: %v", err)
	}

	speaker := &fakeSpeaker{}
	segmenter := &fakeSegmenter{sentences: []string{"One.", "Two."}}
	handler := New(cfg, store, logging.NewNop(), speaker, segmenter)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if segmenter.segmented != 1 {
		t.Fatalf("segmenter invoked %d times, want 1", segmenter.segmented)
	}
	if len(speaker.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(speaker.requests))
	}
	if speaker.requests[0].Language != "en" {
		t.Fatalf("language not forwarded: %+v", speaker.requests[0])
	}
}

func TestExecuteSkipsFinishedSentencesOnResume(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	writePairs(t, projectDir, sentences.PairsDocument{
		SourceLanguage: "en",
		TargetLanguage: "de",
		Pairs: []sentences.Pair{
			{Source: "One.", Target: "Eins."},
			{Source: "Two.", Target: "Zwei."},
			{Source: "Three.", Target: "Drei."},
		},
	})
	testsupport.WriteEPUB(t, catalog.TranslationPath(projectDir, "de"))

	sessionDir := catalog.SessionDir(projectDir, "de")
	if err := sessions.WriteManifest(sessionDir, sessions.Manifest{
		Language:       "de",
		TotalSentences: 3,
	}); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	testsupport.WriteFile(t, sessions.SentencePath(sessionDir, 1), 32)

	speaker := &fakeSpeaker{}
	handler := New(cfg, store, logging.NewNop(), speaker, nil)
	item := newItem(t, projectDir, "de")

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(speaker.requests) != 2 {
		t.Fatalf("expected 2 requests after resume, got %d", len(speaker.requests))
	}
	if speaker.requests[0].Text != "Zwei." {
		t.Fatalf("resume started at wrong sentence: %+v", speaker.requests[0])
	}
}

func TestExecuteRejectsChangedSentenceCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	writePairs(t, projectDir, sentences.PairsDocument{
		SourceLanguage: "en",
		TargetLanguage: "de",
		Pairs:          []sentences.Pair{{Source: "One.", Target: "Eins."}},
	})
	testsupport.WriteEPUB(t, catalog.TranslationPath(projectDir, "de"))

	sessionDir := catalog.SessionDir(projectDir, "de")
	if err := sessions.WriteManifest(sessionDir, sessions.Manifest{
		Language:       "de",
		TotalSentences: 5,
	}); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	handler := New(cfg, store, logging.NewNop(), &fakeSpeaker{}, nil)
	item := newItem(t, projectDir, "de")

	err := handler.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error for changed sentence count")
	}
}

func TestPrepareRejectsUnboundPlaceholder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	projectDir := filepath.Join(cfg.Paths.ProjectsDir, "book")

	item := newItem(t, projectDir, "de")
	job, err := item.Job()
	if err != nil {
		t.Fatalf("Job: %v", err)
	}
	job.Placeholder = true
	if err := item.SetJob(job); err != nil {
		t.Fatalf("SetJob: %v", err)
	}

	handler := New(cfg, store, logging.NewNop(), &fakeSpeaker{}, nil)
	if err := handler.Prepare(context.Background(), item); err == nil {
		t.Fatal("expected placeholder rejection")
	}
}
