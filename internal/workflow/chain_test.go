package workflow

import (
	"context"
	"testing"

	"polyvox/internal/compile"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/testsupport"
)

// pairedPlan mirrors what the compiler emits when both assembly languages
// synthesize fresh: source carries the target config, the target and the
// assembly start as blocked placeholders, video waits on the assembly output.
func pairedPlan(workflowID, projectDir string) *compile.Plan {
	asmOutput := projectDir + "/stages/04-assembly/en-de.m4b"
	return &compile.Plan{
		WorkflowID: workflowID,
		ProjectDir: projectDir,
		Jobs: []compile.Job{
			{
				Type:        compile.JobTTS,
				WorkflowID:  workflowID,
				ProjectDir:  projectDir,
				InputPath:   projectDir + "/source/exported.epub",
				InputExists: true,
				ChainRole:   compile.ChainSource,
				TTS: &compile.TTSJob{
					Language:   "en",
					Voice:      "sam",
					Speed:      1.0,
					SessionDir: projectDir + "/stages/03-tts/sessions/en",
				},
				Chain: &compile.ChainPayload{
					Target: &compile.TTSJob{
						Language:   "de",
						Voice:      "anna",
						Speed:      0.9,
						SessionDir: projectDir + "/stages/03-tts/sessions/de",
					},
					TargetInput: projectDir + "/stages/02-translate/de.epub",
				},
			},
			{
				Type:        compile.JobTTS,
				WorkflowID:  workflowID,
				ProjectDir:  projectDir,
				ChainRole:   compile.ChainPlaceholderTarget,
				Placeholder: true,
				TTS:         &compile.TTSJob{Language: "de"},
			},
			{
				Type:        compile.JobAssembly,
				WorkflowID:  workflowID,
				ProjectDir:  projectDir,
				ChainRole:   compile.ChainPlaceholderAssembly,
				Placeholder: true,
				Assembly: &compile.AssemblyJob{
					SourceLanguage: "en",
					TargetLanguage: "de",
					OutputPath:     asmOutput,
				},
			},
			{
				Type:       compile.JobVideo,
				WorkflowID: workflowID,
				ProjectDir: projectDir,
				InputPath:  asmOutput,
				Video: &compile.VideoJob{
					OutputPath: projectDir + "/stages/05-video/en-de.mp4",
				},
			},
		},
	}
}

// soloPlan mirrors what the compiler emits when only one assembly language
// synthesizes fresh: the solo job carries the assembly config with the
// cached side pre-filled, and no assembly job exists until it completes.
func soloPlan(workflowID, projectDir string) *compile.Plan {
	return &compile.Plan{
		WorkflowID: workflowID,
		ProjectDir: projectDir,
		Jobs: []compile.Job{{
			Type:        compile.JobTTS,
			WorkflowID:  workflowID,
			ProjectDir:  projectDir,
			InputPath:   projectDir + "/stages/02-translate/de.epub",
			InputExists: true,
			ChainRole:   compile.ChainSolo,
			TTS: &compile.TTSJob{
				Language:   "de",
				SessionDir: projectDir + "/stages/03-tts/sessions/de",
			},
			Chain: &compile.ChainPayload{
				Assembly: &compile.AssemblyJob{
					SourceLanguage:   "en",
					TargetLanguage:   "de",
					SourceSessionDir: projectDir + "/stages/03-tts/sessions/en",
					OutputPath:       projectDir + "/stages/04-assembly/en-de.m4b",
				},
			},
		}},
	}
}

// completingHandler finishes every job and fills its output path the way the
// real handlers do.
type completingHandler struct{ stubHandler }

func newCompletingHandler() *completingHandler {
	h := &completingHandler{}
	h.execute = func(_ context.Context, item *queue.Item) error {
		job, err := item.Job()
		if err != nil {
			return err
		}
		if out := job.OutputPath(); out != "" {
			item.OutputPath = out
		}
		item.Status = queue.StatusCompleted
		return nil
	}
	return h
}

func drainQueue(t *testing.T, manager *Manager, store *queue.Store, maxSteps int) {
	t.Helper()

	ctx := context.Background()
	for step := 0; step < maxSteps; step++ {
		item, err := store.NextPending(ctx)
		if err != nil {
			t.Fatalf("NextPending: %v", err)
		}
		if item == nil {
			return
		}
		if err := manager.processItem(ctx, item); err != nil {
			t.Fatalf("processItem step %d (%s): %v", step, item.JobType, err)
		}
	}
	t.Fatalf("queue not drained after %d steps", maxSteps)
}

func TestPairedChainRunsToCompletion(t *testing.T) {
	handler := newCompletingHandler()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManager(cfg, store, logging.NewNop(), &recordingNotifier{}, HandlerSet{
		TTS:      handler,
		Assembly: handler,
		Video:    handler,
	})
	ctx := context.Background()

	projectDir := "/projects/demo"
	items, err := store.Enqueue(ctx, pairedPlan("wf-1", projectDir))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Step 1: only the source synthesis is runnable.
	source, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if source.ChainRole != compile.ChainSource {
		t.Fatalf("first job role = %s, want source", source.ChainRole)
	}
	if err := manager.processItem(ctx, source); err != nil {
		t.Fatalf("processItem source: %v", err)
	}

	// The placeholder target is now an executable synthesis job carrying
	// the configuration the source brought along.
	target, err := store.GetByID(ctx, items[1].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if target.Status != queue.StatusPending {
		t.Fatalf("target status = %s, want pending", target.Status)
	}
	tjob, err := target.Job()
	if err != nil {
		t.Fatalf("target Job: %v", err)
	}
	if tjob.Placeholder {
		t.Fatal("target still a placeholder after binding")
	}
	if tjob.TTS.Voice != "anna" || tjob.TTS.Speed != 0.9 {
		t.Fatalf("carried config lost: %+v", tjob.TTS)
	}
	if tjob.InputPath != projectDir+"/stages/02-translate/de.epub" {
		t.Fatalf("target input = %q", tjob.InputPath)
	}

	// The assembly keeps waiting: only its source side is bound.
	assembly, err := store.GetByID(ctx, items[2].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if assembly.Status != queue.StatusBlocked {
		t.Fatalf("assembly status = %s, want blocked", assembly.Status)
	}

	// Step 2 onward: target, then assembly, then video.
	drainQueue(t, manager, store, 4)

	workflowItems, err := store.ListByWorkflow(ctx, "wf-1")
	if err != nil {
		t.Fatalf("ListByWorkflow: %v", err)
	}
	for _, it := range workflowItems {
		if it.Status != queue.StatusCompleted {
			t.Fatalf("%s job ended %s, want completed", it.JobType, it.Status)
		}
	}

	final, err := store.GetByID(ctx, items[2].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	fjob, err := final.Job()
	if err != nil {
		t.Fatalf("assembly Job: %v", err)
	}
	if fjob.Assembly.SourceSessionDir == "" || fjob.Assembly.TargetSessionDir == "" {
		t.Fatalf("assembly sides not bound: %+v", fjob.Assembly)
	}
}

func TestSoloChainMaterializesAssembly(t *testing.T) {
	handler := newCompletingHandler()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManager(cfg, store, logging.NewNop(), &recordingNotifier{}, HandlerSet{
		TTS:      handler,
		Assembly: handler,
	})
	ctx := context.Background()

	projectDir := "/projects/demo"
	if _, err := store.Enqueue(ctx, soloPlan("wf-1", projectDir)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	drainQueue(t, manager, store, 3)

	workflowItems, err := store.ListByWorkflow(ctx, "wf-1")
	if err != nil {
		t.Fatalf("ListByWorkflow: %v", err)
	}
	if len(workflowItems) != 2 {
		t.Fatalf("expected materialized assembly job, have %d items", len(workflowItems))
	}
	asm := workflowItems[1]
	if asm.JobType != compile.JobAssembly {
		t.Fatalf("second job type = %s, want assembly", asm.JobType)
	}
	if asm.Status != queue.StatusCompleted {
		t.Fatalf("assembly status = %s, want completed", asm.Status)
	}
	ajob, err := asm.Job()
	if err != nil {
		t.Fatalf("assembly Job: %v", err)
	}
	if ajob.Assembly.SourceSessionDir == "" || ajob.Assembly.TargetSessionDir == "" {
		t.Fatalf("assembly sides incomplete: %+v", ajob.Assembly)
	}
}

func TestCancelledWorkflowIgnoresLateCompletion(t *testing.T) {
	handler := newCompletingHandler()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManager(cfg, store, logging.NewNop(), &recordingNotifier{}, HandlerSet{TTS: handler})
	ctx := context.Background()

	items, err := store.Enqueue(ctx, pairedPlan("wf-1", "/projects/demo"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	source, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	// The workflow is cancelled while the source runs.
	if _, err := store.CancelWorkflow(ctx, "wf-1"); err != nil {
		t.Fatalf("CancelWorkflow: %v", err)
	}
	if err := manager.processItem(ctx, source); err != nil {
		t.Fatalf("processItem: %v", err)
	}

	target, err := store.GetByID(ctx, items[1].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if target.Status != queue.StatusCancelled {
		t.Fatalf("target status = %s, want cancelled", target.Status)
	}
}

func TestCancelledWorkflowIgnoresLateSoloCompletion(t *testing.T) {
	handler := newCompletingHandler()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManager(cfg, store, logging.NewNop(), &recordingNotifier{}, HandlerSet{
		TTS:      handler,
		Assembly: handler,
	})
	ctx := context.Background()

	if _, err := store.Enqueue(ctx, soloPlan("wf-1", "/projects/demo")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	solo, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	// The workflow is cancelled while the solo synthesis runs. The solo job
	// itself is already claimed, so cancellation touches no row; the marker
	// alone must stop the assembly from materializing.
	if _, err := store.CancelWorkflow(ctx, "wf-1"); err != nil {
		t.Fatalf("CancelWorkflow: %v", err)
	}
	cancelled, err := store.WorkflowCancelled(ctx, "wf-1")
	if err != nil {
		t.Fatalf("WorkflowCancelled: %v", err)
	}
	if !cancelled {
		t.Fatal("cancellation marker not recorded")
	}

	if err := manager.processItem(ctx, solo); err != nil {
		t.Fatalf("processItem: %v", err)
	}

	workflowItems, err := store.ListByWorkflow(ctx, "wf-1")
	if err != nil {
		t.Fatalf("ListByWorkflow: %v", err)
	}
	if len(workflowItems) != 1 {
		t.Fatalf("late solo completion materialized work: %d items", len(workflowItems))
	}
	if workflowItems[0].JobType != compile.JobTTS {
		t.Fatalf("unexpected job type %s", workflowItems[0].JobType)
	}
}
