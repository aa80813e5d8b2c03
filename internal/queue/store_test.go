package queue_test

import (
	"context"
	"testing"
	"time"

	"polyvox/internal/compile"
	"polyvox/internal/queue"
	"polyvox/internal/testsupport"
)

func chainPlan(workflowID string) *compile.Plan {
	return &compile.Plan{
		WorkflowID: workflowID,
		ProjectDir: "/projects/demo",
		Jobs: []compile.Job{
			{
				Type:        compile.JobTranslate,
				WorkflowID:  workflowID,
				ProjectDir:  "/projects/demo",
				InputPath:   "/projects/demo/source/exported.epub",
				InputExists: true,
				Translate: &compile.TranslateJob{
					Language:   "de",
					OutputPath: "/projects/demo/stages/02-translate/de.epub",
					PairsPath:  "/projects/demo/stages/02-translate/sentence_pairs_de.json",
				},
			},
			{
				Type:       compile.JobTTS,
				WorkflowID: workflowID,
				ProjectDir: "/projects/demo",
				InputPath:  "/projects/demo/source/exported.epub",
				ChainRole:  compile.ChainSource,
				TTS:        &compile.TTSJob{Language: "en", Voice: "sam", Speed: 1.0, SessionDir: "/sessions/en"},
				Chain: &compile.ChainPayload{
					Target:      &compile.TTSJob{Language: "de", Voice: "anna", Speed: 1.0, SessionDir: "/sessions/de"},
					TargetInput: "/projects/demo/stages/02-translate/de.epub",
				},
			},
			{
				Type:        compile.JobTTS,
				WorkflowID:  workflowID,
				ProjectDir:  "/projects/demo",
				ChainRole:   compile.ChainPlaceholderTarget,
				Placeholder: true,
				TTS:         &compile.TTSJob{Language: "de"},
			},
			{
				Type:        compile.JobAssembly,
				WorkflowID:  workflowID,
				ProjectDir:  "/projects/demo",
				ChainRole:   compile.ChainPlaceholderAssembly,
				Placeholder: true,
				Assembly: &compile.AssemblyJob{
					SourceLanguage: "en",
					TargetLanguage: "de",
					OutputPath:     "/projects/demo/stages/04-assembly/en-de.m4b",
				},
			},
		},
	}
}

func TestEnqueueBlocksPlaceholders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	items, err := store.Enqueue(ctx, chainPlan("wf-1"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}

	statuses := map[compile.ChainRole]queue.Status{}
	for _, item := range items {
		statuses[item.ChainRole] = item.Status
	}
	if statuses[compile.ChainSource] != queue.StatusPending {
		t.Fatalf("source job status = %s", statuses[compile.ChainSource])
	}
	if statuses[compile.ChainPlaceholderTarget] != queue.StatusBlocked {
		t.Fatalf("placeholder target status = %s", statuses[compile.ChainPlaceholderTarget])
	}
	if statuses[compile.ChainPlaceholderAssembly] != queue.StatusBlocked {
		t.Fatalf("placeholder assembly status = %s", statuses[compile.ChainPlaceholderAssembly])
	}

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.JobType != compile.JobTranslate {
		t.Fatalf("next pending = %+v, want the translate job", next)
	}
}

func TestJobRoundTripsThroughConfigJSON(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	items, err := store.Enqueue(ctx, chainPlan("wf-1"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	source, err := store.FindChainJob(ctx, "wf-1", compile.ChainSource)
	if err != nil {
		t.Fatalf("FindChainJob: %v", err)
	}
	if source == nil {
		t.Fatalf("source job missing from %d items", len(items))
	}
	job, err := source.Job()
	if err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.Chain == nil || job.Chain.Target == nil || job.Chain.Target.Voice != "anna" {
		t.Fatalf("chain payload lost in round trip: %+v", job.Chain)
	}
}

func TestApplyBindingOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, err := store.ApplyBinding(ctx, "wf-1", "source")
	if err != nil {
		t.Fatalf("ApplyBinding: %v", err)
	}
	if !first {
		t.Fatal("first binding must apply")
	}
	second, err := store.ApplyBinding(ctx, "wf-1", "source")
	if err != nil {
		t.Fatalf("ApplyBinding repeat: %v", err)
	}
	if second {
		t.Fatal("duplicate binding must be rejected")
	}

	// Bindings are scoped per workflow.
	other, err := store.ApplyBinding(ctx, "wf-2", "source")
	if err != nil {
		t.Fatalf("ApplyBinding other workflow: %v", err)
	}
	if !other {
		t.Fatal("a different workflow's binding must apply")
	}
}

func TestCancelWorkflowLeavesRunningAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	items, err := store.Enqueue(ctx, chainPlan("wf-1"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	running := items[0]
	running.Status = queue.StatusRunning
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update: %v", err)
	}

	affected, err := store.CancelWorkflow(ctx, "wf-1")
	if err != nil {
		t.Fatalf("CancelWorkflow: %v", err)
	}
	if affected != 3 {
		t.Fatalf("cancelled %d jobs, want 3", affected)
	}

	fetched, err := store.GetByID(ctx, running.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusRunning {
		t.Fatalf("running job status = %s, must be untouched", fetched.Status)
	}

	blocked, err := store.FindChainJob(ctx, "wf-1", compile.ChainPlaceholderAssembly)
	if err != nil {
		t.Fatalf("FindChainJob: %v", err)
	}
	if blocked.Status != queue.StatusCancelled {
		t.Fatalf("placeholder status = %s, want cancelled", blocked.Status)
	}
}

func TestStallWorkflowKeepsJobsBlocked(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Enqueue(ctx, chainPlan("wf-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	affected, err := store.StallWorkflow(ctx, "wf-1", "source synthesis failed")
	if err != nil {
		t.Fatalf("StallWorkflow: %v", err)
	}
	if affected != 2 {
		t.Fatalf("stalled %d jobs, want 2", affected)
	}

	item, err := store.FindChainJob(ctx, "wf-1", compile.ChainPlaceholderTarget)
	if err != nil {
		t.Fatalf("FindChainJob: %v", err)
	}
	if item.Status != queue.StatusBlocked {
		t.Fatalf("status = %s, want blocked", item.Status)
	}
	if item.BlockedReason != "source synthesis failed" {
		t.Fatalf("blocked reason = %q", item.BlockedReason)
	}
}

func TestResetStaleReturnsQuietJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	items, err := store.Enqueue(ctx, chainPlan("wf-1"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	stale := items[0]
	stale.Status = queue.StatusRunning
	old := time.Now().UTC().Add(-time.Hour)
	stale.LastHeartbeat = &old
	if err := store.Update(ctx, stale); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fresh := items[1]
	fresh.Status = queue.StatusRunning
	if err := store.Update(ctx, fresh); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := store.UpdateHeartbeat(ctx, fresh.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	affected, err := store.ResetStale(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("ResetStale: %v", err)
	}
	if affected != 1 {
		t.Fatalf("reset %d jobs, want 1", affected)
	}

	reset, err := store.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reset.Status != queue.StatusPending {
		t.Fatalf("stale job status = %s, want pending", reset.Status)
	}
	alive, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if alive.Status != queue.StatusRunning {
		t.Fatalf("fresh job status = %s, want running", alive.Status)
	}
}

func TestHealthCountsStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.Enqueue(ctx, chainPlan("wf-1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	summary, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if summary.Total != 4 || summary.Pending != 2 || summary.Blocked != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestEnqueueBlocksVideoUntilAssemblyOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	plan := chainPlan("wf-1")
	plan.Jobs = append(plan.Jobs, compile.Job{
		Type:       compile.JobVideo,
		WorkflowID: "wf-1",
		ProjectDir: "/projects/demo",
		InputPath:  "/projects/demo/stages/04-assembly/en-de.m4b",
		Video: &compile.VideoJob{
			OutputPath: "/projects/demo/stages/05-video/en-de.mp4",
		},
	})

	ctx := context.Background()
	items, err := store.Enqueue(ctx, plan)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	video := items[len(items)-1]
	if video.Status != queue.StatusBlocked {
		t.Fatalf("video status = %s, want blocked", video.Status)
	}
	if video.BlockedReason == "" {
		t.Fatal("video should carry a blocked reason")
	}

	released, err := store.ReleaseDependents(ctx, "wf-1", "/projects/demo/stages/04-assembly/en-de.m4b")
	if err != nil {
		t.Fatalf("ReleaseDependents: %v", err)
	}
	if released != 1 {
		t.Fatalf("released = %d, want 1", released)
	}
	got, err := store.GetByID(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != queue.StatusPending || got.BlockedReason != "" {
		t.Fatalf("video after release = %s (%q)", got.Status, got.BlockedReason)
	}
	if !got.InputExists {
		t.Fatal("released video should trust its input")
	}

	// The chain placeholders wait on bindings, not files.
	assembly, err := store.FindChainJob(ctx, "wf-1", compile.ChainPlaceholderAssembly)
	if err != nil {
		t.Fatalf("FindChainJob: %v", err)
	}
	if assembly.Status != queue.StatusBlocked {
		t.Fatalf("placeholder assembly status = %s, want blocked", assembly.Status)
	}
}

func TestRetryFailedTargetsRequestedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	items, err := store.Enqueue(ctx, chainPlan("wf-retry"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	for _, item := range items[:2] {
		item.SetFailed("engine exploded")
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	updated, err := store.RetryFailed(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("retried %d jobs, want 1", updated)
	}

	first, err := store.GetByID(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if first.Status != queue.StatusPending || first.ErrorMessage != "" {
		t.Fatalf("retried job = %s (%q), want clean pending", first.Status, first.ErrorMessage)
	}

	second, err := store.GetByID(ctx, items[1].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if second.Status != queue.StatusFailed {
		t.Fatalf("untargeted job status = %s, must stay failed", second.Status)
	}

	updated, err = store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed all: %v", err)
	}
	if updated != 1 {
		t.Fatalf("retried %d remaining jobs, want 1", updated)
	}
}
