package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/services"
	"polyvox/internal/stage"
)

func (m *Manager) processItem(ctx context.Context, item *queue.Item) error {
	handler := m.handlers.forType(item.JobType)
	if handler == nil {
		err := fmt.Errorf("no handler registered for job type %s", item.JobType)
		m.failItem(ctx, item, err)
		m.setLastError(err)
		return err
	}

	stageCtx := services.WithJobID(ctx, item.ID)
	stageCtx = services.WithWorkflowID(stageCtx, item.WorkflowID)
	stageCtx = services.WithStage(stageCtx, string(item.JobType))
	stageLogger := m.logger.With(
		logging.Int64(logging.FieldJobID, item.ID),
		logging.String(logging.FieldWorkflowID, item.WorkflowID),
		logging.String(logging.FieldStage, string(item.JobType)),
	)

	if err := m.transitionToRunning(stageCtx, item); err != nil {
		stageLogger.Error("failed to transition job to running", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, handler, item)
}

func (m *Manager) transitionToRunning(ctx context.Context, item *queue.Item) error {
	now := time.Now().UTC()
	item.Status = queue.StatusRunning
	item.ErrorMessage = ""
	item.BlockedReason = ""
	item.ProgressPercent = 0
	item.LastHeartbeat = &now
	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist running transition: %w", err)
	}
	m.setLastItem(item)
	return nil
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, handler stage.Handler, item *queue.Item) error {
	stageStart := time.Now()
	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldChainRole, string(item.ChainRole)),
		logging.String("project", filepath.Base(item.ProjectDir)),
	)

	if err := handler.Prepare(ctx, item); err != nil {
		m.handleStageFailure(ctx, stageLogger, item, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, handler, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stageLogger, item, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if item.Status == queue.StatusRunning || item.Status == "" {
		item.Status = queue.StatusCompleted
	}
	item.LastHeartbeat = nil
	if item.Status == queue.StatusCompleted && item.ProgressPercent < 100 {
		item.ProgressPercent = 100
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastItem(item)

	if item.Status == queue.StatusCompleted {
		if err := m.applyChainBindings(ctx, stageLogger, item); err != nil {
			stageLogger.Error("chain binding failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "chain_binding_failed"),
				logging.String(logging.FieldErrorHint, "resubmit the plan to rebuild chain state"),
			)
			m.setLastError(err)
		}
		m.notifyWorkflowProgress(ctx, item)
	}
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := handler.Execute(ctx, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) handleStageFailure(ctx context.Context, stageLogger *slog.Logger, item *queue.Item, stageErr error) {
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed without detail", item.JobType)
	}

	if services.IsRetryable(stageErr) {
		item.Status = queue.StatusPending
		item.ErrorMessage = message
		item.LastHeartbeat = nil
		stageLogger.Warn("stage failed, will retry",
			logging.Error(stageErr),
			logging.String(logging.FieldEventType, "stage_retry"),
		)
		if err := m.store.Update(ctx, item); err != nil {
			stageLogger.Error("failed to persist retry state", logging.Error(err))
		}
		m.setLastItem(item)
		m.wait(ctx, m.errorRetryInterval)
		return
	}

	item.SetFailed(message)
	stageLogger.Error("stage failed",
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	)
	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			stageLogger.Debug("daemon shutting down, could not persist stage failure")
		} else {
			stageLogger.Error("failed to persist stage failure", logging.Error(err))
		}
	}
	m.setLastItem(item)

	stalled, err := m.store.StallWorkflow(ctx, item.WorkflowID,
		fmt.Sprintf("upstream %s failed", item.JobType))
	if err != nil {
		stageLogger.Error("failed to stall downstream jobs", logging.Error(err))
	} else if stalled > 0 {
		stageLogger.Info("stalled downstream jobs", logging.Int64("count", stalled))
	}

	if notifyErr := m.notifier.NotifyError(ctx, stageErr, string(item.JobType)); notifyErr != nil {
		stageLogger.Debug("error notification failed", logging.Error(notifyErr))
	}
}

func (m *Manager) failItem(ctx context.Context, item *queue.Item, err error) {
	item.SetFailed(err.Error())
	if updateErr := m.store.Update(ctx, item); updateErr != nil {
		m.logger.Error("failed to persist job failure", logging.Error(updateErr))
	}
	m.setLastItem(item)
}

// notifyWorkflowProgress sends a completion notification when the last job of
// a workflow finished.
func (m *Manager) notifyWorkflowProgress(ctx context.Context, item *queue.Item) {
	items, err := m.store.ListByWorkflow(ctx, item.WorkflowID)
	if err != nil {
		m.logger.Debug("workflow listing failed", logging.Error(err))
		return
	}
	processed, failed := 0, 0
	var earliest, latest time.Time
	for _, it := range items {
		if !it.Status.IsTerminal() {
			return
		}
		switch it.Status {
		case queue.StatusCompleted:
			processed++
		case queue.StatusFailed:
			failed++
		}
		if earliest.IsZero() || it.CreatedAt.Before(earliest) {
			earliest = it.CreatedAt
		}
		if it.UpdatedAt.After(latest) {
			latest = it.UpdatedAt
		}
	}
	project := filepath.Base(item.ProjectDir)
	if err := m.notifier.NotifyWorkflowCompleted(ctx, project, processed, failed, latest.Sub(earliest)); err != nil {
		m.logger.Debug("workflow notification failed", logging.Error(err))
	}
}
