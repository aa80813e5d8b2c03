package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"polyvox/internal/compile"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
)

// Binding keys recorded in the queue database. Each may be applied at most
// once per workflow.
const (
	bindingTarget         = "target"
	bindingAssemblySource = "assembly-source"
	bindingAssemblyTarget = "assembly-target"
	bindingSoloAssembly   = "solo-assembly"
)

// applyChainBindings reacts to a completed job according to its chain role.
// A source completion activates the placeholder target and fills the
// assembly's source side; a target completion fills the other side; a solo
// completion materializes the deferred assembly job.
func (m *Manager) applyChainBindings(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	job, err := item.Job()
	if err != nil {
		return fmt.Errorf("decode completed job: %w", err)
	}

	// A cancelled workflow accepts no further events. Running jobs finish on
	// their own, but their completions must not bind placeholders, release
	// dependents, or materialize new work.
	cancelled, err := m.store.WorkflowCancelled(ctx, item.WorkflowID)
	if err != nil {
		return err
	}
	if cancelled {
		logger.Info("completion ignored, workflow cancelled",
			logging.String(logging.FieldEventType, "chain_event_ignored"),
		)
		return nil
	}

	switch job.ChainRole {
	case compile.ChainSource:
		if err := m.activateChainTarget(ctx, logger, item, job); err != nil {
			return err
		}
		return m.fillAssemblySide(ctx, logger, item, job, bindingAssemblySource)
	case compile.ChainTarget:
		return m.fillAssemblySide(ctx, logger, item, job, bindingAssemblyTarget)
	case compile.ChainSolo:
		return m.materializeSoloAssembly(ctx, logger, item, job)
	}

	if job.Type == compile.JobAssembly && item.OutputPath != "" {
		released, err := m.store.ReleaseDependents(ctx, item.WorkflowID, item.OutputPath)
		if err != nil {
			return err
		}
		if released > 0 {
			logger.Info("released jobs waiting on assembly output",
				logging.Int64("count", released),
				logging.String(logging.FieldEventType, "dependents_released"),
			)
		}
	}
	return nil
}

func (m *Manager) activateChainTarget(ctx context.Context, logger *slog.Logger, item *queue.Item, job compile.Job) error {
	applied, err := m.store.ApplyBinding(ctx, item.WorkflowID, bindingTarget)
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug("target binding already applied")
		return nil
	}

	placeholder, err := m.store.FindChainJob(ctx, item.WorkflowID, compile.ChainPlaceholderTarget)
	if err != nil {
		return err
	}
	if placeholder == nil {
		logger.Warn("no placeholder target found for chain source",
			logging.String(logging.FieldEventType, "chain_orphan"),
		)
		return nil
	}
	if placeholder.Status != queue.StatusBlocked {
		logger.Debug("placeholder target not blocked, skipping activation",
			logging.String("status", string(placeholder.Status)),
		)
		return nil
	}

	pjob, err := placeholder.Job()
	if err != nil {
		return fmt.Errorf("decode placeholder job: %w", err)
	}
	if job.Chain == nil {
		return fmt.Errorf("chain source %d carries no payload", item.ID)
	}
	bound, err := compile.BindTarget(pjob, *job.Chain)
	if err != nil {
		return fmt.Errorf("bind target: %w", err)
	}
	if err := placeholder.SetJob(bound); err != nil {
		return err
	}
	placeholder.Status = queue.StatusPending
	placeholder.BlockedReason = ""
	if err := m.store.Update(ctx, placeholder); err != nil {
		return err
	}
	logger.Info("activated chain target",
		logging.Int64("target_job_id", placeholder.ID),
		logging.String(logging.FieldLanguage, bound.TTS.Language),
		logging.String(logging.FieldEventType, "chain_target_activated"),
	)
	return nil
}

// fillAssemblySide writes one completed session directory into the workflow's
// placeholder assembly. When both sides are present the assembly unblocks.
func (m *Manager) fillAssemblySide(ctx context.Context, logger *slog.Logger, item *queue.Item, job compile.Job, bindingKey string) error {
	if job.TTS == nil {
		return nil
	}
	assembly, err := m.store.FindChainJob(ctx, item.WorkflowID, compile.ChainPlaceholderAssembly)
	if err != nil {
		return err
	}
	if assembly == nil || assembly.Status != queue.StatusBlocked {
		return nil
	}

	applied, err := m.store.ApplyBinding(ctx, item.WorkflowID, bindingKey)
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug("assembly binding already applied", logging.String("binding", bindingKey))
		return nil
	}

	ajob, err := assembly.Job()
	if err != nil {
		return fmt.Errorf("decode assembly job: %w", err)
	}
	sessionDir := job.TTS.SessionDir
	var bound compile.Job
	if bindingKey == bindingAssemblySource {
		bound, err = compile.BindAssemblySource(ajob, sessionDir)
	} else {
		bound, err = compile.BindAssemblyTarget(ajob, sessionDir)
	}
	if err != nil {
		return fmt.Errorf("bind assembly side: %w", err)
	}
	if err := assembly.SetJob(bound); err != nil {
		return err
	}
	if !bound.Placeholder {
		assembly.Status = queue.StatusPending
		assembly.BlockedReason = ""
		logger.Info("assembly job unblocked",
			logging.Int64("assembly_job_id", assembly.ID),
			logging.String(logging.FieldEventType, "chain_assembly_ready"),
		)
	}
	return m.store.Update(ctx, assembly)
}

// materializeSoloAssembly turns a completed solo synthesis into a runnable
// assembly job. The assembly was never enqueued at submission because its
// cached side was already known.
func (m *Manager) materializeSoloAssembly(ctx context.Context, logger *slog.Logger, item *queue.Item, job compile.Job) error {
	applied, err := m.store.ApplyBinding(ctx, item.WorkflowID, bindingSoloAssembly)
	if err != nil {
		return err
	}
	if !applied {
		logger.Debug("solo assembly already materialized")
		return nil
	}

	asmJob, err := compile.MaterializeAssembly(job)
	if err != nil {
		return fmt.Errorf("materialize assembly: %w", err)
	}
	plan := &compile.Plan{
		WorkflowID: item.WorkflowID,
		ProjectDir: item.ProjectDir,
		Jobs:       []compile.Job{asmJob},
	}
	items, err := m.store.Enqueue(ctx, plan)
	if err != nil {
		return fmt.Errorf("enqueue materialized assembly: %w", err)
	}
	logger.Info("materialized assembly job",
		logging.Int64("assembly_job_id", items[0].ID),
		logging.String(logging.FieldEventType, "chain_assembly_materialized"),
	)
	return nil
}
