package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ApplyBinding records a chain binding for a workflow. It returns false when
// the same binding was already applied, which callers treat as a duplicate
// completion event.
func (s *Store) ApplyBinding(ctx context.Context, workflowID, bindingKey string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chain_bindings (workflow_id, chain_role, applied_at) VALUES (?, ?, ?)`,
		workflowID, bindingKey, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("apply binding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("binding rows affected: %w", err)
	}
	return affected > 0, nil
}

// cancelMarker is recorded in chain_bindings when a workflow is cancelled.
// The marker outlives the job rows, so completion events from jobs that were
// still running at cancellation time can be recognized and ignored even when
// the cancellation itself touched no waiting job.
const cancelMarker = "workflow-cancelled"

// CancelWorkflow cancels every pending and blocked job of a workflow and
// records the cancellation marker. Running jobs finish; their completion
// events are ignored afterwards via WorkflowCancelled.
func (s *Store) CancelWorkflow(ctx context.Context, workflowID string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO chain_bindings (workflow_id, chain_role, applied_at) VALUES (?, ?, ?)`,
		workflowID, cancelMarker, now); err != nil {
		return 0, fmt.Errorf("record cancellation: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, blocked_reason = NULL, updated_at = ?
         WHERE workflow_id = ? AND status IN (?, ?)`,
		StatusCancelled, CancelReason, now, workflowID, StatusPending, StatusBlocked)
	if err != nil {
		return 0, fmt.Errorf("cancel workflow: %w", err)
	}
	return res.RowsAffected()
}

// WorkflowCancelled reports whether CancelWorkflow was invoked for the
// workflow.
func (s *Store) WorkflowCancelled(ctx context.Context, workflowID string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM chain_bindings WHERE workflow_id = ? AND chain_role = ?`,
		workflowID, cancelMarker).Scan(&count); err != nil {
		return false, fmt.Errorf("workflow cancelled: %w", err)
	}
	return count > 0, nil
}

// StallWorkflow annotates a workflow's blocked jobs after an upstream
// failure. The jobs stay blocked rather than failed: the failure belongs to
// the upstream job, and a resubmission can still pick the work up.
func (s *Store) StallWorkflow(ctx context.Context, workflowID, reason string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET blocked_reason = ?, updated_at = ? WHERE workflow_id = ? AND status = ?`,
		reason, now, workflowID, StatusBlocked)
	if err != nil {
		return 0, fmt.Errorf("stall workflow: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseDependents unblocks jobs of a workflow that were waiting for a file
// another job has now produced. Chain placeholders are not touched; they
// unblock through bindings instead.
func (s *Store) ReleaseDependents(ctx context.Context, workflowID, producedPath string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs
         SET status = ?, blocked_reason = NULL, input_exists = 1, updated_at = ?
         WHERE workflow_id = ? AND status = ? AND chain_role = '' AND input_path = ?`,
		StatusPending, now, workflowID, StatusBlocked, producedPath)
	if err != nil {
		return 0, fmt.Errorf("release dependents: %w", err)
	}
	return res.RowsAffected()
}

// ResetStale returns running jobs whose heartbeat went quiet back to
// pending so the next poll can retry them.
func (s *Store) ResetStale(ctx context.Context, timeout time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-timeout).Format(time.RFC3339Nano)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs
         SET status = ?, progress_message = 'worker heartbeat lost', last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		StatusPending, now, StatusRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stale: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed returns failed jobs to pending. With ids it retries only
// those jobs; without, every failed job.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE jobs
         SET status = ?, error_message = NULL, progress_message = NULL, progress_percent = 0, updated_at = ?
         WHERE status = ?`
	args := []any{StatusPending, now, StatusFailed}
	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		for i, id := range ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND id IN (%s)", strings.Join(placeholders, ", "))
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed: %w", err)
	}
	return res.RowsAffected()
}

// FailRunning fails every running job, used during daemon shutdown.
func (s *Store) FailRunning(ctx context.Context, reason string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status = ?`,
		StatusFailed, reason, now, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("fail running: %w", err)
	}
	return res.RowsAffected()
}
