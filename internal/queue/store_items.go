package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"polyvox/internal/compile"
)

// Enqueue inserts every job of a compiled plan in plan order. Placeholders
// enter blocked; everything else enters pending.
func (s *Store) Enqueue(ctx context.Context, plan *compile.Plan) ([]*Item, error) {
	if plan == nil || len(plan.Jobs) == 0 {
		return nil, errors.New("plan has no jobs")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	ids := make([]int64, 0, len(plan.Jobs))
	for _, job := range plan.Jobs {
		item := &Item{}
		if err := item.SetJob(job); err != nil {
			return nil, err
		}
		status := StatusPending
		var blockedReason any
		switch {
		case job.Placeholder:
			status = StatusBlocked
			blockedReason = fmt.Sprintf("waiting for chain %s", blockerRole(job.ChainRole))
		case job.Type == compile.JobVideo && !job.InputExists:
			// The assembled audiobook does not exist yet; the video job
			// unblocks when the assembly of its workflow completes.
			status = StatusBlocked
			blockedReason = "waiting for assembled audiobook"
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (
                workflow_id, job_type, chain_role, status, project_dir,
                input_path, input_exists, config_json, output_path,
                blocked_reason, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.WorkflowID,
			string(job.Type),
			string(job.ChainRole),
			status,
			job.ProjectDir,
			nullableString(item.InputPath),
			boolToInt(item.InputExists),
			item.ConfigJSON,
			nullableString(item.OutputPath),
			blockedReason,
			timestamp,
			timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("insert job: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enqueue: %w", err)
	}

	items := make([]*Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// blockerRole names the upstream completion a placeholder waits for.
func blockerRole(role compile.ChainRole) string {
	switch role {
	case compile.ChainPlaceholderTarget:
		return "source synthesis"
	case compile.ChainPlaceholderAssembly:
		return "synthesis completion"
	default:
		return string(role)
	}
}

// GetByID fetches a job by identifier. A missing id returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM jobs WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return item, nil
}

// NextPending returns the oldest pending job, or nil when the queue is idle.
func (s *Store) NextPending(ctx context.Context) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM jobs WHERE status = ? ORDER BY id LIMIT 1`, StatusPending)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return item, nil
}

// ListByWorkflow returns every job of a workflow in insertion order.
func (s *Store) ListByWorkflow(ctx context.Context, workflowID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM jobs WHERE workflow_id = ? ORDER BY id`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list workflow jobs: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// List returns jobs filtered by status, or every job when no statuses are given.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectItems(rows)
}

// FindChainJob returns a workflow's job with the given chain role, or nil.
func (s *Store) FindChainJob(ctx context.Context, workflowID string, role compile.ChainRole) (*Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM jobs WHERE workflow_id = ? AND chain_role = ? ORDER BY id LIMIT 1`,
		workflowID, string(role))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chain job: %w", err)
	}
	return item, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs
         SET job_type = ?, chain_role = ?, status = ?, input_path = ?,
             input_exists = ?, config_json = ?, output_path = ?,
             error_message = ?, blocked_reason = ?, progress_percent = ?,
             progress_message = ?, updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		string(item.JobType),
		string(item.ChainRole),
		item.Status,
		nullableString(item.InputPath),
		boolToInt(item.InputExists),
		item.ConfigJSON,
		nullableString(item.OutputPath),
		nullableString(item.ErrorMessage),
		nullableString(item.BlockedReason),
		item.ProgressPercent,
		nullableString(item.ProgressMessage),
		item.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(item.LastHeartbeat),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdateHeartbeat stamps a running job as alive.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`, now, now, id)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// Clear removes all jobs and bindings.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chain_bindings`); err != nil {
		return 0, fmt.Errorf("clear bindings: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes completed and cancelled jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE status IN (?, ?)`, StatusCompleted, StatusCancelled)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

const itemColumns = "id, workflow_id, job_type, chain_role, status, project_dir, input_path, input_exists, config_json, output_path, error_message, blocked_reason, progress_percent, progress_message, created_at, updated_at, last_heartbeat"

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id              int64
		workflowID      string
		jobType         string
		chainRole       string
		statusStr       string
		projectDir      string
		inputPath       sql.NullString
		inputExists     sql.NullInt64
		configJSON      string
		outputPath      sql.NullString
		errorMessage    sql.NullString
		blockedReason   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
		heartbeatRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&workflowID,
		&jobType,
		&chainRole,
		&statusStr,
		&projectDir,
		&inputPath,
		&inputExists,
		&configJSON,
		&outputPath,
		&errorMessage,
		&blockedReason,
		&progressPercent,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		WorkflowID:      workflowID,
		JobType:         compile.JobType(jobType),
		ChainRole:       compile.ChainRole(chainRole),
		Status:          Status(statusStr),
		ProjectDir:      projectDir,
		InputPath:       inputPath.String,
		InputExists:     inputExists.Int64 != 0,
		ConfigJSON:      configJSON,
		OutputPath:      outputPath.String,
		ErrorMessage:    errorMessage.String,
		BlockedReason:   blockedReason.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		item.UpdatedAt = updated
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			item.LastHeartbeat = &heartbeat
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
