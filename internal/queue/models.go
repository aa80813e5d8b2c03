package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"polyvox/internal/compile"
)

// Status represents the lifecycle of a queued job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusBlocked   Status = "blocked"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// CancelReason is the message set when a user cancels a workflow.
const CancelReason = "cancelled by user"

// DaemonStopReason is the message set when running jobs are failed because
// the daemon shut down mid-execution.
const DaemonStopReason = "daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusBlocked,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status can no longer change.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Item is one queued job persisted in SQLite. The full compiled job rides in
// ConfigJSON; the flat columns mirror the fields queries filter and sort on.
type Item struct {
	ID              int64
	WorkflowID      string
	JobType         compile.JobType
	ChainRole       compile.ChainRole
	Status          Status
	ProjectDir      string
	InputPath       string
	InputExists     bool
	ConfigJSON      string
	OutputPath      string
	ErrorMessage    string
	BlockedReason   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time
}

// Job decodes the compiled job this item carries.
func (i *Item) Job() (compile.Job, error) {
	var job compile.Job
	if err := json.Unmarshal([]byte(i.ConfigJSON), &job); err != nil {
		return compile.Job{}, fmt.Errorf("decode job config: %w", err)
	}
	return job, nil
}

// SetJob re-encodes a compiled job into the item, keeping the mirrored
// columns in sync.
func (i *Item) SetJob(job compile.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job config: %w", err)
	}
	i.ConfigJSON = string(data)
	i.JobType = job.Type
	i.ChainRole = job.ChainRole
	i.InputPath = job.InputPath
	i.InputExists = job.InputExists
	i.OutputPath = job.OutputPath()
	return nil
}

// SetProgress updates the progress pair.
func (i *Item) SetProgress(message string, percent float64) {
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetFailed marks the item as failed with the given message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.LastHeartbeat = nil
}

// HealthSummary aggregates queue counts per lifecycle state.
type HealthSummary struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Blocked   int `json:"blocked"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	SchemaVersion    string `json:"schema_version"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalItems       int    `json:"total_items"`
	Error            string `json:"error,omitempty"`
}
