package api

import (
	"path/filepath"
	"time"

	"polyvox/internal/compile"
	"polyvox/internal/queue"
)

// ItemView is the JSON shape of one queue job.
type ItemView struct {
	ID              int64      `json:"id"`
	WorkflowID      string     `json:"workflow_id"`
	JobType         string     `json:"job_type"`
	ChainRole       string     `json:"chain_role,omitempty"`
	Status          string     `json:"status"`
	Project         string     `json:"project"`
	InputPath       string     `json:"input_path,omitempty"`
	OutputPath      string     `json:"output_path,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	BlockedReason   string     `json:"blocked_reason,omitempty"`
	ProgressPercent float64    `json:"progress_percent"`
	ProgressMessage string     `json:"progress_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastHeartbeat   *time.Time `json:"last_heartbeat,omitempty"`
}

// WorkflowView groups a workflow's jobs with aggregate counts.
type WorkflowView struct {
	WorkflowID string     `json:"workflow_id"`
	Project    string     `json:"project"`
	Total      int        `json:"total"`
	Visible    int        `json:"visible"`
	Completed  int        `json:"completed"`
	Failed     int        `json:"failed"`
	Jobs       []ItemView `json:"jobs"`
}

// StatusView is the /api/status response body.
type StatusView struct {
	Running bool                `json:"running"`
	Queue   queue.HealthSummary `json:"queue"`
}

// ItemViews converts queue items to their JSON view, preserving order.
func ItemViews(items []*queue.Item) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, itemView(item))
	}
	return views
}

func itemView(item *queue.Item) ItemView {
	return ItemView{
		ID:              item.ID,
		WorkflowID:      item.WorkflowID,
		JobType:         string(item.JobType),
		ChainRole:       string(item.ChainRole),
		Status:          string(item.Status),
		Project:         filepath.Base(item.ProjectDir),
		InputPath:       item.InputPath,
		OutputPath:      item.OutputPath,
		ErrorMessage:    item.ErrorMessage,
		BlockedReason:   item.BlockedReason,
		ProgressPercent: item.ProgressPercent,
		ProgressMessage: item.ProgressMessage,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
		LastHeartbeat:   item.LastHeartbeat,
	}
}

// NewWorkflowView aggregates a workflow's items into its JSON view.
func NewWorkflowView(workflowID string, items []*queue.Item) WorkflowView {
	view := WorkflowView{
		WorkflowID: workflowID,
		Jobs:       make([]ItemView, 0, len(items)),
	}
	for _, item := range items {
		if view.Project == "" {
			view.Project = filepath.Base(item.ProjectDir)
		}
		view.Total++
		// Placeholder assemblies are plumbing, not user-facing work.
		if item.ChainRole != compile.ChainPlaceholderAssembly {
			view.Visible++
		}
		switch item.Status {
		case queue.StatusCompleted:
			view.Completed++
		case queue.StatusFailed:
			view.Failed++
		}
		view.Jobs = append(view.Jobs, itemView(item))
	}
	return view
}
