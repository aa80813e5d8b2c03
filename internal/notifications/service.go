package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"polyvox/internal/config"
)

const userAgent = "Polyvox/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyWorkflowSubmitted(ctx context.Context, project string, jobs int) error
	NotifyStageCompleted(ctx context.Context, project, stage, detail string) error
	NotifyWorkflowCompleted(ctx context.Context, project string, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:       topic,
		client:         &http.Client{Timeout: timeout},
		workflowEvents: cfg.Notifications.Workflow,
		errorEvents:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint       string
	client         *http.Client
	workflowEvents bool
	errorEvents    bool
}

func (n *ntfyService) NotifyWorkflowSubmitted(ctx context.Context, project string, jobs int) error {
	if !n.workflowEvents {
		return nil
	}
	data := payload{
		title:   "Polyvox - Workflow Submitted",
		message: fmt.Sprintf("Queued %d jobs for %s", jobs, strings.TrimSpace(project)),
		tags:    []string{"polyvox", "workflow", "submitted"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStageCompleted(ctx context.Context, project, stage, detail string) error {
	if !n.workflowEvents {
		return nil
	}
	message := fmt.Sprintf("%s finished for %s", strings.TrimSpace(stage), strings.TrimSpace(project))
	if detail = strings.TrimSpace(detail); detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:   "Polyvox - Stage Complete",
		message: message,
		tags:    []string{"polyvox", "stage", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyWorkflowCompleted(ctx context.Context, project string, processed, failed int, duration time.Duration) error {
	if !n.workflowEvents {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if failed == 0 {
		title = "Polyvox - Workflow Complete"
		message = fmt.Sprintf("%s: %d jobs finished in %s", strings.TrimSpace(project), processed, duration)
	} else {
		title = "Polyvox - Workflow Complete (with errors)"
		message = fmt.Sprintf("%s: %d succeeded, %d failed in %s", strings.TrimSpace(project), processed, failed, duration)
	}

	data := payload{
		title:    title,
		message:  message,
		tags:     []string{"polyvox", "workflow", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" in ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Polyvox - Error",
		message:  builder.String(),
		tags:     []string{"polyvox", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Polyvox - Test",
		message:  "Notification system test",
		tags:     []string{"polyvox", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyWorkflowSubmitted(context.Context, string, int) error { return nil }
func (noopService) NotifyStageCompleted(context.Context, string, string, string) error {
	return nil
}
func (noopService) NotifyWorkflowCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
