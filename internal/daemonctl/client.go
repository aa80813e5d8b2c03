package daemonctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"polyvox/internal/api"
)

// ErrDaemonNotRunning marks an unreachable daemon API.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the given bind address, e.g. "127.0.0.1:7519".
func NewClient(addr string) *Client {
	return &Client{
		baseURL: "http://" + strings.TrimSpace(addr),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Ping reports whether the daemon API answers at all. A degraded daemon
// (healthz 503) still counts as running.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	defer resp.Body.Close()
	return nil
}

// Status fetches the daemon status summary.
func (c *Client) Status(ctx context.Context) (api.StatusView, error) {
	var view api.StatusView
	err := c.getJSON(ctx, "/api/status", &view)
	return view, err
}

// Queue lists queue jobs, optionally filtered by status names.
func (c *Client) Queue(ctx context.Context, statuses []string) ([]api.ItemView, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		path += "?status=" + url.QueryEscape(strings.Join(statuses, ","))
	}
	var body struct {
		Jobs []api.ItemView `json:"jobs"`
	}
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}
	return body.Jobs, nil
}

// Workflow fetches one workflow's jobs and aggregate counts.
func (c *Client) Workflow(ctx context.Context, workflowID string) (api.WorkflowView, error) {
	var view api.WorkflowView
	err := c.getJSON(ctx, "/api/workflows/"+url.PathEscape(workflowID), &view)
	return view, err
}

// CancelWorkflow cancels every waiting job of a workflow and returns the
// number of jobs cancelled.
func (c *Client) CancelWorkflow(ctx context.Context, workflowID string) (int64, error) {
	var body struct {
		Cancelled int64 `json:"cancelled"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/workflows/"+url.PathEscape(workflowID)+"/cancel", &body)
	return body.Cancelled, err
}

// ClearCompleted removes completed jobs and returns the number removed.
func (c *Client) ClearCompleted(ctx context.Context) (int64, error) {
	var body struct {
		Removed int64 `json:"removed"`
	}
	err := c.doJSON(ctx, http.MethodDelete, "/api/queue/completed", &body)
	return body.Removed, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("daemon api: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
