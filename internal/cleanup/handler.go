// Package cleanup runs the text cleanup and simplification passes through
// the external text engine.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"polyvox/internal/config"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/services"
	"polyvox/internal/services/textengine"
	"polyvox/internal/stage"
)

// Handler executes cleanup jobs.
type Handler struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client textengine.Client
}

// New constructs a cleanup handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, client textengine.Client) *Handler {
	if client == nil {
		client = textengine.NewCLI(textengine.WithBinary(cfg.TextEngine.Binary))
	}
	return &Handler{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "cleanup"),
		client: client,
	}
}

// Prepare validates the job before execution.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	if job.Cleanup == nil {
		return services.Wrap(services.ErrValidation, "cleanup", "prepare", "job carries no cleanup config", nil)
	}
	if err := stage.RequireInput("cleanup", job.InputPath); err != nil {
		return err
	}
	label := "cleanup"
	if job.Cleanup.Simplify {
		label = "simplification"
	}
	item.SetProgress(label+" started", 0)
	return nil
}

// Execute runs the engine pass and verifies its output.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	cfg := job.Cleanup
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "cleanup", "create output dir", cfg.OutputPath, err)
	}

	req := textengine.CleanRequest{
		InputPath:  job.InputPath,
		OutputPath: cfg.OutputPath,
		Simplify:   cfg.Simplify,
		Provider:   cfg.Provider,
		Model:      cfg.Model,
	}
	err = h.client.Clean(ctx, req, func(update textengine.ProgressUpdate) {
		item.SetProgress(update.Message, update.Percent)
		copy := *item
		if updateErr := h.store.Update(ctx, &copy); updateErr != nil {
			h.logger.Debug("progress update failed", logging.Error(updateErr))
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "cleanup", "run engine", "", err)
	}

	if _, err := os.Stat(cfg.OutputPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "cleanup", "verify output",
			fmt.Sprintf("engine reported success but %s is missing", cfg.OutputPath), err)
	}
	item.Status = queue.StatusCompleted
	item.SetProgress("cleanup finished", 100)
	return nil
}

// HealthCheck verifies the external binary is runnable.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("cleanup", err.Error())
	}
	return stage.Healthy("cleanup")
}

var _ stage.Handler = (*Handler)(nil)
