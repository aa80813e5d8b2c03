// Package translate runs per-language translation passes through the
// external text engine, producing a translated EPUB and the aligned
// sentence pairs downstream stages consume.
package translate

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

// Handler executes translation jobs.
type Handler struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client textengine.Client
}

// New constructs a translation handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, client textengine.Client) *Handler {
	if client == nil {
		client = textengine.NewCLI(textengine.WithBinary(cfg.TextEngine.Binary))
	}
	return &Handler{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "translate"),
		client: client,
	}
}

// Prepare validates the job before execution.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	if job.Translate == nil || job.Translate.Language == "" {
		return services.Wrap(services.ErrValidation, "translate", "prepare", "job carries no target language", nil)
	}
	if err := stage.RequireInput("translate", job.InputPath); err != nil {
		return err
	}
	item.SetProgress(fmt.Sprintf("translating to %s", job.Translate.Language), 0)
	return nil
}

// Execute runs the engine pass and verifies both outputs.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	cfg := job.Translate
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "translate", "create output dir", cfg.OutputPath, err)
	}

	req := textengine.TranslateRequest{
		InputPath:  job.InputPath,
		OutputPath: cfg.OutputPath,
		PairsPath:  cfg.PairsPath,
		Language:   cfg.Language,
		Provider:   cfg.Provider,
		Model:      cfg.Model,
	}
	err = h.client.Translate(ctx, req, func(update textengine.ProgressUpdate) {
		item.SetProgress(update.Message, update.Percent)
		copy := *item
		if updateErr := h.store.Update(ctx, &copy); updateErr != nil {
			h.logger.Debug("progress update failed", logging.Error(updateErr))
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "translate", "run engine", cfg.Language, err)
	}

	for _, output := range []string{cfg.OutputPath, cfg.PairsPath} {
		if output == "" {
			continue
		}
		if _, err := os.Stat(output); err != nil {
			return services.Wrap(services.ErrExternalTool, "translate", "verify output",
				fmt.Sprintf("engine reported success but %s is missing", output), err)
		}
	}
	item.Status = queue.StatusCompleted
	item.SetProgress(fmt.Sprintf("translation to %s finished", cfg.Language), 100)
	return nil
}

// HealthCheck verifies the external binary is runnable.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("translate", err.Error())
	}
	return stage.Healthy("translate")
}

var _ stage.Handler = (*Handler)(nil)
