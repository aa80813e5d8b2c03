// Package assembly interleaves two finished synthesis sessions into one
// bilingual audiobook.
package assembly

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
	"polyvox/internal/services/ffmpeg"
	"polyvox/internal/sessions"
	"polyvox/internal/stage"
	"polyvox/internal/wizard"
)

// Handler executes assembly jobs.
type Handler struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client ffmpeg.Client
}

// New constructs an assembly handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, client ffmpeg.Client) *Handler {
	if client == nil {
		client = ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Assembly.FFmpegBinary))
	}
	return &Handler{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "assembly"),
		client: client,
	}
}

// Prepare validates that both sessions are present and complete.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	asm := job.Assembly
	if asm == nil {
		return services.Wrap(services.ErrValidation, "assembly", "prepare", "job carries no assembly config", nil)
	}
	if asm.SourceSessionDir == "" || asm.TargetSessionDir == "" {
		return services.Wrap(services.ErrValidation, "assembly", "prepare",
			"session directories not bound yet", nil)
	}
	for _, dir := range []string{asm.SourceSessionDir, asm.TargetSessionDir} {
		if !sessions.IsComplete(dir) {
			return services.Wrap(services.ErrValidation, "assembly", "prepare",
				fmt.Sprintf("session %s is incomplete", dir), nil)
		}
	}
	item.SetProgress(fmt.Sprintf("assembling %s/%s", asm.SourceLanguage, asm.TargetLanguage), 0)
	return nil
}

// Execute runs the interleaved concat through ffmpeg.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	asm := job.Assembly
	if err := os.MkdirAll(filepath.Dir(asm.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "assembly", "create output dir", asm.OutputPath, err)
	}

	pattern := ffmpeg.PatternSourceFirst
	if asm.Pattern == wizard.PatternTargetFirst {
		pattern = ffmpeg.PatternTargetFirst
	}
	req := ffmpeg.AssembleRequest{
		SourceSessionDir: asm.SourceSessionDir,
		TargetSessionDir: asm.TargetSessionDir,
		Pattern:          pattern,
		PauseMs:          asm.PauseMs,
		OutputPath:       asm.OutputPath,
	}
	err = h.client.Assemble(ctx, req, func(update ffmpeg.ProgressUpdate) {
		item.SetProgress(fmt.Sprintf("assembled %.0fs", update.Seconds), item.ProgressPercent)
		copy := *item
		if updateErr := h.store.Update(ctx, &copy); updateErr != nil {
			h.logger.Debug("progress update failed", logging.Error(updateErr))
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "assembly", "interleave sessions", asm.OutputPath, err)
	}
	if _, statErr := os.Stat(asm.OutputPath); statErr != nil {
		return services.Wrap(services.ErrExternalTool, "assembly", "verify output",
			"ffmpeg reported success but wrote no file", statErr)
	}

	h.logger.Info("audiobook assembled",
		logging.String("source", asm.SourceLanguage),
		logging.String("target", asm.TargetLanguage),
		logging.String("output", asm.OutputPath),
	)
	item.Status = queue.StatusCompleted
	item.OutputPath = asm.OutputPath
	item.SetProgress("assembly finished", 100)
	return nil
}

// HealthCheck verifies ffmpeg is invocable.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("assembly", err.Error())
	}
	return stage.Healthy("assembly")
}

var _ stage.Handler = (*Handler)(nil)
