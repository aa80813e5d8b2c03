// Package video renders an assembled audiobook into a video file with a
// still background, suitable for platforms that only accept video uploads.
package video

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
	"polyvox/internal/stage"
)

// Handler executes video jobs.
type Handler struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	client ffmpeg.Client
}

// New constructs a video handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, client ffmpeg.Client) *Handler {
	if client == nil {
		client = ffmpeg.NewCLI(ffmpeg.WithBinary(cfg.Assembly.FFmpegBinary))
	}
	return &Handler{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "video"),
		client: client,
	}
}

// Prepare checks the assembled audiobook exists. The input is produced by
// the assembly job of the same workflow, so a missing file usually means the
// upstream job failed.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	if job.Video == nil {
		return services.Wrap(services.ErrValidation, "video", "prepare", "job carries no video config", nil)
	}
	if err := stage.RequireInput("video", job.InputPath); err != nil {
		return err
	}
	if job.Video.Background != "" {
		if _, err := os.Stat(job.Video.Background); err != nil {
			return services.Wrap(services.ErrNotFound, "video", "prepare",
				"background image "+job.Video.Background, err)
		}
	}
	item.SetProgress("video rendering started", 0)
	return nil
}

// Execute renders the video through ffmpeg.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	vid := job.Video
	if err := os.MkdirAll(filepath.Dir(vid.OutputPath), 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "video", "create output dir", vid.OutputPath, err)
	}

	req := ffmpeg.VideoRequest{
		AudioPath:  job.InputPath,
		Background: vid.Background,
		OutputPath: vid.OutputPath,
	}
	err = h.client.RenderVideo(ctx, req, func(update ffmpeg.ProgressUpdate) {
		item.SetProgress(fmt.Sprintf("rendered %.0fs", update.Seconds), item.ProgressPercent)
		copy := *item
		if updateErr := h.store.Update(ctx, &copy); updateErr != nil {
			h.logger.Debug("progress update failed", logging.Error(updateErr))
		}
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "video", "render", vid.OutputPath, err)
	}
	if _, statErr := os.Stat(vid.OutputPath); statErr != nil {
		return services.Wrap(services.ErrExternalTool, "video", "verify output",
			"ffmpeg reported success but wrote no file", statErr)
	}

	h.logger.Info("video rendered", logging.String("output", vid.OutputPath))
	item.Status = queue.StatusCompleted
	item.OutputPath = vid.OutputPath
	item.SetProgress("video finished", 100)
	return nil
}

// HealthCheck verifies ffmpeg is invocable.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.client.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("video", err.Error())
	}
	return stage.Healthy("video")
}

var _ stage.Handler = (*Handler)(nil)
