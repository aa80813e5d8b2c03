package main

import (
	"log/slog"
	"path/filepath"

	"polyvox/internal/assembly"
	"polyvox/internal/cleanup"
	"polyvox/internal/config"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/synthesis"
	"polyvox/internal/translate"
	"polyvox/internal/video"
	"polyvox/internal/workflow"
)

// buildHandlerSet wires the five pipeline stages with their default
// external clients. Each constructor falls back to the configured
// binary or server when the client argument is nil.
func buildHandlerSet(cfg *config.Config, store *queue.Store, logger *slog.Logger) workflow.HandlerSet {
	return workflow.HandlerSet{
		Cleanup:   cleanup.New(cfg, store, logger, nil),
		Translate: translate.New(cfg, store, logger, nil),
		TTS:       synthesis.New(cfg, store, logger, nil, nil),
		Assembly:  assembly.New(cfg, store, logger, nil),
		Video:     video.New(cfg, store, logger, nil),
	}
}

func loggingOptions(cfg *config.Config) logging.Options {
	if cfg == nil {
		return logging.Options{}
	}
	opts := logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Paths.LogDir != "" {
		opts.OutputPaths = []string{"stdout", filepath.Join(cfg.Paths.LogDir, "polyvoxd.log")}
	}
	return opts
}
