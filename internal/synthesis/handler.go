// Package synthesis renders per-language speech sessions through the TTS
// server, one sentence per WAV file. Sessions resume at the first missing
// sentence, so an interrupted job re-run skips finished audio.
package synthesis

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"polyvox/internal/catalog"
	"polyvox/internal/compile"
	"polyvox/internal/config"
	"polyvox/internal/logging"
	"polyvox/internal/queue"
	"polyvox/internal/sentences"
	"polyvox/internal/services"
	"polyvox/internal/services/textengine"
	"polyvox/internal/services/tts"
	"polyvox/internal/sessions"
	"polyvox/internal/stage"
)

// Speaker is the subset of the TTS client the handler needs.
type Speaker interface {
	Speak(ctx context.Context, req tts.Request) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// Handler executes synthesis jobs.
type Handler struct {
	store     *queue.Store
	cfg       *config.Config
	logger    *slog.Logger
	speaker   Speaker
	segmenter textengine.Client
}

// New constructs a synthesis handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, speaker Speaker, segmenter textengine.Client) *Handler {
	if speaker == nil {
		speaker = tts.NewClient(tts.Config{
			BaseURL:        cfg.TTS.BaseURL,
			DefaultVoice:   cfg.TTS.DefaultVoice,
			DefaultSpeed:   cfg.TTS.DefaultSpeed,
			TimeoutSeconds: cfg.TTS.RequestTimeout,
		})
	}
	if segmenter == nil {
		segmenter = textengine.NewCLI(textengine.WithBinary(cfg.TextEngine.Binary))
	}
	return &Handler{
		store:     store,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "synthesis"),
		speaker:   speaker,
		segmenter: segmenter,
	}
}

// Prepare validates the job before execution.
func (h *Handler) Prepare(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	if job.TTS == nil || job.TTS.Language == "" {
		return services.Wrap(services.ErrValidation, "synthesis", "prepare", "job carries no language", nil)
	}
	if job.Placeholder {
		return services.Wrap(services.ErrValidation, "synthesis", "prepare",
			"placeholder job reached execution without binding", nil)
	}
	if err := stage.RequireInput("synthesis", job.InputPath); err != nil {
		return err
	}
	item.SetProgress(fmt.Sprintf("synthesizing %s", job.TTS.Language), 0)
	return nil
}

// Execute renders every sentence that is not on disk yet.
func (h *Handler) Execute(ctx context.Context, item *queue.Item) error {
	job, err := stage.DecodeJob(item)
	if err != nil {
		return err
	}
	cfg := job.TTS
	sessionDir := cfg.SessionDir
	if sessionDir == "" {
		sessionDir = catalog.SessionDir(job.ProjectDir, cfg.Language)
	}
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "synthesis", "create session dir", sessionDir, err)
	}

	texts, err := h.sentenceTexts(ctx, job.ProjectDir, cfg.Language, job.InputPath, sessionDir)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return services.Wrap(services.ErrValidation, "synthesis", "load sentences",
			"no sentences found for "+cfg.Language, nil)
	}

	if err := h.ensureManifest(sessionDir, job, len(texts)); err != nil {
		return err
	}

	rendered := 0
	for idx, text := range texts {
		if err := ctx.Err(); err != nil {
			return err
		}
		wavPath := sessions.SentencePath(sessionDir, idx+1)
		if _, err := os.Stat(wavPath); err == nil {
			continue
		}
		audio, err := h.speaker.Speak(ctx, tts.Request{
			Text:     text,
			Language: cfg.Language,
			Voice:    cfg.Voice,
			Speed:    cfg.Speed,
		})
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "synthesis", "render sentence",
				fmt.Sprintf("sentence %d of %d", idx+1, len(texts)), err)
		}
		if err := os.WriteFile(wavPath, audio, 0o644); err != nil {
			return services.Wrap(services.ErrTransient, "synthesis", "write sentence", wavPath, err)
		}
		rendered++
		percent := float64(idx+1) / float64(len(texts)) * 100
		item.SetProgress(fmt.Sprintf("sentence %d/%d", idx+1, len(texts)), percent)
		copy := *item
		if updateErr := h.store.Update(ctx, &copy); updateErr != nil {
			h.logger.Debug("progress update failed", logging.Error(updateErr))
		}
	}

	h.logger.Info("session finished",
		logging.String(logging.FieldLanguage, cfg.Language),
		logging.Int("sentences", len(texts)),
		logging.Int("rendered", rendered),
	)
	item.Status = queue.StatusCompleted
	item.SetProgress(fmt.Sprintf("%s session complete", cfg.Language), 100)
	item.OutputPath = sessionDir
	return nil
}

// sentenceTexts loads the sentence list for a language. A translated
// language reads its side of the aligned pairs; the source text is segmented
// through the text engine.
func (h *Handler) sentenceTexts(ctx context.Context, projectDir, lang, inputPath, sessionDir string) ([]string, error) {
	pairsPath := catalog.SentencePairsPath(projectDir, lang)
	if _, err := os.Stat(pairsPath); err == nil {
		doc, err := sentences.LoadPairs(pairsPath)
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "synthesis", "load pairs", pairsPath, err)
		}
		switch lang {
		case doc.TargetLanguage:
			return doc.TargetSide(), nil
		case doc.SourceLanguage:
			return doc.SourceSide(), nil
		}
	}

	listPath := filepath.Join(sessionDir, "sentences.json")
	if _, err := os.Stat(listPath); errors.Is(err, fs.ErrNotExist) {
		if err := h.segmenter.Segment(ctx, inputPath, listPath); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "synthesis", "segment text", inputPath, err)
		}
	}
	doc, err := sentences.LoadList(listPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "synthesis", "load sentences", listPath, err)
	}
	return doc.Sentences, nil
}

// ensureManifest writes the session manifest on first run and rejects a
// resume whose sentence count no longer matches.
func (h *Handler) ensureManifest(sessionDir string, job compile.Job, total int) error {
	info, err := sessions.CheckResume(sessionDir)
	if err == nil {
		if info.TotalSentences != total {
			return services.Wrap(services.ErrValidation, "synthesis", "resume session",
				fmt.Sprintf("session has %d sentences but input now has %d; remove %s to start over",
					info.TotalSentences, total, sessionDir), nil)
		}
		return nil
	}
	manifest := sessions.Manifest{
		Language:       job.TTS.Language,
		Voice:          job.TTS.Voice,
		Speed:          job.TTS.Speed,
		TotalSentences: total,
		SourceEpubPath: job.InputPath,
		CreatedAt:      time.Now().UTC(),
	}
	if err := sessions.WriteManifest(sessionDir, manifest); err != nil {
		return services.Wrap(services.ErrTransient, "synthesis", "write manifest", sessionDir, err)
	}
	return nil
}

// HealthCheck verifies the TTS server answers.
func (h *Handler) HealthCheck(ctx context.Context) stage.Health {
	if err := h.speaker.HealthCheck(ctx); err != nil {
		return stage.Unhealthy("synthesis", err.Error())
	}
	return stage.Healthy("synthesis")
}

var _ stage.Handler = (*Handler)(nil)
