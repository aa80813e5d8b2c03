package wizard

import (
	"polyvox/internal/resolve"
)

// Status is the tri-state lifecycle of a wizard stage.
type Status string

const (
	// StatusPending marks a stage the user has not visited yet. Pending
	// stages contribute no jobs, whatever their configuration holds.
	StatusPending Status = "pending"
	// StatusSkipped marks a stage the user explicitly opted out of.
	StatusSkipped Status = "skipped"
	// StatusCompleted marks a visited stage; it contributes jobs when its
	// configuration is actionable.
	StatusCompleted Status = "completed"
)

// StageKind names one phase of the production pipeline.
type StageKind string

const (
	StageCleanup   StageKind = "cleanup"
	StageTranslate StageKind = "translate"
	StageTTS       StageKind = "tts"
	StageAssembly  StageKind = "assembly"
	StageVideo     StageKind = "video"
)

// StageKinds lists the fixed stage set in pipeline order.
var StageKinds = []StageKind{StageCleanup, StageTranslate, StageTTS, StageAssembly, StageVideo}

// StageState tracks stage status. Skipped and completed are mutually
// exclusive by construction: every transition overwrites the whole status.
type StageState struct {
	Status Status
}

// MarkSkipped records an explicit user opt-out.
func (s *StageState) MarkSkipped() {
	s.Status = StatusSkipped
}

// MarkActive un-skips a stage when configuration makes it actionable again.
// Completed stages stay completed.
func (s *StageState) MarkActive() {
	if s.Status == StatusCompleted {
		return
	}
	s.Status = StatusPending
}

// MarkCompletedIfVisited promotes a pending stage to completed when the user
// leaves its wizard step. Skipped stages are untouched.
func (s *StageState) MarkCompletedIfVisited() {
	if s.Status == StatusPending {
		s.Status = StatusCompleted
	}
}

// Skipped reports the explicit opt-out state.
func (s StageState) Skipped() bool { return s.Status == StatusSkipped }

// Visited reports whether the stage participates in compilation.
func (s StageState) Visited() bool { return s.Status == StatusCompleted }

// CleanupConfig configures the text cleanup stage.
type CleanupConfig struct {
	StageState
	Enabled  bool // run the cleanup pass
	Simplify bool // run the simplification pass
	Provider string
	Model    string
	Source   string // source token, empty means "latest"
}

// Actionable reports whether the stage would produce at least one job.
func (c CleanupConfig) Actionable() bool { return c.Enabled || c.Simplify }

// TranslateConfig configures the translation stage.
type TranslateConfig struct {
	StageState
	Languages []string // normalized 2-letter target codes
	Provider  string
	Model     string
	Source    string
}

func (c TranslateConfig) Actionable() bool { return len(c.Languages) > 0 }

// TTSRow is one synthesis request.
type TTSRow struct {
	ID       string
	Language string
	Voice    string
	Speed    float64 // 0.5 to 2.0
}

// TTSConfig configures the speech synthesis stage.
type TTSConfig struct {
	StageState
	Rows   []TTSRow
	Source string
}

func (c TTSConfig) Actionable() bool { return len(c.Rows) > 0 }

// RowFor returns the synthesis row for a language, if configured.
func (c TTSConfig) RowFor(lang string) (TTSRow, bool) {
	for _, row := range c.Rows {
		if row.Language == lang {
			return row, true
		}
	}
	return TTSRow{}, false
}

// Pattern orders the two languages inside each assembled sentence pair.
type Pattern string

const (
	PatternSourceFirst Pattern = "source-first"
	PatternTargetFirst Pattern = "target-first"
)

// AssemblyConfig configures bilingual audio assembly.
type AssemblyConfig struct {
	StageState
	SourceLanguage string
	TargetLanguage string
	Pattern        Pattern
	PauseMs        int // silence between the pair's two sentences
}

func (c AssemblyConfig) Actionable() bool {
	return c.SourceLanguage != "" && c.TargetLanguage != ""
}

// VideoConfig configures the optional video render of the assembled audio.
type VideoConfig struct {
	StageState
	Enabled    bool
	Background string // still image path
}

func (c VideoConfig) Actionable() bool { return c.Enabled }

// Snapshot is one immutable view of every stage configuration, the sole
// input of plan compilation.
type Snapshot struct {
	ProjectDir     string
	SourceLanguage string
	Cleanup        CleanupConfig
	Translate      TranslateConfig
	TTS            TTSConfig
	Assembly       AssemblyConfig
	Video          VideoConfig
}

// SourceToken returns the configured token for a stage, defaulting to latest.
func sourceToken(token string) string {
	if token == "" {
		return resolve.TokenLatest
	}
	return token
}

// CleanupSource returns the cleanup stage's effective source token.
func (s Snapshot) CleanupSource() string { return sourceToken(s.Cleanup.Source) }

// TranslateSource returns the translate stage's effective source token.
func (s Snapshot) TranslateSource() string { return sourceToken(s.Translate.Source) }

// TTSSource returns the synthesis stage's effective source token.
func (s Snapshot) TTSSource() string { return sourceToken(s.TTS.Source) }
