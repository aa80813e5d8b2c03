package wizard

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"polyvox/internal/language"
)

// Speed bounds accepted for synthesis rows.
const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// ErrUnknownLanguage is returned for malformed or unrecognized language codes.
var ErrUnknownLanguage = errors.New("unknown language code")

// Session is the mutable wizard state for one project. All mutation goes
// through named operations so status transitions stay in one place.
type Session struct {
	snapshot Snapshot
}

// NewSession starts a wizard session for a project.
func NewSession(projectDir, sourceLanguage string) (*Session, error) {
	normalized := language.Normalize(sourceLanguage)
	if normalized == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, sourceLanguage)
	}
	return &Session{snapshot: Snapshot{
		ProjectDir:     projectDir,
		SourceLanguage: normalized,
		Cleanup:        CleanupConfig{StageState: StageState{Status: StatusPending}},
		Translate:      TranslateConfig{StageState: StageState{Status: StatusPending}},
		TTS:            TTSConfig{StageState: StageState{Status: StatusPending}},
		Assembly:       AssemblyConfig{StageState: StageState{Status: StatusPending}, Pattern: PatternSourceFirst},
		Video:          VideoConfig{StageState: StageState{Status: StatusPending}},
	}}, nil
}

// SetCleanupOptions toggles the cleanup sub-passes. Enabling either pass
// un-skips the stage.
func (s *Session) SetCleanupOptions(enabled, simplify bool) {
	s.snapshot.Cleanup.Enabled = enabled
	s.snapshot.Cleanup.Simplify = simplify
	if s.snapshot.Cleanup.Actionable() {
		s.snapshot.Cleanup.MarkActive()
	}
}

// SetCleanupEngine records the provider/model forwarded to the text engine.
func (s *Session) SetCleanupEngine(provider, model string) {
	s.snapshot.Cleanup.Provider = provider
	s.snapshot.Cleanup.Model = model
}

// SetTranslateLanguages replaces the target language set. A non-empty set
// un-skips the stage.
func (s *Session) SetTranslateLanguages(codes []string) error {
	normalized := language.NormalizeList(codes)
	if len(normalized) != len(codes) {
		return fmt.Errorf("%w in %v", ErrUnknownLanguage, codes)
	}
	s.snapshot.Translate.Languages = normalized
	if s.snapshot.Translate.Actionable() {
		s.snapshot.Translate.MarkActive()
	}
	return nil
}

// SetTranslateEngine records the provider/model forwarded to the text engine.
func (s *Session) SetTranslateEngine(provider, model string) {
	s.snapshot.Translate.Provider = provider
	s.snapshot.Translate.Model = model
}

// AddTTSRow appends a synthesis request and un-skips the stage.
func (s *Session) AddTTSRow(lang, voice string, speed float64) (TTSRow, error) {
	normalized := language.Normalize(lang)
	if normalized == "" {
		return TTSRow{}, fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	if speed < MinSpeed || speed > MaxSpeed {
		return TTSRow{}, fmt.Errorf("speed %v outside [%v, %v]", speed, MinSpeed, MaxSpeed)
	}
	row := TTSRow{ID: uuid.NewString(), Language: normalized, Voice: voice, Speed: speed}
	s.snapshot.TTS.Rows = append(s.snapshot.TTS.Rows, row)
	s.snapshot.TTS.MarkActive()
	return row, nil
}

// RemoveTTSRow deletes a synthesis request by identifier.
func (s *Session) RemoveTTSRow(id string) bool {
	rows := s.snapshot.TTS.Rows
	for i, row := range rows {
		if row.ID == id {
			s.snapshot.TTS.Rows = append(rows[:i:i], rows[i+1:]...)
			return true
		}
	}
	return false
}

// SetAssemblyPair configures the bilingual pair. A complete pair un-skips
// the stage.
func (s *Session) SetAssemblyPair(sourceLang, targetLang string, pattern Pattern, pauseMs int) error {
	src := language.Normalize(sourceLang)
	tgt := language.Normalize(targetLang)
	if src == "" || tgt == "" {
		return fmt.Errorf("%w: %q/%q", ErrUnknownLanguage, sourceLang, targetLang)
	}
	if src == tgt {
		return fmt.Errorf("assembly needs two distinct languages, got %q twice", src)
	}
	if pattern == "" {
		pattern = PatternSourceFirst
	}
	s.snapshot.Assembly.SourceLanguage = src
	s.snapshot.Assembly.TargetLanguage = tgt
	s.snapshot.Assembly.Pattern = pattern
	s.snapshot.Assembly.PauseMs = pauseMs
	s.snapshot.Assembly.MarkActive()
	return nil
}

// SetVideo toggles the optional video render. Enabling un-skips the stage.
func (s *Session) SetVideo(enabled bool, background string) {
	s.snapshot.Video.Enabled = enabled
	s.snapshot.Video.Background = background
	if enabled {
		s.snapshot.Video.MarkActive()
	}
}

// SetStageSource overrides the source token for a text-consuming stage.
// Assembly and video always feed on their upstream outputs.
func (s *Session) SetStageSource(kind StageKind, token string) {
	switch kind {
	case StageCleanup:
		s.snapshot.Cleanup.Source = token
	case StageTranslate:
		s.snapshot.Translate.Source = token
	case StageTTS:
		s.snapshot.TTS.Source = token
	}
}

// SkipStage records an explicit opt-out for a stage.
func (s *Session) SkipStage(kind StageKind) {
	if state := s.state(kind); state != nil {
		state.MarkSkipped()
	}
}

// VisitStage marks a stage's wizard step as visited, promoting pending
// stages to completed.
func (s *Session) VisitStage(kind StageKind) {
	if state := s.state(kind); state != nil {
		state.MarkCompletedIfVisited()
	}
}

func (s *Session) state(kind StageKind) *StageState {
	switch kind {
	case StageCleanup:
		return &s.snapshot.Cleanup.StageState
	case StageTranslate:
		return &s.snapshot.Translate.StageState
	case StageTTS:
		return &s.snapshot.TTS.StageState
	case StageAssembly:
		return &s.snapshot.Assembly.StageState
	case StageVideo:
		return &s.snapshot.Video.StageState
	default:
		return nil
	}
}

// Snapshot returns an independent value copy of the current configuration.
func (s *Session) Snapshot() Snapshot {
	snap := s.snapshot
	snap.Translate.Languages = append([]string(nil), s.snapshot.Translate.Languages...)
	snap.TTS.Rows = append([]TTSRow(nil), s.snapshot.TTS.Rows...)
	return snap
}
