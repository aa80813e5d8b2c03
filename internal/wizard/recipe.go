package wizard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// RecipeName is the conventional recipe file name inside a project directory.
const RecipeName = "recipe.toml"

// ErrNoRecipe marks a project without a recipe file.
var ErrNoRecipe = errors.New("wizard: no recipe file")

// Recipe is the on-disk pipeline description of a project. Each section
// corresponds to one wizard stage: a present section marks the stage
// visited, an absent section leaves it pending, and skip = true records an
// explicit opt-out.
type Recipe struct {
	SourceLanguage string `toml:"source_language"`

	Cleanup   *CleanupRecipe   `toml:"cleanup"`
	Translate *TranslateRecipe `toml:"translate"`
	TTS       *TTSRecipe       `toml:"tts"`
	Assembly  *AssemblyRecipe  `toml:"assembly"`
	Video     *VideoRecipe     `toml:"video"`
}

// CleanupRecipe mirrors CleanupConfig.
type CleanupRecipe struct {
	Skip     bool   `toml:"skip"`
	Enabled  bool   `toml:"enabled"`
	Simplify bool   `toml:"simplify"`
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	Source   string `toml:"source"`
}

// TranslateRecipe mirrors TranslateConfig.
type TranslateRecipe struct {
	Skip      bool     `toml:"skip"`
	Languages []string `toml:"languages"`
	Provider  string   `toml:"provider"`
	Model     string   `toml:"model"`
	Source    string   `toml:"source"`
}

// TTSRecipe mirrors TTSConfig.
type TTSRecipe struct {
	Skip   bool           `toml:"skip"`
	Voices []TTSRowRecipe `toml:"voices"`
	Source string         `toml:"source"`
}

// TTSRowRecipe is one synthesis request. Speed defaults to 1.0.
type TTSRowRecipe struct {
	Language string  `toml:"language"`
	Voice    string  `toml:"voice"`
	Speed    float64 `toml:"speed"`
}

// AssemblyRecipe mirrors AssemblyConfig.
type AssemblyRecipe struct {
	Skip           bool   `toml:"skip"`
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
	Pattern        string `toml:"pattern"`
	PauseMs        int    `toml:"pause_ms"`
}

// VideoRecipe mirrors VideoConfig. A present, unskipped section enables the
// render.
type VideoRecipe struct {
	Skip       bool   `toml:"skip"`
	Background string `toml:"background"`
}

// LoadRecipe reads the recipe file of a project directory.
func LoadRecipe(projectDir string) (Recipe, error) {
	path := filepath.Join(projectDir, RecipeName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Recipe{}, fmt.Errorf("%w: %s", ErrNoRecipe, path)
		}
		return Recipe{}, fmt.Errorf("read recipe: %w", err)
	}
	var recipe Recipe
	if err := toml.Unmarshal(data, &recipe); err != nil {
		return Recipe{}, fmt.Errorf("parse recipe %s: %w", path, err)
	}
	return recipe, nil
}

// Session replays the recipe through the wizard operations, yielding a
// session whose visited stages match the sections present in the file.
func (r Recipe) Session(projectDir string) (*Session, error) {
	session, err := NewSession(projectDir, r.SourceLanguage)
	if err != nil {
		return nil, err
	}

	if c := r.Cleanup; c != nil {
		if c.Skip {
			session.SkipStage(StageCleanup)
		} else {
			session.SetCleanupOptions(c.Enabled, c.Simplify)
			session.SetCleanupEngine(c.Provider, c.Model)
			session.SetStageSource(StageCleanup, c.Source)
			session.VisitStage(StageCleanup)
		}
	}

	if t := r.Translate; t != nil {
		if t.Skip {
			session.SkipStage(StageTranslate)
		} else {
			if err := session.SetTranslateLanguages(t.Languages); err != nil {
				return nil, fmt.Errorf("translate: %w", err)
			}
			session.SetTranslateEngine(t.Provider, t.Model)
			session.SetStageSource(StageTranslate, t.Source)
			session.VisitStage(StageTranslate)
		}
	}

	if t := r.TTS; t != nil {
		if t.Skip {
			session.SkipStage(StageTTS)
		} else {
			for _, row := range t.Voices {
				speed := row.Speed
				if speed == 0 {
					speed = 1.0
				}
				if _, err := session.AddTTSRow(row.Language, row.Voice, speed); err != nil {
					return nil, fmt.Errorf("tts voice %q: %w", row.Language, err)
				}
			}
			session.SetStageSource(StageTTS, t.Source)
			session.VisitStage(StageTTS)
		}
	}

	if a := r.Assembly; a != nil {
		if a.Skip {
			session.SkipStage(StageAssembly)
		} else {
			pattern, err := parsePattern(a.Pattern)
			if err != nil {
				return nil, err
			}
			if err := session.SetAssemblyPair(a.SourceLanguage, a.TargetLanguage, pattern, a.PauseMs); err != nil {
				return nil, fmt.Errorf("assembly: %w", err)
			}
			session.VisitStage(StageAssembly)
		}
	}

	if v := r.Video; v != nil {
		if v.Skip {
			session.SkipStage(StageVideo)
		} else {
			session.SetVideo(true, v.Background)
			session.VisitStage(StageVideo)
		}
	}

	return session, nil
}

func parsePattern(value string) (Pattern, error) {
	switch Pattern(value) {
	case "", PatternSourceFirst:
		return PatternSourceFirst, nil
	case PatternTargetFirst:
		return PatternTargetFirst, nil
	default:
		return "", fmt.Errorf("unknown assembly pattern %q", value)
	}
}
