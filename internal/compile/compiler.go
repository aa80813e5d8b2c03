package compile

import (
	"fmt"

	"github.com/google/uuid"

	"polyvox/internal/catalog"
	"polyvox/internal/language"
	"polyvox/internal/resolve"
	"polyvox/internal/sessions"
	"polyvox/internal/wizard"
)

// Inputs bundles everything compilation reads. Catalog must be a snapshot of
// the project the wizard configured; Sessions the discovered synthesis
// sessions of the same project.
type Inputs struct {
	Config   wizard.Snapshot
	Catalog  *catalog.Snapshot
	Sessions []sessions.Session
}

// Compile builds the job plan for one wizard snapshot under a fresh workflow
// identity. Only visited, actionable stages emit jobs; inconsistent assembly
// or video configuration is auto-skipped rather than failing the plan.
func Compile(in Inputs) *Plan {
	return compile(in, uuid.NewString())
}

func compile(in Inputs, workflowID string) *Plan {
	cfg := in.Config
	project := cfg.ProjectDir
	plan := &Plan{WorkflowID: workflowID, ProjectDir: project}
	if in.Catalog != nil {
		plan.Fingerprint = in.Catalog.Fingerprint
	}

	base := func(t JobType) Job {
		return Job{Type: t, WorkflowID: workflowID, ProjectDir: project}
	}

	// Outputs planned by this very compilation take priority over catalog
	// artifacts: a stage that re-runs upstream work feeds on the fresh copy.
	var plannedText string
	plannedTranslations := map[string]string{}

	if cfg.Cleanup.Visited() && cfg.Cleanup.Actionable() {
		src := resolve.Text(project, in.Catalog, cfg.CleanupSource())
		if !src.Exists {
			plan.warn(wizard.StageCleanup,
				fmt.Sprintf("text source %s does not exist; import an EPUB first", src.Path))
		}
		input, exists := src.Path, src.Exists
		if cfg.Cleanup.Enabled {
			job := base(JobCleanup)
			job.InputPath, job.InputExists = input, exists
			job.Cleanup = &CleanupJob{
				Provider:   cfg.Cleanup.Provider,
				Model:      cfg.Cleanup.Model,
				OutputPath: catalog.CleanedPath(project),
			}
			plan.Jobs = append(plan.Jobs, job)
			input, exists = job.Cleanup.OutputPath, false
			plannedText = job.Cleanup.OutputPath
		}
		if cfg.Cleanup.Simplify {
			job := base(JobCleanup)
			job.InputPath, job.InputExists = input, exists
			job.Cleanup = &CleanupJob{
				Simplify:   true,
				Provider:   cfg.Cleanup.Provider,
				Model:      cfg.Cleanup.Model,
				OutputPath: catalog.SimplifiedPath(project),
			}
			plan.Jobs = append(plan.Jobs, job)
			plannedText = job.Cleanup.OutputPath
		}
	}

	if cfg.Translate.Visited() && cfg.Translate.Actionable() {
		input, exists := plannedText, false
		if plannedText == "" {
			src := resolve.Text(project, in.Catalog, cfg.TranslateSource())
			input, exists = src.Path, src.Exists
			if !src.Exists {
				plan.warn(wizard.StageTranslate,
					fmt.Sprintf("text source %s does not exist; import an EPUB first", src.Path))
			}
		}
		for _, lang := range cfg.Translate.Languages {
			job := base(JobTranslate)
			job.InputPath, job.InputExists = input, exists
			job.Translate = &TranslateJob{
				Language:   lang,
				Provider:   cfg.Translate.Provider,
				Model:      cfg.Translate.Model,
				OutputPath: catalog.TranslationPath(project, lang),
				PairsPath:  catalog.SentencePairsPath(project, lang),
			}
			plan.Jobs = append(plan.Jobs, job)
			plannedTranslations[lang] = job.Translate.OutputPath
		}
	}

	// Index of the synthesis job per language, for chain wiring below.
	ttsIndex := map[string]int{}
	if cfg.TTS.Visited() && cfg.TTS.Actionable() {
		for _, row := range cfg.TTS.Rows {
			if _, dup := ttsIndex[row.Language]; dup {
				plan.warn(wizard.StageTTS,
					fmt.Sprintf("duplicate synthesis row for %s ignored", language.DisplayName(row.Language)))
				continue
			}
			job := base(JobTTS)
			if planned, ok := plannedTranslations[row.Language]; ok {
				job.InputPath, job.InputExists = planned, false
			} else {
				src := resolve.Speech(project, in.Catalog, cfg.TTSSource(), row.Language, cfg.SourceLanguage)
				job.InputPath, job.InputExists = src.Path, src.Exists
				if !src.Exists {
					plan.warn(wizard.StageTTS,
						fmt.Sprintf("%s has no text on disk and no job planned to produce %s",
							language.DisplayName(row.Language), src.Path))
				}
			}
			job.TTS = &TTSJob{
				Language:   row.Language,
				Voice:      row.Voice,
				Speed:      row.Speed,
				SessionDir: catalog.SessionDir(project, row.Language),
			}
			ttsIndex[row.Language] = len(plan.Jobs)
			plan.Jobs = append(plan.Jobs, job)
		}
		if _, ok := ttsIndex[cfg.SourceLanguage]; !ok {
			if _, complete := completeSession(in.Sessions, cfg.SourceLanguage); !complete {
				plan.warn(wizard.StageTTS,
					fmt.Sprintf("no row synthesizes the source language %s and no complete session covers it",
						language.DisplayName(cfg.SourceLanguage)))
			}
		}
	}

	assemblyEmitted := false
	var assemblyOutput string
	if cfg.Assembly.Visited() {
		if !cfg.Assembly.Actionable() {
			plan.AutoSkipped = append(plan.AutoSkipped, wizard.StageAssembly)
		} else {
			assemblyOutput = compileAssembly(plan, in, ttsIndex, base)
			assemblyEmitted = assemblyOutput != ""
		}
	}

	if cfg.Video.Visited() && cfg.Video.Actionable() {
		if !assemblyEmitted {
			plan.warn(wizard.StageVideo, "video needs an assembled audiobook; assembly produced no job")
			plan.AutoSkipped = append(plan.AutoSkipped, wizard.StageVideo)
		} else {
			job := base(JobVideo)
			job.InputPath, job.InputExists = assemblyOutput, false
			job.Video = &VideoJob{
				Background: cfg.Video.Background,
				OutputPath: catalog.VideoOutputPath(project, cfg.Assembly.SourceLanguage, cfg.Assembly.TargetLanguage),
			}
			plan.Jobs = append(plan.Jobs, job)
		}
	}

	return plan
}

// compileAssembly decides between a direct assembly job and the three
// chaining shapes. It returns the assembly output path, or "" when assembly
// was auto-skipped.
func compileAssembly(plan *Plan, in Inputs, ttsIndex map[string]int, base func(JobType) Job) string {
	cfg := in.Config
	srcLang, tgtLang := cfg.Assembly.SourceLanguage, cfg.Assembly.TargetLanguage
	if srcLang == tgtLang {
		plan.warn(wizard.StageAssembly,
			fmt.Sprintf("assembly pair %s/%s is not bilingual; assembly skipped",
				language.DisplayName(srcLang), language.DisplayName(tgtLang)))
		plan.AutoSkipped = append(plan.AutoSkipped, wizard.StageAssembly)
		return ""
	}
	asm := AssemblyJob{
		SourceLanguage: srcLang,
		TargetLanguage: tgtLang,
		Pattern:        cfg.Assembly.Pattern,
		PauseMs:        cfg.Assembly.PauseMs,
		OutputPath:     catalog.AssemblyOutputPath(cfg.ProjectDir, srcLang, tgtLang),
	}

	srcIdx, srcFresh := ttsIndex[srcLang]
	tgtIdx, tgtFresh := ttsIndex[tgtLang]
	switch {
	case srcFresh && tgtFresh:
		// Paired chain: the source synthesis runs alone and carries the
		// target's configuration; the target becomes an inert placeholder
		// until the source completes.
		target := plan.Jobs[tgtIdx]
		source := &plan.Jobs[srcIdx]
		source.ChainRole = ChainSource
		targetConfig := *target.TTS
		source.Chain = &ChainPayload{Target: &targetConfig, TargetInput: target.InputPath}

		hollow := &plan.Jobs[tgtIdx]
		hollow.ChainRole = ChainPlaceholderTarget
		hollow.Placeholder = true
		hollow.InputPath, hollow.InputExists = "", false
		hollow.TTS = &TTSJob{Language: tgtLang}

		job := base(JobAssembly)
		job.ChainRole = ChainPlaceholderAssembly
		job.Placeholder = true
		placeholder := asm
		job.Assembly = &placeholder
		plan.Jobs = append(plan.Jobs, job)
		return asm.OutputPath

	case srcFresh != tgtFresh:
		// Solo chain: one side synthesizes fresh, the other side's session
		// is already on disk. No assembly job is emitted; the solo job
		// carries the assembly config with the cached side pre-filled.
		freshIdx, cachedLang := srcIdx, tgtLang
		if tgtFresh {
			freshIdx, cachedLang = tgtIdx, srcLang
		}
		cached, ok := completeSession(in.Sessions, cachedLang)
		if !ok {
			plan.warn(wizard.StageAssembly,
				fmt.Sprintf("no complete synthesis session for %s; assembly skipped", language.DisplayName(cachedLang)))
			plan.AutoSkipped = append(plan.AutoSkipped, wizard.StageAssembly)
			return ""
		}
		carried := asm
		if cachedLang == srcLang {
			carried.SourceSessionDir = cached.SessionDir
		} else {
			carried.TargetSessionDir = cached.SessionDir
		}
		solo := &plan.Jobs[freshIdx]
		solo.ChainRole = ChainSolo
		solo.Chain = &ChainPayload{Assembly: &carried}
		return asm.OutputPath

	default:
		// No fresh synthesis: both sessions must already be complete.
		srcSession, srcOK := completeSession(in.Sessions, srcLang)
		tgtSession, tgtOK := completeSession(in.Sessions, tgtLang)
		if !srcOK || !tgtOK {
			missing := srcLang
			if srcOK {
				missing = tgtLang
			}
			plan.warn(wizard.StageAssembly,
				fmt.Sprintf("no complete synthesis session for %s; assembly skipped", language.DisplayName(missing)))
			plan.AutoSkipped = append(plan.AutoSkipped, wizard.StageAssembly)
			return ""
		}
		asm.SourceSessionDir = srcSession.SessionDir
		asm.TargetSessionDir = tgtSession.SessionDir
		job := base(JobAssembly)
		job.InputExists = true
		direct := asm
		job.Assembly = &direct
		plan.Jobs = append(plan.Jobs, job)
		return asm.OutputPath
	}
}

func completeSession(list []sessions.Session, lang string) (sessions.Session, bool) {
	for _, s := range list {
		if s.Language == lang && s.Complete {
			return s, true
		}
	}
	return sessions.Session{}, false
}
