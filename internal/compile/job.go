package compile

import (
	"polyvox/internal/wizard"
)

// JobType names the executor a job is dispatched to.
type JobType string

const (
	JobCleanup   JobType = "cleanup"
	JobTranslate JobType = "translate"
	JobTTS       JobType = "tts"
	JobAssembly  JobType = "assembly"
	JobVideo     JobType = "video"
)

// ChainRole marks a job's part in a synthesis-to-assembly chain. Most jobs
// carry no role.
type ChainRole string

const (
	ChainNone ChainRole = ""
	// ChainSource is the synthesis job that runs first in a paired chain.
	// Its payload carries everything needed to activate the rest.
	ChainSource ChainRole = "source"
	// ChainTarget is a former placeholder-target after binding.
	ChainTarget ChainRole = "target"
	// ChainSolo is a synthesis job whose counterpart already has a complete
	// session on disk; assembly materializes when it finishes.
	ChainSolo ChainRole = "solo"
	// ChainPlaceholderTarget is the second synthesis job of a paired chain,
	// inert until the source job's completion binds its configuration.
	ChainPlaceholderTarget ChainRole = "placeholder-target"
	// ChainPlaceholderAssembly is an assembly job waiting for its session
	// directories, one per finished synthesis side.
	ChainPlaceholderAssembly ChainRole = "placeholder-assembly"
)

// CleanupJob configures one pass of the text cleanup engine.
type CleanupJob struct {
	Simplify   bool   `json:"simplify"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	OutputPath string `json:"output_path"`
}

// TranslateJob configures the translation of the text source into one language.
type TranslateJob struct {
	Language   string `json:"language"`
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	OutputPath string `json:"output_path"`
	PairsPath  string `json:"pairs_path"`
}

// TTSJob configures one per-language synthesis session.
type TTSJob struct {
	Language   string  `json:"language"`
	Voice      string  `json:"voice,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
	SessionDir string  `json:"session_dir,omitempty"`
}

// AssemblyJob configures the bilingual interleave of two finished sessions.
type AssemblyJob struct {
	SourceLanguage   string         `json:"source_language"`
	TargetLanguage   string         `json:"target_language"`
	Pattern          wizard.Pattern `json:"pattern"`
	PauseMs          int            `json:"pause_ms"`
	SourceSessionDir string         `json:"source_session_dir,omitempty"`
	TargetSessionDir string         `json:"target_session_dir,omitempty"`
	OutputPath       string         `json:"output_path"`
}

// VideoJob configures the video render of the assembled audiobook.
type VideoJob struct {
	Background string `json:"background,omitempty"`
	OutputPath string `json:"output_path"`
}

// ChainPayload rides on a chaining synthesis job and carries the
// configuration the completion handler needs to activate downstream work.
// A paired source job carries the target synthesis config; a solo job
// carries the assembly config with the cached session side already filled.
type ChainPayload struct {
	Target      *TTSJob      `json:"target,omitempty"`
	TargetInput string       `json:"target_input,omitempty"`
	Assembly    *AssemblyJob `json:"assembly,omitempty"`
}

// Job is one unit of pipeline work. Exactly one of the per-type config
// pointers is set, matching Type.
type Job struct {
	Type        JobType   `json:"type"`
	WorkflowID  string    `json:"workflow_id"`
	ProjectDir  string    `json:"project_dir"`
	InputPath   string    `json:"input_path,omitempty"`
	InputExists bool      `json:"input_exists"`
	ChainRole   ChainRole `json:"chain_role,omitempty"`
	Placeholder bool      `json:"placeholder,omitempty"`

	Cleanup   *CleanupJob   `json:"cleanup,omitempty"`
	Translate *TranslateJob `json:"translate,omitempty"`
	TTS       *TTSJob       `json:"tts,omitempty"`
	Assembly  *AssemblyJob  `json:"assembly,omitempty"`
	Video     *VideoJob     `json:"video,omitempty"`
	Chain     *ChainPayload `json:"chain,omitempty"`
}

// OutputPath returns where the job writes its result. For synthesis jobs
// this is the session directory.
func (j Job) OutputPath() string {
	switch {
	case j.Cleanup != nil:
		return j.Cleanup.OutputPath
	case j.Translate != nil:
		return j.Translate.OutputPath
	case j.TTS != nil:
		return j.TTS.SessionDir
	case j.Assembly != nil:
		return j.Assembly.OutputPath
	case j.Video != nil:
		return j.Video.OutputPath
	}
	return ""
}

// Language returns the language a job operates on, if it has one.
func (j Job) Language() string {
	switch {
	case j.Translate != nil:
		return j.Translate.Language
	case j.TTS != nil:
		return j.TTS.Language
	}
	return ""
}

// Warning is an advisory attached to a plan. Warnings never block
// submission; they tell the user what will not work as written.
type Warning struct {
	Stage   wizard.StageKind `json:"stage"`
	Message string           `json:"message"`
}

// Plan is the compiled output of one wizard snapshot.
type Plan struct {
	WorkflowID  string             `json:"workflow_id"`
	ProjectDir  string             `json:"project_dir"`
	Fingerprint string             `json:"fingerprint,omitempty"`
	Jobs        []Job              `json:"jobs"`
	Warnings    []Warning          `json:"warnings,omitempty"`
	AutoSkipped []wizard.StageKind `json:"auto_skipped,omitempty"`
}

// VisibleJobCount excludes assembly placeholders, which exist for chain
// bookkeeping rather than as user-requested work.
func (p *Plan) VisibleJobCount() int {
	count := 0
	for _, job := range p.Jobs {
		if job.ChainRole == ChainPlaceholderAssembly {
			continue
		}
		count++
	}
	return count
}

func (p *Plan) warn(stage wizard.StageKind, message string) {
	p.Warnings = append(p.Warnings, Warning{Stage: stage, Message: message})
}
