package compile

import (
	"errors"
	"fmt"
)

var (
	// ErrRoleMismatch is returned when a binding is applied to a job whose
	// chain role does not accept it.
	ErrRoleMismatch = errors.New("chain role mismatch")
	// ErrAlreadyBound is returned when a binding was already applied. The
	// caller treats this as a duplicate completion event and moves on.
	ErrAlreadyBound = errors.New("chain binding already applied")
)

// BindTarget activates a placeholder-target synthesis job with the
// configuration carried by its completed source job. The result is an
// ordinary runnable job with the target role.
func BindTarget(job Job, payload ChainPayload) (Job, error) {
	if job.ChainRole != ChainPlaceholderTarget {
		if job.ChainRole == ChainTarget {
			return job, ErrAlreadyBound
		}
		return job, fmt.Errorf("%w: %s cannot bind a target payload", ErrRoleMismatch, job.ChainRole)
	}
	if payload.Target == nil || payload.TargetInput == "" {
		return job, fmt.Errorf("bind target: payload carries no target configuration")
	}
	config := *payload.Target
	job.TTS = &config
	job.InputPath = payload.TargetInput
	job.InputExists = true
	job.ChainRole = ChainTarget
	job.Placeholder = false
	return job, nil
}

// BindAssemblySource records the finished source session directory on a
// placeholder assembly job. Each side binds at most once; the job stops
// being a placeholder when both sides are known.
func BindAssemblySource(job Job, sessionDir string) (Job, error) {
	return bindAssemblySide(job, sessionDir, true)
}

// BindAssemblyTarget records the finished target session directory on a
// placeholder assembly job.
func BindAssemblyTarget(job Job, sessionDir string) (Job, error) {
	return bindAssemblySide(job, sessionDir, false)
}

func bindAssemblySide(job Job, sessionDir string, source bool) (Job, error) {
	if job.ChainRole != ChainPlaceholderAssembly || job.Assembly == nil {
		return job, fmt.Errorf("%w: %s cannot bind a session directory", ErrRoleMismatch, job.ChainRole)
	}
	asm := *job.Assembly
	if source {
		if asm.SourceSessionDir != "" {
			return job, ErrAlreadyBound
		}
		asm.SourceSessionDir = sessionDir
	} else {
		if asm.TargetSessionDir != "" {
			return job, ErrAlreadyBound
		}
		asm.TargetSessionDir = sessionDir
	}
	job.Assembly = &asm
	if asm.SourceSessionDir != "" && asm.TargetSessionDir != "" {
		job.Placeholder = false
	}
	return job, nil
}

// MaterializeAssembly turns the payload of a completed solo synthesis job
// into a runnable assembly job. The solo job's own session fills whichever
// side the compiler left blank.
func MaterializeAssembly(solo Job) (Job, error) {
	if solo.ChainRole != ChainSolo || solo.Chain == nil || solo.Chain.Assembly == nil || solo.TTS == nil {
		return Job{}, fmt.Errorf("%w: job carries no assembly payload", ErrRoleMismatch)
	}
	asm := *solo.Chain.Assembly
	switch solo.TTS.Language {
	case asm.SourceLanguage:
		if asm.SourceSessionDir != "" {
			return Job{}, ErrAlreadyBound
		}
		asm.SourceSessionDir = solo.TTS.SessionDir
	case asm.TargetLanguage:
		if asm.TargetSessionDir != "" {
			return Job{}, ErrAlreadyBound
		}
		asm.TargetSessionDir = solo.TTS.SessionDir
	default:
		return Job{}, fmt.Errorf("%w: solo language %s is not part of the pair", ErrRoleMismatch, solo.TTS.Language)
	}
	job := Job{
		Type:        JobAssembly,
		WorkflowID:  solo.WorkflowID,
		ProjectDir:  solo.ProjectDir,
		InputExists: true,
		Assembly:    &asm,
	}
	return job, nil
}
