package catalog

// Stage classifies which pipeline phase produced an artifact.
type Stage string

const (
	StageSource    Stage = "source"
	StageCleanup   Stage = "cleanup"
	StageTranslate Stage = "translate"
)

// Artifact is a single produced file within a project.
//
// Within a project at most one artifact exists per (stage, filename,
// language) triple; the scan enforces this by construction since each triple
// maps to exactly one conventional path.
type Artifact struct {
	Stage    Stage
	Filename string // base name without extension, e.g. "original" or "de"
	Language string // 2-letter code, translate artifacts only
	Path     string
}

// Snapshot is one read-only scan result of a project's stage directories.
type Snapshot struct {
	ProjectDir  string
	Artifacts   []Artifact
	Fingerprint string
}

// Lookup returns the artifact with the given stage and filename, if present.
func (s *Snapshot) Lookup(stage Stage, filename string) (Artifact, bool) {
	if s == nil {
		return Artifact{}, false
	}
	for _, a := range s.Artifacts {
		if a.Stage == stage && a.Filename == filename {
			return a, true
		}
	}
	return Artifact{}, false
}

// Translation returns the translated EPUB artifact for a language, if present.
func (s *Snapshot) Translation(lang string) (Artifact, bool) {
	if s == nil {
		return Artifact{}, false
	}
	for _, a := range s.Artifacts {
		if a.Stage == StageTranslate && a.Language == lang {
			return a, true
		}
	}
	return Artifact{}, false
}

// ContainsPath reports whether path belongs to the scanned inventory.
func (s *Snapshot) ContainsPath(path string) bool {
	if s == nil {
		return false
	}
	for _, a := range s.Artifacts {
		if a.Path == path {
			return true
		}
	}
	return false
}
