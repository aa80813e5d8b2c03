package resolve

import (
	"polyvox/internal/catalog"
)

// TokenLatest selects automatic source resolution via the fallback chain.
const TokenLatest = "latest"

// Origin describes how a resolution was produced.
type Origin string

const (
	// OriginExplicit means the user picked a concrete artifact; the token is
	// returned verbatim.
	OriginExplicit Origin = "explicit"
	// OriginCatalog means the fallback chain matched a scanned artifact.
	OriginCatalog Origin = "catalog"
	// OriginExpected means nothing exists yet; the path is where an upstream
	// job is expected to place its output.
	OriginExpected Origin = "expected"
)

// Resolution is the answer to one source lookup.
type Resolution struct {
	Path   string
	Origin Origin
	Exists bool
}

// chainLink is one priority level of a fallback chain.
type chainLink struct {
	stage    catalog.Stage
	filename string
}

// textFallbackChain orders cleanup/translate source candidates from most to
// least processed. Chain order is fixed and total; each level has exactly one
// candidate, so resolution is deterministic.
var textFallbackChain = []chainLink{
	{catalog.StageCleanup, catalog.FileSimplified},
	{catalog.StageCleanup, catalog.FileCleaned},
	{catalog.StageSource, catalog.FileExported},
	{catalog.StageSource, catalog.FileOriginal},
}

// Text resolves the source input of a cleanup or translation job. Resolution
// never fails: a nil or empty snapshot yields the expected import location
// under projectDir.
func Text(projectDir string, snap *catalog.Snapshot, token string) Resolution {
	if token != "" && token != TokenLatest {
		return explicit(snap, token)
	}
	return firstPresent(projectDir, snap, textFallbackChain)
}

// Speech resolves the source input of a TTS job for a language. The source
// language reads from the text chain; any other language requires that
// language's translation, falling back to its expected future path when the
// translation has not been produced yet.
func Speech(projectDir string, snap *catalog.Snapshot, token, lang, sourceLang string) Resolution {
	if token != "" && token != TokenLatest {
		return explicit(snap, token)
	}
	if lang == sourceLang {
		return firstPresent(projectDir, snap, textFallbackChain)
	}
	if artifact, ok := snap.Translation(lang); ok {
		return Resolution{Path: artifact.Path, Origin: OriginCatalog, Exists: true}
	}
	return Resolution{
		Path:   catalog.TranslationPath(projectDir, lang),
		Origin: OriginExpected,
		Exists: false,
	}
}

func explicit(snap *catalog.Snapshot, token string) Resolution {
	return Resolution{Path: token, Origin: OriginExplicit, Exists: snap.ContainsPath(token)}
}

// firstPresent walks a chain and returns the first catalog match. An empty
// or nil catalog resolves to the expected import location rather than failing.
func firstPresent(projectDir string, snap *catalog.Snapshot, chain []chainLink) Resolution {
	for _, link := range chain {
		if artifact, ok := snap.Lookup(link.stage, link.filename); ok {
			return Resolution{Path: artifact.Path, Origin: OriginCatalog, Exists: true}
		}
	}
	return Resolution{
		Path:   catalog.OriginalPath(projectDir),
		Origin: OriginExpected,
		Exists: false,
	}
}
