package catalog

import (
	"fmt"
	"path/filepath"
)

// Well-known artifact filenames, without extension.
const (
	FileOriginal   = "original"
	FileExported   = "exported"
	FileCleaned    = "cleaned"
	FileSimplified = "simplified"
)

// SourceDir returns the directory holding the imported source EPUBs.
func SourceDir(projectDir string) string {
	return filepath.Join(projectDir, "source")
}

// CleanupDir returns the cleanup stage output directory.
func CleanupDir(projectDir string) string {
	return filepath.Join(projectDir, "stages", "01-cleanup")
}

// TranslateDir returns the translation stage output directory.
func TranslateDir(projectDir string) string {
	return filepath.Join(projectDir, "stages", "02-translate")
}

// TTSSessionsDir returns the root of the per-language synthesis session directories.
func TTSSessionsDir(projectDir string) string {
	return filepath.Join(projectDir, "stages", "03-tts", "sessions")
}

// AssemblyDir returns the bilingual assembly output directory.
func AssemblyDir(projectDir string) string {
	return filepath.Join(projectDir, "stages", "04-assembly")
}

// VideoDir returns the video rendering output directory.
func VideoDir(projectDir string) string {
	return filepath.Join(projectDir, "stages", "05-video")
}

// OriginalPath returns the path of the imported original EPUB.
func OriginalPath(projectDir string) string {
	return filepath.Join(SourceDir(projectDir), FileOriginal+".epub")
}

// ExportedPath returns the path of the re-exported source EPUB.
func ExportedPath(projectDir string) string {
	return filepath.Join(SourceDir(projectDir), FileExported+".epub")
}

// CleanedPath returns the cleanup job's output path.
func CleanedPath(projectDir string) string {
	return filepath.Join(CleanupDir(projectDir), FileCleaned+".epub")
}

// SimplifiedPath returns the simplify job's output path.
func SimplifiedPath(projectDir string) string {
	return filepath.Join(CleanupDir(projectDir), FileSimplified+".epub")
}

// TranslationPath returns the output path of the translation job for a language.
func TranslationPath(projectDir, lang string) string {
	return filepath.Join(TranslateDir(projectDir), lang+".epub")
}

// SentencePairsPath returns the aligned sentence-pair cache for a language.
func SentencePairsPath(projectDir, lang string) string {
	return filepath.Join(TranslateDir(projectDir), fmt.Sprintf("sentence_pairs_%s.json", lang))
}

// SessionDir returns the synthesis session directory for a language.
func SessionDir(projectDir, lang string) string {
	return filepath.Join(TTSSessionsDir(projectDir), lang)
}

// AssemblyOutputPath returns the assembled bilingual audiobook path for a language pair.
func AssemblyOutputPath(projectDir, sourceLang, targetLang string) string {
	return filepath.Join(AssemblyDir(projectDir), fmt.Sprintf("%s-%s.m4b", sourceLang, targetLang))
}

// VideoOutputPath returns the rendered video path for a language pair.
func VideoOutputPath(projectDir, sourceLang, targetLang string) string {
	return filepath.Join(VideoDir(projectDir), fmt.Sprintf("%s-%s.mp4", sourceLang, targetLang))
}
