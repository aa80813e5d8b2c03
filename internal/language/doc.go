// Package language provides unified language code normalization and mapping.
//
// All language-related conversions (ISO 639-1 codes, display names, list
// normalization, tag validation) are consolidated here to avoid duplication
// across the catalog, wizard, and TTS packages.
package language
