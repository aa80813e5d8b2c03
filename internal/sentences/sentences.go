// Package sentences defines the JSON documents that carry sentence text
// between stages: aligned pairs written by translation, and plain sentence
// lists written by segmentation.
package sentences

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pair is one aligned sentence in two languages.
type Pair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// PairsDocument is the sentence alignment a translation job produces.
type PairsDocument struct {
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Pairs          []Pair `json:"pairs"`
}

// ListDocument is a plain sentence list, produced by segmentation.
type ListDocument struct {
	Language  string   `json:"language,omitempty"`
	Sentences []string `json:"sentences"`
}

// LoadPairs reads an aligned sentence-pairs document.
func LoadPairs(path string) (PairsDocument, error) {
	var doc PairsDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read sentence pairs: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse sentence pairs: %w", err)
	}
	return doc, nil
}

// LoadList reads a plain sentence list document.
func LoadList(path string) (ListDocument, error) {
	var doc ListDocument
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read sentences: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse sentences: %w", err)
	}
	return doc, nil
}

// TargetSide extracts the target-language sentences of a pairs document.
func (d PairsDocument) TargetSide() []string {
	out := make([]string, 0, len(d.Pairs))
	for _, pair := range d.Pairs {
		out = append(out, pair.Target)
	}
	return out
}

// SourceSide extracts the source-language sentences of a pairs document.
func (d PairsDocument) SourceSide() []string {
	out := make([]string, 0, len(d.Pairs))
	for _, pair := range d.Pairs {
		out = append(out, pair.Source)
	}
	return out
}
