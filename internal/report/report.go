// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders ranked papers as JSON, YAML, or a text listing.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-ranker/internal/rank"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

// previewRunes is the abstract length shown in text output.
const previewRunes = 200

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// DefaultOutputName returns the export file name used when none is given.
func DefaultOutputName(n int) string {
	return fmt.Sprintf("filtered_papers_%d.json", n)
}

// FormatForPath picks the export format from a file extension; anything
// other than .yaml, .yml, or .txt is JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".txt":
		return FormatText
	}
	return FormatJSON
}

// WriteJSON writes papers as an indented JSON array. Non-ASCII text and
// HTML characters are written as-is.
func WriteJSON(w io.Writer, papers []types.ScoredPaper) error {
	if papers == nil {
		papers = []types.ScoredPaper{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// WriteYAML writes papers as a YAML list.
func WriteYAML(w io.Writer, papers []types.ScoredPaper) error {
	if papers == nil {
		papers = []types.ScoredPaper{}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// TextOptions controls WriteText.
type TextOptions struct {
	// HideScores omits the score lines.
	HideScores bool

	// Explain, when set, lists the keyword matches of each paper.
	Explain func(types.Paper) []rank.Match
}

// WriteText writes a numbered, human-readable listing.
func WriteText(w io.Writer, papers []types.ScoredPaper, opts TextOptions) error {
	var b strings.Builder
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(&b, "%s\nRanked papers (%d)\n%s\n", rule, len(papers), rule)

	for i, p := range papers {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, p.Title)
		fmt.Fprintf(&b, "Authors:    %s\n", p.Authors)
		if !opts.HideScores {
			fmt.Fprintf(&b, "Similarity: %.4f\n", p.SimilarityScore)
			fmt.Fprintf(&b, "Rule score: %.2f\n", p.RuleScore)
			fmt.Fprintf(&b, "Final:      %.4f\n", p.FinalScore)
		}
		if opts.Explain != nil {
			if matches := opts.Explain(p.Paper); len(matches) > 0 {
				b.WriteString("Keywords:\n")
				for _, m := range matches {
					title := ""
					if m.InTitle {
						title = " (title)"
					}
					fmt.Fprintf(&b, "  %-28s %+.2f%s\n", m.Phrase, m.Score, title)
				}
			}
		}
		fmt.Fprintf(&b, "Abstract:   %s\n", Preview(p.Abstract, previewRunes))
		fmt.Fprintf(&b, "URL:        %s\n", p.URL)
		b.WriteString(strings.Repeat("-", 60) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Preview returns the first n runes of s followed by "..." when s is longer.
func Preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Write renders papers to w in format.
func Write(w io.Writer, format Format, papers []types.ScoredPaper, opts TextOptions) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, papers)
	case FormatYAML:
		return WriteYAML(w, papers)
	case FormatText:
		return WriteText(w, papers, opts)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ExportFile writes papers to path in the format implied by its extension.
func ExportFile(path string, papers []types.ScoredPaper) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, FormatForPath(path), papers, TextOptions{}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
