// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords loads the keyword weight table used by the rule scorer.
// A table maps a phrase to a non-negative relevance weight. Tables are plain
// YAML data so they can be tuned without touching the scoring code; a
// built-in table ships with the binary.
package keywords

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"unicode"

	"go.yaml.in/yaml/v3"
)

//go:embed default.yaml
var defaultTable []byte

// ErrInvalidTable is returned when a table has an empty or duplicate phrase
// or a weight that is negative or not finite.
var ErrInvalidTable = errors.New("invalid keyword table")

// Entry is one phrase and its weight.
type Entry struct {
	Phrase string  `json:"phrase" yaml:"phrase"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Table is an ordered, read-only list of entries. Order is the file order,
// which keeps floating-point sums over the table deterministic.
type Table struct {
	entries []Entry
}

type tableFile struct {
	Keywords []Entry `yaml:"keywords"`
}

// Default returns the built-in table.
func Default() (Table, error) {
	t, err := Parse(defaultTable)
	if err != nil {
		return Table{}, fmt.Errorf("built-in keyword table: %w", err)
	}
	return t, nil
}

// Load reads a YAML table from path.
func Load(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("reading keyword table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return Table{}, fmt.Errorf("keyword table %s: %w", path, err)
	}
	return t, nil
}

// LoadOrDefault loads path, or the built-in table when path is empty.
func LoadOrDefault(path string) (Table, error) {
	if path == "" {
		return Default()
	}
	return Load(path)
}

// Parse decodes and validates a YAML table.
func Parse(data []byte) (Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Table{}, fmt.Errorf("parsing keyword table: %w", err)
	}
	return New(f.Keywords)
}

// New validates entries and returns a table holding folded copies of them.
// Negative weights are rejected: penalizing topics would need a decision on
// clamping the rule score before normalization, which the scorer does not make.
func New(entries []Entry) (Table, error) {
	seen := make(map[string]bool, len(entries))
	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		phrase := Fold(e.Phrase)
		switch {
		case phrase == "":
			return Table{}, fmt.Errorf("%w: entry %d has an empty phrase", ErrInvalidTable, i)
		case seen[phrase]:
			return Table{}, fmt.Errorf("%w: duplicate phrase %q", ErrInvalidTable, phrase)
		case math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0):
			return Table{}, fmt.Errorf("%w: phrase %q has a non-finite weight", ErrInvalidTable, phrase)
		case e.Weight < 0:
			return Table{}, fmt.Errorf("%w: phrase %q has negative weight %g", ErrInvalidTable, phrase, e.Weight)
		}
		seen[phrase] = true
		out = append(out, Entry{Phrase: phrase, Weight: e.Weight})
	}
	return Table{entries: out}, nil
}

// Entries returns a copy of the table's entries in table order.
func (t Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t Table) Len() int { return len(t.entries) }

// Each calls fn for every entry in table order.
func (t Table) Each(fn func(Entry)) {
	for _, e := range t.entries {
		fn(e)
	}
}

// MaxScore returns the largest rule score a paper can reach with this
// table: every positive phrase in the title (weight plus half-weight bonus).
func (t Table) MaxScore() float64 {
	var total float64
	for _, e := range t.entries {
		if e.Weight > 0 {
			total += e.Weight * 1.5
		}
	}
	return total
}

// Fold lowercases s, turns hyphens, dashes and underscores into spaces and
// collapses whitespace runs, so "Zero-Knowledge" and "zero knowledge" fold
// to the same text. Phrases and paper text are both folded before matching.
func Fold(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '‐', '‑', '‒', '–', '—':
			return ' '
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
