// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus loads paper records from JSON, JSON Lines, and YAML files.
// A file holds either a bare list of records or an envelope with a
// "papers" list and optional conference metadata. Missing fields load as
// empty strings; Report counts them so callers can warn without failing.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

// Format identifies a corpus file encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ErrUnknownFormat is returned for a file whose format cannot be determined.
var ErrUnknownFormat = errors.New("unknown corpus format")

// Corpus is a loaded set of papers with optional source metadata.
type Corpus struct {
	Conference  string
	Description string
	Papers      []types.Paper
	Report      Report
}

// Report summarizes record quality.
type Report struct {
	Total           int
	MissingTitle    int
	MissingAbstract int
}

// Degraded reports whether any record lacks a title or abstract.
func (r Report) Degraded() bool {
	return r.MissingTitle > 0 || r.MissingAbstract > 0
}

// record is the on-disk shape of a paper. Authors may be a string or a list.
type record struct {
	Title    string  `json:"title" yaml:"title"`
	Authors  authors `json:"authors" yaml:"authors"`
	Abstract string  `json:"abstract" yaml:"abstract"`
	URL      string  `json:"url" yaml:"url"`
}

type envelope struct {
	Conference  string   `json:"conference" yaml:"conference"`
	Description string   `json:"description" yaml:"description"`
	Papers      []record `json:"papers" yaml:"papers"`
}

// authors accepts either "A, B" or ["A", "B"].
type authors string

func (a *authors) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = authors(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("authors must be a string or a list of strings: %w", err)
	}
	*a = authors(strings.Join(list, ", "))
	return nil
}

func (a *authors) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*a = authors(node.Value)
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("authors list: %w", err)
		}
		*a = authors(strings.Join(list, ", "))
		return nil
	}
	return fmt.Errorf("line %d: authors must be a string or a list of strings", node.Line)
}

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// LoadFile reads a corpus file, choosing the decoder by extension.
func LoadFile(path string) (*Corpus, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	c, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

// Decode reads a corpus from r in the given format.
func Decode(r io.Reader, format Format) (*Corpus, error) {
	var env envelope
	switch format {
	case FormatJSON:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '[' {
			err = json.Unmarshal(data, &env.Papers)
		} else {
			err = json.Unmarshal(data, &env)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
	case FormatJSONL:
		recs, err := decodeLines(r)
		if err != nil {
			return nil, err
		}
		env.Papers = recs
	case FormatYAML:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			err = node.Content[0].Decode(&env.Papers)
		} else if len(node.Content) > 0 {
			err = node.Content[0].Decode(&env)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return build(env), nil
}

func decodeLines(r io.Reader) ([]record, error) {
	var recs []record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading JSON lines: %w", err)
	}
	return recs, nil
}

func build(env envelope) *Corpus {
	c := &Corpus{
		Conference:  env.Conference,
		Description: env.Description,
		Papers:      make([]types.Paper, len(env.Papers)),
	}
	for i, rec := range env.Papers {
		p := types.Paper{
			Title:    strings.TrimSpace(rec.Title),
			Authors:  strings.TrimSpace(string(rec.Authors)),
			Abstract: strings.TrimSpace(rec.Abstract),
			URL:      strings.TrimSpace(rec.URL),
		}
		if p.Title == "" {
			c.Report.MissingTitle++
		}
		if p.Abstract == "" {
			c.Report.MissingAbstract++
		}
		c.Papers[i] = p
	}
	c.Report.Total = len(c.Papers)
	return c
}
