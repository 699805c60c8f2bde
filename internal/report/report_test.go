// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-ranker/internal/rank"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

var ranked = []types.ScoredPaper{
	{
		Paper:           types.Paper{Title: "Chameleon Hash <Signatures>", Authors: "Zoë Müller", Abstract: "Short.", URL: "https://x/1?a=1&b=2"},
		SimilarityScore: 0.81234, RuleScore: 3.55, NormSimilarity: 1, NormRule: 1, FinalScore: 1,
	},
	{
		Paper:           types.Paper{Title: "Lattices", Abstract: strings.Repeat("é", 250)},
		SimilarityScore: -0.1, RuleScore: 1.1, FinalScore: 0.25,
	},
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, ranked))

	out := buf.String()
	assert.Contains(t, out, "Zoë Müller", "non-ASCII is not escaped")
	assert.Contains(t, out, "<Signatures>")
	assert.Contains(t, out, "a=1&b=2")
	assert.Contains(t, out, "\n    {", "four-space indent")
	assert.NotContains(t, out, "NormSimilarity")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	keys := make([]string, 0, len(decoded[0]))
	for k := range decoded[0] {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"title", "authors", "abstract", "url", "similarity_score", "rule_score", "final_score"}, keys)

	idx := func(key string) int { return strings.Index(out, `"`+key+`"`) }
	assert.Less(t, idx("title"), idx("authors"))
	assert.Less(t, idx("url"), idx("similarity_score"))
	assert.Less(t, idx("rule_score"), idx("final_score"))
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, ranked))

	var decoded []types.ScoredPaper
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, ranked[0].Title, decoded[0].Title)
	assert.Equal(t, 3.55, decoded[0].RuleScore)
	assert.Zero(t, decoded[0].NormSimilarity, "normalized columns are not exported")
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, ranked, TextOptions{}))
	out := buf.String()

	assert.Contains(t, out, "[1] Chameleon Hash <Signatures>")
	assert.Contains(t, out, "[2] Lattices")
	assert.Contains(t, out, "Similarity: 0.8123")
	assert.Contains(t, out, "Rule score: 3.55")
	assert.Contains(t, out, strings.Repeat("é", 200)+"...")
	assert.NotContains(t, out, strings.Repeat("é", 201))

	buf.Reset()
	require.NoError(t, WriteText(&buf, ranked, TextOptions{HideScores: true}))
	assert.NotContains(t, buf.String(), "Similarity:")
}

func TestWriteTextExplain(t *testing.T) {
	explain := func(p types.Paper) []rank.Match {
		if p.Title == "Lattices" {
			return nil
		}
		return []rank.Match{{Phrase: "chameleon hash", Weight: 1.5, InTitle: true, Score: 2.25}}
	}
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, ranked, TextOptions{Explain: explain}))
	assert.Contains(t, buf.String(), "chameleon hash")
	assert.Contains(t, buf.String(), "+2.25 (title)")
	assert.Equal(t, 1, strings.Count(buf.String(), "Keywords:"))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", Preview("abc", 5))
	assert.Equal(t, "abcde", Preview("abcde", 5))
	assert.Equal(t, "ab...", Preview("abcde", 2))
	assert.Equal(t, "日本...", Preview("日本語", 2))
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("filtered_papers_10.json"))
	assert.Equal(t, FormatYAML, FormatForPath("out.YML"))
	assert.Equal(t, FormatText, FormatForPath("out.txt"))
	assert.Equal(t, FormatJSON, FormatForPath("out"))
	assert.Equal(t, "filtered_papers_10.json", DefaultOutputName(10))
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, Format("csv"), ranked, TextOptions{})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", DefaultOutputName(2))
	require.NoError(t, ExportFile(path, ranked))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []types.ScoredPaper
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)

	ypath := filepath.Join(dir, "out.yaml")
	require.NoError(t, ExportFile(ypath, ranked))
	data, err = os.ReadFile(ypath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "- title:"))
}
