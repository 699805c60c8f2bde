// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-ranker/internal/embedding"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "ranker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var samplePapers = []types.Paper{
	{Title: "Chameleon Hash Based Signatures", Authors: "Alice", Abstract: "A chameleon hash scheme.", URL: "https://x/1"},
	{Title: "Lattice Sieving", Authors: "Bob", Abstract: "Faster sieving for SVP."},
	{Title: "100% Private_Search", Abstract: "Oblivious RAM."},
}

func TestOpenCreatesSchemaTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranker.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestImportAndReadCollection(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.ImportCollection(ctx, Collection{Name: "ndss2025", Description: "NDSS", Source: "ndss.json"}, samplePapers))

	papers, err := s.CollectionPapers(ctx, "ndss2025")
	require.NoError(t, err)
	assert.Equal(t, samplePapers, papers, "papers come back in import order")

	cols, err := s.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "ndss2025", cols[0].Name)
	assert.Equal(t, "NDSS", cols[0].Description)
	assert.Equal(t, "ndss.json", cols[0].Source)
	assert.Equal(t, 3, cols[0].Papers)
	assert.WithinDuration(t, time.Now(), cols[0].ImportedAt, time.Minute)
}

func TestImportReplacesCollection(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	require.NoError(t, s.ImportCollection(ctx, Collection{Name: "c"}, samplePapers))
	require.NoError(t, s.ImportCollection(ctx, Collection{Name: "c"}, samplePapers[:1]))

	papers, err := s.CollectionPapers(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, papers, 1)
}

func TestImportRequiresName(t *testing.T) {
	s := testStore(t)
	assert.Error(t, s.ImportCollection(context.Background(), Collection{Name: "  "}, samplePapers))
}

func TestCollectionNotFound(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.CollectionPapers(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteCollection(ctx, "missing"), ErrNotFound)
}

func TestEmptyCollection(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportCollection(ctx, Collection{Name: "empty"}, nil))

	papers, err := s.CollectionPapers(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestSearchPapers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportCollection(ctx, Collection{Name: "c"}, samplePapers))

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"CHAMELEON", 0, []string{"Chameleon Hash Based Signatures"}},
		{"sieving", 0, []string{"Lattice Sieving"}},
		{"s", 2, []string{"Chameleon Hash Based Signatures", "Lattice Sieving"}},
		{"100%", 0, []string{"100% Private_Search"}},
		{"e_s", 0, []string{"100% Private_Search"}},
		{"nothing matches", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.SearchPapers(ctx, "c", tt.query, tt.limit)
			require.NoError(t, err)
			var titles []string
			for _, p := range got {
				titles = append(titles, p.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

func TestDeleteCollectionCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	require.NoError(t, s.ImportCollection(ctx, Collection{Name: "c"}, samplePapers))
	require.NoError(t, s.DeleteCollection(ctx, "c"))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM papers`).Scan(&n))
	assert.Zero(t, n)
}

func TestVectorCache(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	vecs := map[string][]float32{
		"k1": {0.25, -1.5, 3},
		"k2": {1},
	}
	require.NoError(t, s.PutVectors(ctx, "minilm", vecs))
	require.NoError(t, s.PutVectors(ctx, "other", map[string][]float32{"k1": {9, 9}}))

	got, err := s.GetVectors(ctx, "minilm", []string{"k1", "k2", "k3"})
	require.NoError(t, err)
	assert.Equal(t, vecs, got)

	got, err = s.GetVectors(ctx, "other", []string{"k1", "k2"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]float32{"k1": {9, 9}}, got)

	require.NoError(t, s.PutVectors(ctx, "minilm", map[string][]float32{"k2": {2, 2}}))
	got, err = s.GetVectors(ctx, "minilm", []string{"k2"})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 2}, got["k2"])

	stats, err := s.EmbeddingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"minilm": 2, "other": 1}, stats)

	n, err := s.ClearEmbeddings(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.ClearEmbeddings(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestVectorCacheManyKeys(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	vecs := make(map[string][]float32)
	keys := make([]string, 0, 1200)
	for i := range 1200 {
		k := fmt.Sprintf("key-%04d", i)
		keys = append(keys, k)
		if i%2 == 0 {
			vecs[k] = []float32{float32(i)}
		}
	}
	require.NoError(t, s.PutVectors(ctx, "m", vecs))

	got, err := s.GetVectors(ctx, "m", keys)
	require.NoError(t, err)
	assert.Len(t, got, 600)
	assert.Equal(t, []float32{1198}, got["key-1198"])

	empty, err := s.GetVectors(ctx, "m", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDecodeVectorRejectsBadBlob(t *testing.T) {
	_, err := decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)

	v, err := decodeVector(encodeVector([]float32{1.5, -2}))
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, -2}, v)
}

func TestRunHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	older := types.Run{
		ID: "run-old", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Interest: "lattices", Source: "a.json", EmbeddingModel: "minilm",
		SemanticWeight: 0.5, TopK: 5, Total: 10,
	}
	newer := types.Run{
		ID: "run-new", CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		Interest: "chameleon hash", Source: "collection:ndss", EmbeddingModel: "minilm",
		SemanticWeight: 0.7, TopK: 2, Total: 3,
		Results: []types.ScoredPaper{
			{Paper: samplePapers[0], SimilarityScore: 0.9, RuleScore: 3.55, FinalScore: 1},
			{Paper: samplePapers[1], SimilarityScore: 0.1, RuleScore: 1.1, FinalScore: 0.2},
		},
	}
	require.NoError(t, s.SaveRun(ctx, older))
	require.NoError(t, s.SaveRun(ctx, newer))

	runs, err := s.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-old", runs[1].ID)
	assert.Empty(t, runs[0].Results)
	assert.True(t, older.CreatedAt.Equal(runs[1].CreatedAt))

	limited, err := s.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	got, err := s.Run(ctx, "run-new")
	require.NoError(t, err)
	assert.Equal(t, "chameleon hash", got.Interest)
	assert.Equal(t, 0.7, got.SemanticWeight)
	assert.Equal(t, newer.Results, got.Results)

	_, err = s.Run(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRunValidation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	assert.Error(t, s.SaveRun(ctx, types.Run{}))
	require.NoError(t, s.SaveRun(ctx, types.Run{ID: "dup"}))
	assert.Error(t, s.SaveRun(ctx, types.Run{ID: "dup"}), "duplicate ids are rejected")
}

type fixedProvider struct{ calls int }

func (f *fixedProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestStoreBacksEmbeddingCache(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	inner := &fixedProvider{}

	first := embedding.NewCachedProvider(inner, s, "minilm")
	want, err := first.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)

	// A new provider over the same store simulates a second process.
	second := embedding.NewCachedProvider(inner, s, "minilm")
	got, err := second.EmbedBatch(ctx, []string{"beta", "alpha"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{want[1], want[0]}, got)
	assert.Equal(t, 1, inner.calls)
	hits, misses := second.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Zero(t, misses)
}
