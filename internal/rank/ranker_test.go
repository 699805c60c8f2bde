// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-ranker/internal/embedding"
	"github.com/pdiddy/paper-ranker/internal/keywords"
	"github.com/pdiddy/paper-ranker/internal/observability"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

const (
	interestText = "chameleon hash functions and digital signatures"
	abstractA    = "We propose a chameleon hash scheme for digital signature..."
	abstractB    = "We study adversarial examples against deep learning models."
)

var (
	paperA = types.Paper{Title: "Chameleon Hash Based Signatures", Authors: "A. Author", Abstract: abstractA, URL: "https://example.org/a"}
	paperB = types.Paper{Title: "Adversarial Attacks on Neural Networks", Authors: "B. Author", Abstract: abstractB, URL: "https://example.org/b"}
)

func endToEndProvider() *stubProvider {
	return &stubProvider{vectors: map[string][]float32{
		interestText: {0.9, 0.1, 0},
		abstractA:    {0.8, 0.2, 0.1},
		abstractB:    {0.1, 0.2, 0.9},
	}}
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	_, err := New(nil, defaultTable(t))
	assert.ErrorIs(t, err, ErrModelLoad)
	assert.Equal(t, StageModelLoad, StageOf(err))

	_, err = New(&stubProvider{}, keywords.Table{})
	assert.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, StageValidate, StageOf(err))
}

func TestRankEndToEnd(t *testing.T) {
	r, err := New(endToEndProvider(), defaultTable(t))
	require.NoError(t, err)

	res, err := r.Rank(context.Background(), interestText, []types.Paper{paperB, paperA}, types.RankConfig{SemanticWeight: 0.7, TopK: 10})
	require.NoError(t, err)

	require.Len(t, res.Papers, 2)
	assert.Equal(t, 2, res.Total)
	assert.NotEmpty(t, res.RunID)

	first, second := res.Papers[0], res.Papers[1]
	assert.Equal(t, paperA, first.Paper, "source fields pass through unchanged")
	assert.Equal(t, paperB.Title, second.Title)
	assert.Greater(t, first.RuleScore, second.RuleScore)
	assert.Greater(t, first.SimilarityScore, second.SimilarityScore)
	assert.InDelta(t, 1.0, first.FinalScore, 1e-9)
	assert.InDelta(t, 0.0, second.FinalScore, 1e-9)

	for _, stage := range []Stage{StageValidate, StageSimilarity, StageRules, StageRanking} {
		assert.Contains(t, res.Timings, stage)
	}
}

func TestRankTopKAndDefaults(t *testing.T) {
	provider := &stubProvider{fallback: []float32{1, 0}}
	r, err := New(provider, newTable(t, keywords.Entry{Phrase: "lattice", Weight: 1}))
	require.NoError(t, err)

	papers := []types.Paper{
		{Title: "p1", Abstract: "lattice"},
		{Title: "p2", Abstract: "nothing"},
		{Title: "p3 lattice", Abstract: "lattice"},
		{Title: "p4", Abstract: "nothing"},
		{Title: "p5", Abstract: "lattice"},
	}
	res, err := r.Rank(context.Background(), "q", papers, types.RankConfig{SemanticWeight: 0.7, TopK: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3 lattice", "p1", "p5"}, titles(res.Papers))
	assert.Equal(t, 5, res.Total)

	res, err = r.Rank(context.Background(), "q", papers, types.DefaultRankConfig())
	require.NoError(t, err)
	assert.Len(t, res.Papers, 5)
}

func TestRankEmptyBatch(t *testing.T) {
	provider := &stubProvider{}
	r, err := New(provider, defaultTable(t))
	require.NoError(t, err)

	res, err := r.Rank(context.Background(), "q", nil, types.DefaultRankConfig())
	require.NoError(t, err)
	assert.Empty(t, res.Papers)
	assert.Zero(t, res.Total)
	assert.Zero(t, provider.calls.Load())
}

func TestRankInvalidParametersBeforeScoring(t *testing.T) {
	provider := &stubProvider{fallback: []float32{1}}
	r, err := New(provider, defaultTable(t))
	require.NoError(t, err)

	for _, cfg := range []types.RankConfig{
		{SemanticWeight: 1.01, TopK: 3},
		{SemanticWeight: -0.5, TopK: 3},
		{SemanticWeight: 0.5, TopK: -2},
	} {
		_, err := r.Rank(context.Background(), "q", []types.Paper{paperA}, cfg)
		assert.ErrorIs(t, err, ErrInvalidParameter)
		assert.Equal(t, StageValidate, StageOf(err))
	}
	assert.Zero(t, provider.calls.Load(), "provider must not be called for invalid parameters")
}

func TestRankStageErrors(t *testing.T) {
	table := defaultTable(t)

	t.Run("unhealthy provider fails model load", func(t *testing.T) {
		inner := &stubProvider{fallback: []float32{1}}
		r, err := New(healthStub{stubProvider: inner, healthErr: errBackendDown}, table)
		require.NoError(t, err)

		_, err = r.Rank(context.Background(), "q", []types.Paper{paperA}, types.DefaultRankConfig())
		assert.ErrorIs(t, err, ErrModelLoad)
		assert.ErrorIs(t, err, errBackendDown)
		assert.Equal(t, StageModelLoad, StageOf(err))
		assert.Contains(t, err.Error(), "model load stage failed")
		assert.Zero(t, inner.calls.Load())
	})

	t.Run("healthy provider proceeds", func(t *testing.T) {
		inner := &stubProvider{fallback: []float32{1}}
		r, err := New(healthStub{stubProvider: inner}, table)
		require.NoError(t, err)
		res, err := r.Rank(context.Background(), "q", []types.Paper{paperA}, types.DefaultRankConfig())
		require.NoError(t, err)
		assert.Contains(t, res.Timings, StageModelLoad)
	})

	t.Run("embedding failure fails similarity", func(t *testing.T) {
		r, err := New(&stubProvider{err: errBackendDown}, table)
		require.NoError(t, err)

		res, err := r.Rank(context.Background(), "q", []types.Paper{paperA, paperB}, types.DefaultRankConfig())
		assert.ErrorIs(t, err, errBackendDown)
		assert.Equal(t, StageSimilarity, StageOf(err))
		assert.Empty(t, res.Papers, "no partial result")

		var se *StageError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, StageSimilarity, se.Stage)
	})
}

func TestRankRecordsMetricsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	metrics := observability.NewMetrics()

	cache := embedding.NewCachedProvider(endToEndProvider(), newMemCache(), "stub")
	r, err := New(cache, defaultTable(t), WithLogger(logger), WithMetrics(metrics))
	require.NoError(t, err)

	cfg := types.DefaultRankConfig()
	_, err = r.Rank(context.Background(), interestText, []types.Paper{paperA, paperB}, cfg)
	require.NoError(t, err)
	_, err = r.Rank(context.Background(), interestText, []types.Paper{paperA, paperB}, cfg)
	require.NoError(t, err)
	_, err = r.Rank(context.Background(), interestText, []types.Paper{paperA}, types.RankConfig{SemanticWeight: 2})
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Runs.WithLabelValues(observability.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Runs.WithLabelValues(observability.OutcomeFailure)))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.PapersScored))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.EmbeddingCacheHits))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.EmbeddingCacheMisses))

	assert.Contains(t, buf.String(), `"message":"ranking complete"`)
	assert.Contains(t, buf.String(), `"stage":"validate"`)
}

func TestRankEmptyInterestWarns(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(&stubProvider{fallback: []float32{1, 0}}, defaultTable(t), WithLogger(zerolog.New(&buf)))
	require.NoError(t, err)

	res, err := r.Rank(context.Background(), "", []types.Paper{paperA, paperB}, types.DefaultRankConfig())
	require.NoError(t, err)
	for _, p := range res.Papers {
		assert.Zero(t, p.SimilarityScore)
	}
	assert.Equal(t, paperA.Title, res.Papers[0].Title, "rules still decide")
	assert.Contains(t, buf.String(), "empty interest")
}

func TestExplainDelegates(t *testing.T) {
	r, err := New(&stubProvider{}, defaultTable(t))
	require.NoError(t, err)
	matches := r.Explain(paperA)
	require.Len(t, matches, 2)
	assert.Equal(t, "chameleon hash", matches[0].Phrase)
	assert.Equal(t, "digital signature", matches[1].Phrase)
}
