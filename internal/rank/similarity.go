// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"fmt"
	"math"

	"github.com/pdiddy/paper-ranker/internal/embedding"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

// SimilarityScorer scores abstracts against the interest statement by
// cosine similarity of their embeddings.
type SimilarityScorer struct {
	provider embedding.Provider
}

// NewSimilarityScorer returns a scorer backed by provider.
func NewSimilarityScorer(provider embedding.Provider) *SimilarityScorer {
	return &SimilarityScorer{provider: provider}
}

// ScoreAll returns a copy of papers with SimilarityScore set. The interest
// is encoded once and all abstracts in one batch; position i of the result
// is position i of the input. Any provider failure aborts the whole batch.
func (s *SimilarityScorer) ScoreAll(ctx context.Context, interest string, papers []types.ScoredPaper) ([]types.ScoredPaper, error) {
	out := make([]types.ScoredPaper, len(papers))
	copy(out, papers)
	if len(papers) == 0 {
		return out, nil
	}

	iv, err := s.provider.EmbedBatch(ctx, []string{interest})
	if err != nil {
		return nil, fmt.Errorf("embedding interest: %w", err)
	}
	if len(iv) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for the interest", ErrEmbeddingCount, len(iv))
	}
	interestVec := iv[0]

	abstracts := make([]string, len(papers))
	for i, p := range papers {
		abstracts[i] = p.Abstract
	}
	vecs, err := s.provider.EmbedBatch(ctx, abstracts)
	if err != nil {
		return nil, fmt.Errorf("embedding abstracts: %w", err)
	}
	if len(vecs) != len(papers) {
		return nil, fmt.Errorf("%w: got %d vectors for %d abstracts", ErrEmbeddingCount, len(vecs), len(papers))
	}

	for i, v := range vecs {
		sim, err := CosineSimilarity(interestVec, v)
		if err != nil {
			return nil, fmt.Errorf("paper %d: %w", i, err)
		}
		out[i].SimilarityScore = sim
	}
	return out, nil
}

// CosineSimilarity returns dot(a,b) / (|a||b|) clamped to [-1, 1]. An empty
// or zero-norm vector yields 0 instead of dividing by zero. A NaN or infinite
// component is an embedding.ErrBadResponse.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, fmt.Errorf("%w: vector has a non-finite component", embedding.ErrBadResponse)
	}
	return math.Max(-1, math.Min(1, sim)), nil
}
