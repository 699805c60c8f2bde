// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

var validate = validator.New()

// Normalize rescales values to [0, 1] by min-max over the whole slice,
// keeping order and length. When every value is the same the result is all
// zeros: a score that does not discriminate must not lift the combined score.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := slices.Min(values), slices.Max(values)
	span := hi - lo
	if span <= 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out
}

// ValidateConfig checks the run parameters and reports the first offending
// field wrapped in ErrInvalidParameter.
func ValidateConfig(cfg types.RankConfig) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s=%v fails %q", ErrInvalidParameter, fe.Field(), fe.Value(), fe.ActualTag()+"="+fe.Param())
	}
	return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
}

// CombineAndRank normalizes the similarity and rule columns independently,
// sets FinalScore = w*normSimilarity + (1-w)*normRule, and returns at most
// topK papers sorted by FinalScore descending. The sort is stable: papers
// with equal scores keep their input order. A topK larger than the batch
// returns the whole batch.
func CombineAndRank(papers []types.ScoredPaper, semanticWeight float64, topK int) ([]types.ScoredPaper, error) {
	if err := ValidateConfig(types.RankConfig{SemanticWeight: semanticWeight, TopK: topK}); err != nil {
		return nil, err
	}

	sims := make([]float64, len(papers))
	rules := make([]float64, len(papers))
	for i, p := range papers {
		sims[i] = p.SimilarityScore
		rules[i] = p.RuleScore
	}
	normSims := Normalize(sims)
	normRules := Normalize(rules)

	ruleWeight := 1 - semanticWeight
	ranked := make([]types.ScoredPaper, len(papers))
	for i, p := range papers {
		p.NormSimilarity = normSims[i]
		p.NormRule = normRules[i]
		p.FinalScore = semanticWeight*normSims[i] + ruleWeight*normRules[i]
		ranked[i] = p
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	if topK < len(ranked) {
		ranked = ranked[:topK]
	}
	return ranked, nil
}
