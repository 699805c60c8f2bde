// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Paper holds the source fields of one candidate paper. The fields are
// written once when the record is loaded and never changed by ranking.
// Any field may be empty; an empty title or abstract lowers the paper's
// scores instead of failing the batch.
type Paper struct {
	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors is the author line as published (e.g. "Alice Smith, Bob Jones").
	Authors string `json:"authors" yaml:"authors"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// URL links to the paper's landing page.
	URL string `json:"url" yaml:"url"`
}

// ScoredPaper is a Paper together with the scores assigned by the ranking
// stages. Each stage fills only its own fields and returns a new slice.
// FinalScore is meaningful only after every paper in the batch carries both
// raw scores, because normalization spans the whole batch.
type ScoredPaper struct {
	Paper `yaml:",inline"`

	// SimilarityScore is the cosine similarity between the interest and the
	// abstract embeddings, in [-1, 1].
	SimilarityScore float64 `json:"similarity_score" yaml:"similarity_score"`

	// RuleScore is the keyword-table score (base weights plus title bonus).
	RuleScore float64 `json:"rule_score" yaml:"rule_score"`

	// NormSimilarity is SimilarityScore min-max normalized over the batch.
	NormSimilarity float64 `json:"-" yaml:"-"`

	// NormRule is RuleScore min-max normalized over the batch.
	NormRule float64 `json:"-" yaml:"-"`

	// FinalScore is the weighted sum of the two normalized scores, in [0, 1].
	FinalScore float64 `json:"final_score" yaml:"final_score"`
}

// NewScoredPapers wraps papers into a zero-scored snapshot that preserves
// input order.
func NewScoredPapers(papers []Paper) []ScoredPaper {
	out := make([]ScoredPaper, len(papers))
	for i, p := range papers {
		out[i] = ScoredPaper{Paper: p}
	}
	return out
}
