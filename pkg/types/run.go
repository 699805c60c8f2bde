// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Run records one ranking run: its inputs and the ranked output.
type Run struct {
	// ID is a UUID assigned when the run starts.
	ID string `json:"id" yaml:"id"`

	// CreatedAt is when the run finished.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Interest is the research-interest statement the papers were scored against.
	Interest string `json:"interest" yaml:"interest"`

	// Source names where the papers came from (a file path or "collection:<name>").
	Source string `json:"source" yaml:"source"`

	// EmbeddingModel is the model that produced the similarity scores.
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model"`

	// SemanticWeight and TopK are the parameters the run used.
	SemanticWeight float64 `json:"semantic_weight" yaml:"semantic_weight"`
	TopK           int     `json:"top_k" yaml:"top_k"`

	// Total is the number of papers scored before top-k truncation.
	Total int `json:"total" yaml:"total"`

	// Results holds the ranked papers, best first.
	Results []ScoredPaper `json:"results,omitempty" yaml:"results,omitempty"`
}
