// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"strings"

	"github.com/pdiddy/paper-ranker/internal/keywords"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

// titleBonus is the extra fraction of a positive weight earned when the
// phrase also appears in the title.
const titleBonus = 0.5

// RuleScorer scores papers with a keyword weight table.
type RuleScorer struct {
	table keywords.Table
}

// NewRuleScorer returns a scorer for table.
func NewRuleScorer(table keywords.Table) *RuleScorer {
	return &RuleScorer{table: table}
}

// Match describes one table phrase found in a paper.
type Match struct {
	Phrase  string  `json:"phrase" yaml:"phrase"`
	Weight  float64 `json:"weight" yaml:"weight"`
	InTitle bool    `json:"in_title" yaml:"in_title"`
	Score   float64 `json:"score" yaml:"score"`
}

// ScoreAll returns a copy of papers with RuleScore set.
func (s *RuleScorer) ScoreAll(papers []types.ScoredPaper) []types.ScoredPaper {
	out := make([]types.ScoredPaper, len(papers))
	for i, p := range papers {
		out[i] = p
		out[i].RuleScore = s.Score(p.Paper)
	}
	return out
}

// Score returns the rule score of one paper: each phrase found anywhere in
// title + abstract adds its weight once, and each positive-weight phrase
// found in the title adds half its weight again. Matching is substring
// based on folded text, so "key" matches inside "keyword".
func (s *RuleScorer) Score(p types.Paper) float64 {
	var score float64
	for _, m := range s.Explain(p) {
		score += m.Score
	}
	return score
}

// Explain lists the phrases that matched p, in table order, with the
// amount each contributed.
func (s *RuleScorer) Explain(p types.Paper) []Match {
	title := keywords.Fold(p.Title)
	text := title + " " + keywords.Fold(p.Abstract)

	var matches []Match
	s.table.Each(func(e keywords.Entry) {
		if !strings.Contains(text, e.Phrase) {
			return
		}
		m := Match{Phrase: e.Phrase, Weight: e.Weight, Score: e.Weight}
		if e.Weight > 0 && strings.Contains(title, e.Phrase) {
			m.InTitle = true
			m.Score += e.Weight * titleBonus
		}
		matches = append(matches, m)
	})
	return matches
}
