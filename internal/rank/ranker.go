// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank implements the hybrid relevance ranking pipeline: a semantic
// similarity scorer and a keyword rule scorer run over the same batch, each
// score column is min-max normalized, and the weighted sum orders the batch.
//
// Every stage returns a new slice; no stage modifies its input.
package rank

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/paper-ranker/internal/embedding"
	"github.com/pdiddy/paper-ranker/internal/keywords"
	"github.com/pdiddy/paper-ranker/internal/observability"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

// Result is the outcome of one ranking run.
type Result struct {
	RunID string

	// Papers holds at most TopK papers in descending FinalScore order.
	Papers []types.ScoredPaper

	// Total is the number of papers scored.
	Total int

	Timings map[Stage]time.Duration
}

// cacheStatser is implemented by providers that track cache hits.
type cacheStatser interface {
	Stats() (hits, misses int64)
}

// Ranker runs the ranking pipeline with a fixed provider and keyword table.
type Ranker struct {
	provider   embedding.Provider
	similarity *SimilarityScorer
	rules      *RuleScorer
	logger     zerolog.Logger
	metrics    *observability.Metrics
	model      string
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Ranker) { r.logger = l }
}

// WithMetrics records run outcomes and stage durations in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Ranker) { r.metrics = m }
}

// WithModelName labels log lines with the embedding model in use.
func WithModelName(name string) Option {
	return func(r *Ranker) { r.model = name }
}

// New returns a Ranker. A nil provider is a model load failure and an empty
// table a validation failure; both are reported as *StageError.
func New(provider embedding.Provider, table keywords.Table, opts ...Option) (*Ranker, error) {
	if provider == nil {
		return nil, &StageError{Stage: StageModelLoad, Err: fmt.Errorf("%w: no embedding provider", ErrModelLoad)}
	}
	if table.Len() == 0 {
		return nil, &StageError{Stage: StageValidate, Err: fmt.Errorf("%w: empty keyword table", ErrInvalidParameter)}
	}

	r := &Ranker{
		provider:   provider,
		similarity: NewSimilarityScorer(provider),
		rules:      NewRuleScorer(table),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Explain lists the keyword matches behind a paper's rule score.
func (r *Ranker) Explain(p types.Paper) []Match {
	return r.rules.Explain(p)
}

// Rank scores papers against interest and returns the top cfg.TopK of them.
// Parameters are checked before the provider is touched. The two scorers
// run concurrently against the same input; normalization waits for both.
// Any failure aborts the run with a *StageError and no partial result.
func (r *Ranker) Rank(ctx context.Context, interest string, papers []types.Paper, cfg types.RankConfig) (Result, error) {
	res := Result{
		RunID:   uuid.NewString(),
		Total:   len(papers),
		Timings: make(map[Stage]time.Duration),
	}
	log := observability.WithRunContext(r.logger, res.RunID, r.model)

	ranked, err := r.run(ctx, log, interest, papers, cfg, res.Timings)
	if err != nil {
		r.metrics.RunFinished(observability.OutcomeFailure, len(papers), 0)
		log.Error().Err(err).Str("stage", string(StageOf(err))).Msg("ranking failed")
		return Result{}, err
	}
	res.Papers = ranked

	for stage, d := range res.Timings {
		r.metrics.ObserveStage(string(stage), d)
	}
	if cs, ok := r.provider.(cacheStatser); ok {
		hits, misses := cs.Stats()
		r.metrics.SetCacheStats(hits, misses)
		log.Debug().Int64("cache_hits", hits).Int64("cache_misses", misses).Msg("embedding cache")
	}
	r.metrics.RunFinished(observability.OutcomeSuccess, len(papers), len(ranked))

	log.Info().
		Int("papers", len(papers)).
		Int("returned", len(ranked)).
		Float64("semantic_weight", cfg.SemanticWeight).
		Msg("ranking complete")
	return res, nil
}

func (r *Ranker) run(ctx context.Context, log zerolog.Logger, interest string, papers []types.Paper, cfg types.RankConfig, timings map[Stage]time.Duration) ([]types.ScoredPaper, error) {
	start := time.Now()
	if err := ValidateConfig(cfg); err != nil {
		return nil, stageErr(StageValidate, err)
	}
	if interest == "" {
		log.Warn().Msg("empty interest statement; every similarity score will be 0")
	}
	timings[StageValidate] = time.Since(start)

	if hc, ok := r.provider.(embedding.HealthChecker); ok {
		start = time.Now()
		if err := hc.Health(ctx); err != nil {
			return nil, stageErr(StageModelLoad, fmt.Errorf("%w: %w", ErrModelLoad, err))
		}
		timings[StageModelLoad] = time.Since(start)
	}

	snapshot := types.NewScoredPapers(papers)

	var (
		withSim, withRules []types.ScoredPaper
		simTime, ruleTime  time.Duration
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		out, err := r.similarity.ScoreAll(gctx, interest, snapshot)
		if err != nil {
			return stageErr(StageSimilarity, err)
		}
		withSim, simTime = out, time.Since(t)
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		withRules, ruleTime = r.rules.ScoreAll(snapshot), time.Since(t)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	timings[StageSimilarity] = simTime
	timings[StageRules] = ruleTime
	log.Debug().Dur("similarity", simTime).Dur("rules", ruleTime).Msg("raw scores computed")

	merged := make([]types.ScoredPaper, len(snapshot))
	for i := range snapshot {
		merged[i] = withSim[i]
		merged[i].RuleScore = withRules[i].RuleScore
	}

	start = time.Now()
	ranked, err := CombineAndRank(merged, cfg.SemanticWeight, cfg.TopK)
	if err != nil {
		return nil, stageErr(StageRanking, err)
	}
	timings[StageRanking] = time.Since(start)
	return ranked, nil
}
