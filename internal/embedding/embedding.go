// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding turns text into fixed-dimension vectors for the
// similarity scorer. Providers wrap a hosted API (OpenAI-compatible,
// Azure OpenAI) or a local text-embeddings-inference server.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

// Provider encodes a batch of texts into one vector per text, in input
// order. Blank texts yield a nil vector, which the similarity scorer treats
// as zero-norm. Encoding texts one at a time must give the same vectors as
// encoding them together.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// HealthChecker is implemented by providers that can report whether the
// model behind them is ready before any text is sent.
type HealthChecker interface {
	Health(ctx context.Context) error
}

var (
	// ErrNotConfigured means the provider settings are incomplete (e.g. no API key).
	ErrNotConfigured = errors.New("embedder not configured")

	// ErrBadResponse means the backend returned a different number of
	// vectors than texts, or an unparseable payload.
	ErrBadResponse = errors.New("unexpected embedding response")
)

// Default model per provider.
const (
	DefaultTEIModel    = "sentence-transformers/paraphrase-MiniLM-L6-v2"
	DefaultTEIBaseURL  = "http://localhost:8080"
	DefaultTEIImage    = "ghcr.io/huggingface/text-embeddings-inference:cpu-1.5"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultBatchSize   = 32
	defaultTimeout     = 60 * time.Second
)

var validate = validator.New()

// WithDefaults fills unset fields of cfg with provider defaults.
func WithDefaults(cfg types.EmbedderConfig) types.EmbedderConfig {
	if cfg.Provider == "" {
		cfg.Provider = types.ProviderTEI
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	switch cfg.Provider {
	case types.ProviderTEI:
		if cfg.Model == "" {
			cfg.Model = DefaultTEIModel
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultTEIBaseURL
		}
		if cfg.Image == "" {
			cfg.Image = DefaultTEIImage
		}
	case types.ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
	}
	return cfg
}

// New builds the provider selected by cfg. Missing credentials or an
// unknown provider are configuration errors; nothing is sent to the
// backend here.
func New(ctx context.Context, cfg types.EmbedderConfig) (Provider, error) {
	cfg = WithDefaults(cfg)
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	switch cfg.Provider {
	case types.ProviderTEI:
		return NewTEI(cfg), nil
	case types.ProviderOpenAI:
		return NewOpenAI(ctx, cfg)
	case types.ProviderAzure:
		return NewAzure(cfg)
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrNotConfigured, cfg.Provider)
	}
}

// embedFunc sends a batch of non-blank texts to a backend.
type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// embedNonBlank sends the non-blank texts to fn in chunks of at most size
// and scatters the vectors back to their input positions. Blank texts get a
// nil vector and are never sent.
func embedNonBlank(ctx context.Context, texts []string, size int, fn embedFunc) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var (
		pending   []string
		positions []int
	)
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		pending = append(pending, t)
		positions = append(positions, i)
	}

	if size <= 0 {
		size = DefaultBatchSize
	}
	for start := 0; start < len(pending); start += size {
		end := min(start+size, len(pending))
		vecs, err := fn(ctx, pending[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrBadResponse, len(vecs), end-start)
		}
		for j, v := range vecs {
			out[positions[start+j]] = v
		}
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
