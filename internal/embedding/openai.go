// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/embedding/openai"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

// OpenAIProvider embeds through an OpenAI-compatible API (OpenAI itself,
// SiliconFlow, OpenRouter and similar) using the eino embedder.
type OpenAIProvider struct {
	model     string
	batchSize int
	inner     *openai.Embedder
}

// NewOpenAI returns an OpenAI-compatible provider. An empty API key is a
// configuration error.
func NewOpenAI(ctx context.Context, cfg types.EmbedderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai provider needs an API key", ErrNotConfigured)
	}
	inner, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating openai embedder: %w", err)
	}
	return &OpenAIProvider{model: cfg.Model, batchSize: cfg.BatchSize, inner: inner}, nil
}

// EmbedBatch implements Provider.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedNonBlank(ctx, texts, p.batchSize, func(ctx context.Context, batch []string) ([][]float32, error) {
		vecs, err := p.inner.EmbedStrings(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("openai embeddings (%s): %w", p.model, err)
		}
		out := make([][]float32, len(vecs))
		for i, v := range vecs {
			out[i] = toFloat32(v)
		}
		return out, nil
	})
}
