// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

// AzureProvider embeds through an Azure OpenAI deployment. Model names the
// deployment.
type AzureProvider struct {
	client    *openai.Client
	model     string
	batchSize int
}

// NewAzure returns an Azure OpenAI provider. BaseURL is the resource
// endpoint (https://<resource>.openai.azure.com).
func NewAzure(cfg types.EmbedderConfig) (*AzureProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: azure provider needs an API key", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: azure provider needs base_url", ErrNotConfigured)
	}

	clientCfg := openai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	deployment := cfg.Model
	clientCfg.AzureModelMapperFunc = func(string) string { return deployment }

	return &AzureProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}, nil
}

// EmbedBatch implements Provider.
func (p *AzureProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedNonBlank(ctx, texts, p.batchSize, p.embed)
}

func (p *AzureProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("azure embeddings (%s): %w", p.model, err)
	}

	// The API tags each vector with its input index; order by it rather
	// than trusting response order.
	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}
