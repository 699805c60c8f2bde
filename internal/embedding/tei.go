// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/paper-ranker/internal/httputil"
	"github.com/pdiddy/paper-ranker/pkg/types"
)

// TEIProvider talks to a HuggingFace text-embeddings-inference server. The
// server hosts a single model, so Model is informational (it keys the cache).
type TEIProvider struct {
	Client    *http.Client
	BaseURL   string
	Model     string
	BatchSize int
}

// NewTEI returns a TEI provider for cfg.
func NewTEI(cfg types.EmbedderConfig) *TEIProvider {
	return &TEIProvider{
		Client:    &http.Client{Timeout: cfg.Timeout},
		BaseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		Model:     cfg.Model,
		BatchSize: cfg.BatchSize,
	}
}

type teiRequest struct {
	Inputs   []string `json:"inputs"`
	Truncate bool     `json:"truncate"`
}

// EmbedBatch implements Provider.
func (p *TEIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedNonBlank(ctx, texts, p.BatchSize, p.embed)
}

func (p *TEIProvider) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("encoding TEI request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("TEI embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("TEI embed returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var vecs [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vecs); err != nil {
		return nil, fmt.Errorf("%w: parsing TEI response: %v", ErrBadResponse, err)
	}
	return vecs, nil
}

// Health reports whether the TEI server has loaded its model.
func (p *TEIProvider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("TEI server at %s unreachable: %w", p.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TEI server at %s not ready: HTTP %d", p.BaseURL, resp.StatusCode)
	}
	return nil
}
