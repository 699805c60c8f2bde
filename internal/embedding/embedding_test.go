// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-ranker/pkg/types"
)

func TestWithDefaults(t *testing.T) {
	tests := []struct {
		name      string
		in        types.EmbedderConfig
		wantModel string
		wantURL   string
	}{
		{"empty selects tei", types.EmbedderConfig{}, DefaultTEIModel, DefaultTEIBaseURL},
		{"openai model", types.EmbedderConfig{Provider: types.ProviderOpenAI}, DefaultOpenAIModel, ""},
		{"explicit model kept", types.EmbedderConfig{Provider: types.ProviderTEI, Model: "BAAI/bge-small-en-v1.5"}, "BAAI/bge-small-en-v1.5", DefaultTEIBaseURL},
		{"azure has no default model", types.EmbedderConfig{Provider: types.ProviderAzure}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithDefaults(tt.in)
			assert.Equal(t, tt.wantModel, got.Model)
			assert.Equal(t, tt.wantURL, got.BaseURL)
			assert.Equal(t, DefaultBatchSize, got.BatchSize)
			assert.Equal(t, defaultTimeout, got.Timeout)
		})
	}
}

func TestNewConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  types.EmbedderConfig
	}{
		{"unknown provider", types.EmbedderConfig{Provider: "word2vec"}},
		{"openai without key", types.EmbedderConfig{Provider: types.ProviderOpenAI}},
		{"azure without deployment", types.EmbedderConfig{Provider: types.ProviderAzure, APIKey: "k", BaseURL: "https://x.openai.azure.com"}},
		{"azure without key", types.EmbedderConfig{Provider: types.ProviderAzure, Model: "emb"}},
		{"azure without endpoint", types.EmbedderConfig{Provider: types.ProviderAzure, Model: "emb", APIKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			assert.ErrorIs(t, err, ErrNotConfigured)
		})
	}
}

func TestNewTEIProvider(t *testing.T) {
	p, err := New(context.Background(), types.EmbedderConfig{})
	require.NoError(t, err)

	tei, ok := p.(*TEIProvider)
	require.True(t, ok, "default provider should be TEI, got %T", p)
	assert.Equal(t, DefaultTEIBaseURL, tei.BaseURL)
	assert.Equal(t, DefaultTEIModel, tei.Model)
}

func TestEmbedNonBlankEmptyInput(t *testing.T) {
	called := false
	vecs, err := embedNonBlank(context.Background(), nil, 4, func(context.Context, []string) ([][]float32, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.False(t, called)
}

func TestAzureProviderRequest(t *testing.T) {
	var gotPath, gotKey string
	var gotInputs []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("api-key")
		var body struct {
			Input []string `json:"input"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotInputs = body.Input

		// Answer out of order to check index-based ordering.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","model":"emb","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"usage":{"prompt_tokens":2,"total_tokens":2}}`))
	}))
	defer ts.Close()

	p, err := New(context.Background(), types.EmbedderConfig{
		Provider: types.ProviderAzure,
		BaseURL:  ts.URL,
		APIKey:   "secret",
		Model:    "paper-embeddings",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)

	vecs, err := p.EmbedBatch(context.Background(), []string{"first", "", "second"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 0}, nil, {0, 1}}, vecs)
	assert.Equal(t, []string{"first", "second"}, gotInputs)
	assert.Equal(t, "secret", gotKey)
	assert.True(t, strings.Contains(gotPath, "/openai/deployments/paper-embeddings/embeddings"), "path %q", gotPath)
}
