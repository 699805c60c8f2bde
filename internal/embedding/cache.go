// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
)

// VectorCache stores vectors keyed by model and text hash.
type VectorCache interface {
	GetVectors(ctx context.Context, model string, keys []string) (map[string][]float32, error)
	PutVectors(ctx context.Context, model string, vectors map[string][]float32) error
}

// CachedProvider serves vectors from a VectorCache and sends only the
// misses to the wrapped provider, in one call. Because the provider is
// deterministic per text, cached and uncached runs score identically.
type CachedProvider struct {
	inner  Provider
	cache  VectorCache
	model  string
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachedProvider wraps inner. model keys the cache so vectors from
// different models never mix.
func NewCachedProvider(inner Provider, cache VectorCache, model string) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache, model: model}
}

// TextKey returns the cache key for a text.
func TextKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EmbedBatch implements Provider.
func (c *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	// Blank texts keep an empty key: they embed to nil without a lookup.
	keys := make([]string, len(texts))
	lookup := make([]string, 0, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		keys[i] = TextKey(t)
		lookup = append(lookup, keys[i])
	}
	if len(lookup) == 0 {
		return make([][]float32, len(texts)), nil
	}

	cached, err := c.cache.GetVectors(ctx, c.model, lookup)
	if err != nil {
		return nil, fmt.Errorf("reading embedding cache: %w", err)
	}

	// Each distinct missing text is sent once.
	var missTexts []string
	missIndex := make(map[string]int)
	for i, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := cached[k]; ok {
			continue
		}
		if _, queued := missIndex[k]; queued {
			continue
		}
		missIndex[k] = len(missTexts)
		missTexts = append(missTexts, texts[i])
	}
	c.hits.Add(int64(len(lookup) - len(missTexts)))
	c.misses.Add(int64(len(missTexts)))

	var fresh [][]float32
	if len(missTexts) > 0 {
		fresh, err = c.inner.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		if len(fresh) != len(missTexts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrBadResponse, len(fresh), len(missTexts))
		}

		toStore := make(map[string][]float32, len(fresh))
		for k, idx := range missIndex {
			if len(fresh[idx]) > 0 {
				toStore[k] = fresh[idx]
			}
		}
		if len(toStore) > 0 {
			if err := c.cache.PutVectors(ctx, c.model, toStore); err != nil {
				return nil, fmt.Errorf("writing embedding cache: %w", err)
			}
		}
	}

	out := make([][]float32, len(texts))
	for i, k := range keys {
		if k == "" {
			continue
		}
		if v, ok := cached[k]; ok {
			out[i] = v
			continue
		}
		out[i] = fresh[missIndex[k]]
	}
	return out, nil
}

// Health delegates to the wrapped provider when it supports health checks.
func (c *CachedProvider) Health(ctx context.Context) error {
	if hc, ok := c.inner.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}

// Stats returns the number of texts served from the cache and sent to the
// wrapped provider since construction.
func (c *CachedProvider) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
