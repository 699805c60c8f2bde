// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// stubProvider maps known texts to fixed vectors. Unknown texts get
// fallback; blank texts get nil like the real providers.
type stubProvider struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	calls    atomic.Int32
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if t == "" {
			continue
		}
		if v, ok := s.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = s.fallback
		}
	}
	return out, nil
}

// shortProvider always returns one vector too few.
type shortProvider struct{}

func (shortProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return make([][]float32, len(texts)-1), nil
}

// healthStub adds a health check to a stubProvider.
type healthStub struct {
	*stubProvider
	healthErr error
}

func (h healthStub) Health(context.Context) error { return h.healthErr }

var errBackendDown = errors.New("backend down")

// memCache is an in-memory embedding.VectorCache.
type memCache struct {
	mu   sync.Mutex
	vecs map[string][]float32
}

func newMemCache() *memCache { return &memCache{vecs: map[string][]float32{}} }

func (m *memCache) GetVectors(_ context.Context, model string, keys []string) (map[string][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]float32{}
	for _, k := range keys {
		if v, ok := m.vecs[model+"/"+k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memCache) PutVectors(_ context.Context, model string, vectors map[string][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range vectors {
		m.vecs[model+"/"+k] = v
	}
	return nil
}
