package embed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/lockstep-fin/lockstep/internal/service"
)

// CachingProvider wraps an embedding provider with a content-hash cache:
// identical source text never hits the upstream API twice within a process.
// Embeddings are deterministic per (model, text), so entries never expire.
type CachingProvider struct {
	inner   service.EmbeddingProvider
	entries map[string][]float64
	mu      sync.RWMutex
}

// NewCachingProvider wraps a provider with an in-memory content-hash cache.
func NewCachingProvider(inner service.EmbeddingProvider) *CachingProvider {
	return &CachingProvider{
		inner:   inner,
		entries: make(map[string][]float64),
	}
}

// Embed returns a cached vector for previously seen text, otherwise delegates
// to the wrapped provider. Errors are never cached.
func (c *CachingProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	key := contentHash(text)

	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	vector, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = vector
	c.mu.Unlock()

	return vector, nil
}

func contentHash(text string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(text)))
}
