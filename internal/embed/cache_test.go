package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	vector []float64
	err    error
	calls  int
}

func (p *countingProvider) Embed(_ context.Context, _ string) ([]float64, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.vector, nil
}

func TestCachingProviderDeduplicates(t *testing.T) {
	inner := &countingProvider{vector: []float64{0.1, 0.2}}
	cache := NewCachingProvider(inner)
	ctx := context.Background()

	first, err := cache.Embed(ctx, "Acme Software")
	require.NoError(t, err)
	second, err := cache.Embed(ctx, "Acme Software")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = cache.Embed(ctx, "different text")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachingProviderDoesNotCacheErrors(t *testing.T) {
	inner := &countingProvider{err: errors.New("provider down")}
	cache := NewCachingProvider(inner)
	ctx := context.Background()

	_, err := cache.Embed(ctx, "text")
	require.Error(t, err)

	inner.err = nil
	inner.vector = []float64{1}

	vector, err := cache.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, vector)
	assert.Equal(t, 2, inner.calls)
}
