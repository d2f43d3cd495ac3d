package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/vectornotes/plugin/ai/cache"
)

func newTestCache() *cache.MemoryCache {
	return cache.NewMemoryCache(cache.MemoryConfig{Capacity: 100, TTL: time.Minute})
}

func TestCachedEmbeddingService(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{dimensions: 4}
	svc := NewCachedEmbeddingService(newTestEmbeddingService(t, provider, 4, time.Second), newTestCache(), 0)

	first, err := svc.Embed(ctx, "hello")
	require.NoError(t, err)
	second, err := svc.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), provider.calls.Load())

	vectors, err := svc.EmbedBatch(ctx, []string{"hello", "world!"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(5), vectors[0][0])
	assert.Equal(t, float32(6), vectors[1][0])
	assert.Equal(t, int32(2), provider.calls.Load())
	assert.Equal(t, []string{"world!"}, provider.recorded()[1])

	assert.Equal(t, 4, svc.Dimensions())
	assert.Equal(t, "jina-embeddings-v3", svc.Model())
}

func TestCachedEmbeddingService_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{dimensions: 4, status: 503}
	c := newTestCache()
	svc := NewCachedEmbeddingService(newTestEmbeddingService(t, provider, 4, time.Second), c, 0)

	_, err := svc.Embed(ctx, "hello")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	provider.setStatus(0)
	vector, err := svc.Embed(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, float32(5), vector[0])
	assert.Equal(t, int32(2), provider.calls.Load())
}
