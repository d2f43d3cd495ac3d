package ai

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/vectornotes/plugin/ai/cache"
)

// DefaultEmbeddingCacheTTL is how long a cached vector is reused.
const DefaultEmbeddingCacheTTL = 24 * time.Hour

// CachedEmbeddingService reuses vectors of texts embedded before with the same model.
// Failed calls are never cached.
type CachedEmbeddingService struct {
	embedder EmbeddingService
	cache    cache.CacheService
	ttl      time.Duration
}

// NewCachedEmbeddingService wraps embedder with c.
func NewCachedEmbeddingService(embedder EmbeddingService, c cache.CacheService, ttl time.Duration) *CachedEmbeddingService {
	if ttl <= 0 {
		ttl = DefaultEmbeddingCacheTTL
	}
	return &CachedEmbeddingService{
		embedder: embedder,
		cache:    c,
		ttl:      ttl,
	}
}

func (s *CachedEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch forwards only the cache misses to the wrapped service.
func (s *CachedEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	missTexts, missPositions := []string{}, []int{}
	for i, text := range texts {
		if vector, ok := s.lookup(ctx, text); ok {
			vectors[i] = vector
			continue
		}
		missTexts = append(missTexts, text)
		missPositions = append(missPositions, i)
	}
	if len(missTexts) == 0 && len(texts) > 0 {
		return vectors, nil
	}

	computed, err := s.embedder.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for i, vector := range computed {
		vectors[missPositions[i]] = vector
		key := cache.EmbeddingKey(s.embedder.Model(), missTexts[i])
		if err := s.cache.Set(ctx, key, cache.EncodeVector(vector), s.ttl); err != nil {
			slog.Warn("failed to cache embedding", "error", err)
		}
	}
	return vectors, nil
}

func (s *CachedEmbeddingService) lookup(ctx context.Context, text string) ([]float32, bool) {
	data, ok := s.cache.Get(ctx, cache.EmbeddingKey(s.embedder.Model(), text))
	if !ok {
		return nil, false
	}
	vector, err := cache.DecodeVector(data)
	if err != nil || len(vector) != s.embedder.Dimensions() {
		return nil, false
	}
	return vector, true
}

func (s *CachedEmbeddingService) Dimensions() int {
	return s.embedder.Dimensions()
}

func (s *CachedEmbeddingService) Model() string {
	return s.embedder.Model()
}

var _ EmbeddingService = (*CachedEmbeddingService)(nil)
