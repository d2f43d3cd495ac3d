package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Stats counts embedding cache lookups since process start.
type Stats struct {
	Entries int   `json:"entries"`
	L1Hits  int64 `json:"l1_hits"`
	L2Hits  int64 `json:"l2_hits"`
	Misses  int64 `json:"misses"`
}

// HitRate returns the share of lookups served by either tier.
func (s Stats) HitRate() float64 {
	total := s.L1Hits + s.L2Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.L1Hits+s.L2Hits) / float64(total)
}

// TieredService reads through an in-process L1 to an optional shared L2.
//
// DEFAULT BEHAVIOR (single instance):
//   - L1 memory cache enabled
//   - L2 Redis disabled
//
// TO ENABLE REDIS (multi-instance):
//   - Set VECTORNOTES_CACHE_REDIS_ADDR
type TieredService struct {
	l1 *MemoryCache
	l2 CacheService

	l1Hits atomic.Int64
	l2Hits atomic.Int64
	misses atomic.Int64
}

// NewTieredService combines l1 with l2. l2 may be nil.
func NewTieredService(l1 *MemoryCache, l2 CacheService) *TieredService {
	return &TieredService{l1: l1, l2: l2}
}

// Get checks L1 first and backfills it on an L2 hit.
func (t *TieredService) Get(ctx context.Context, key string) ([]byte, bool) {
	if value, ok := t.l1.Get(ctx, key); ok {
		t.l1Hits.Add(1)
		return value, true
	}
	if t.l2 != nil {
		if value, ok := t.l2.Get(ctx, key); ok {
			t.l2Hits.Add(1)
			_ = t.l1.Set(ctx, key, value, 0)
			return value, true
		}
	}
	t.misses.Add(1)
	return nil, false
}

// Set writes both tiers. An L2 failure is logged and does not fail the write.
func (t *TieredService) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.l1.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	if t.l2 != nil {
		if err := t.l2.Set(ctx, key, value, ttl); err != nil {
			slog.Warn("failed to write L2 cache", "key", key, "error", err)
		}
	}
	return nil
}

// Stats returns the lookup counters and the L1 size.
func (t *TieredService) Stats() Stats {
	return Stats{
		Entries: t.l1.Len(),
		L1Hits:  t.l1Hits.Load(),
		L2Hits:  t.l2Hits.Load(),
		Misses:  t.misses.Load(),
	}
}

var _ CacheService = (*TieredService)(nil)
