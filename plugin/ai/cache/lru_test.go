package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryConfig{Capacity: 100, TTL: time.Minute})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "key1", []byte("value1"), 0))

		val, ok := c.Get(ctx, "key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := c.Get(ctx, "nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "key2", []byte("original"), 0))
		require.NoError(t, c.Set(ctx, "key2", []byte("updated"), 0))

		val, ok := c.Get(ctx, "key2")
		assert.True(t, ok)
		assert.Equal(t, []byte("updated"), val)
		assert.Equal(t, 2, c.Len())
	})
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryConfig{Capacity: 100, TTL: time.Minute})

	require.NoError(t, c.Set(ctx, "expiring", []byte("value"), 50*time.Millisecond))
	_, ok := c.Get(ctx, "expiring")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	val, ok := c.Get(ctx, "expiring")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryConfig{Capacity: 3, TTL: time.Minute})

	for _, key := range []string{"key1", "key2", "key3"} {
		require.NoError(t, c.Set(ctx, key, []byte(key), 0))
	}

	// key1 becomes the most recently used, so key2 is evicted next.
	c.Get(ctx, "key1")
	require.NoError(t, c.Set(ctx, "key4", []byte("key4"), 0))
	assert.Equal(t, 3, c.Len())

	_, ok := c.Get(ctx, "key2")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "key1")
	assert.True(t, ok)
}

func TestMemoryCache_Defaults(t *testing.T) {
	c := NewMemoryCache(MemoryConfig{})
	assert.Equal(t, DefaultMemoryConfig().Capacity, c.capacity)
	assert.Equal(t, DefaultMemoryConfig().TTL, c.ttl)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(MemoryConfig{Capacity: 10, TTL: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = c.Set(ctx, fmt.Sprintf("k%d", n%26), []byte{byte(n)}, 0)
		}(i)
		go func(n int) {
			defer wg.Done()
			c.Get(ctx, fmt.Sprintf("k%d", n%26))
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}
