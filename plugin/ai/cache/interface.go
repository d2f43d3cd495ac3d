// Package cache keeps computed embedding vectors so repeated texts skip the provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/pkg/errors"
)

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time, zero uses the service default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EmbeddingKey returns the cache key of text embedded with model.
func EmbeddingKey(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return "embedding:" + model + ":" + hex.EncodeToString(h[:])
}

// EncodeVector serializes a vector as little endian float32 values.
func EncodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, errors.Errorf("invalid vector payload length %d", len(data))
	}
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return vector, nil
}
