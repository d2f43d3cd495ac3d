// Package vector stores one embedding per note and answers per-user nearest neighbor queries.
package vector

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single index call.
const DefaultTimeout = 10 * time.Second

// Index is a vector collection keyed by note id. Every entry carries the owner's user id.
// The collection is fixed at construction.
type Index interface {
	// EnsureCollection creates the collection when it does not exist yet.
	// Cosine metric, configured dimension, indexed user_id payload.
	EnsureCollection(ctx context.Context) error

	// Upsert replaces the entry for id. It returns once the write is acknowledged.
	Upsert(ctx context.Context, id, userID string, vector []float32) error

	// Search returns up to limit ids owned by userID, most similar first.
	// Equal scores are ordered by id. No match is an empty slice, not an error.
	Search(ctx context.Context, userID string, vector []float32, limit int) ([]string, error)

	// Delete removes the entry for id. Deleting an absent id succeeds.
	Delete(ctx context.Context, id string) error

	Close() error
}

// Match is a scored search hit.
type Match struct {
	ID    string
	Score float32
}
