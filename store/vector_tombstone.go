package store

import (
	"context"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
)

// VectorTombstone marks a deleted note whose vector removal must be retried.
type VectorTombstone struct {
	NoteID    string
	UserID    string
	CreatedTs int64
}

// CreateVectorTombstone records a pending vector removal. Recording the same id twice is not an error.
func (s *Store) CreateVectorTombstone(ctx context.Context, create *VectorTombstone) error {
	if err := s.driver.CreateVectorTombstone(ctx, create); err != nil {
		return apperrors.StoreUnavailable("failed to create vector tombstone", err)
	}
	return nil
}

// ListVectorTombstones lists pending vector removals, oldest first.
func (s *Store) ListVectorTombstones(ctx context.Context, limit int) ([]*VectorTombstone, error) {
	list, err := s.driver.ListVectorTombstones(ctx, limit)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to list vector tombstones", err)
	}
	return list, nil
}

// DeleteVectorTombstone removes a tombstone once its vector is gone.
func (s *Store) DeleteVectorTombstone(ctx context.Context, noteID string) error {
	if err := s.driver.DeleteVectorTombstone(ctx, noteID); err != nil {
		return apperrors.StoreUnavailable("failed to delete vector tombstone", err)
	}
	return nil
}
