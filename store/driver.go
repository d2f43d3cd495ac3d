package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
// Every note read or write that targets an existing record is scoped by user id.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Note model related methods.
	CreateNote(ctx context.Context, create *Note) (*Note, error)
	ListNotes(ctx context.Context, find *FindNote) ([]*Note, error)
	// UpdateNote returns nil when no note matches the id and user id.
	UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error)
	DeleteNote(ctx context.Context, delete *DeleteNote) (bool, error)

	// Vector sync bookkeeping.
	MarkNoteIndexed(ctx context.Context, id string, updatedTs int64) (bool, error)
	FindNotesPendingIndex(ctx context.Context, find *FindNotesPendingIndex) ([]*Note, error)

	// VectorTombstone model related methods.
	CreateVectorTombstone(ctx context.Context, create *VectorTombstone) error
	ListVectorTombstones(ctx context.Context, limit int) ([]*VectorTombstone, error)
	DeleteVectorTombstone(ctx context.Context, noteID string) error
}
