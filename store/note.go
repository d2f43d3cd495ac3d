package store

import (
	"context"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
)

// Note is a free-text note owned by a single user.
type Note struct {
	ID      string
	UserID  string
	Title   string
	Content string
	Tags    []string

	// Timestamps in unix milliseconds.
	CreatedTs int64
	UpdatedTs int64
	// IndexedTs is the UpdatedTs whose content is known to be in the vector index.
	IndexedTs int64
}

// IsIndexPending reports whether the note content still lacks an up-to-date vector.
func (n *Note) IsIndexPending() bool {
	return n.Content != "" && n.IndexedTs != n.UpdatedTs
}

// FindNote is the find condition for notes.
// UserID is always required; drivers refuse unscoped queries.
type FindNote struct {
	UserID string
	ID     *string
	IDList []string

	Limit  *int
	Offset *int
}

// FindNotesPendingIndex selects notes across users whose vector is missing or stale.
type FindNotesPendingIndex struct {
	Limit int
}

// UpdateNote is a partial update. Nil fields keep their stored values.
type UpdateNote struct {
	ID     string
	UserID string

	Title   *string
	Content *string
	Tags    *[]string
}

// IsEmpty reports whether the update carries no field.
func (u *UpdateNote) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Tags == nil
}

// DeleteNote is the delete condition for a note.
type DeleteNote struct {
	ID     string
	UserID string
}

// CreateNote inserts a note. The driver assigns ID and timestamps.
func (s *Store) CreateNote(ctx context.Context, create *Note) (*Note, error) {
	if create.Tags == nil {
		create.Tags = []string{}
	}
	note, err := s.driver.CreateNote(ctx, create)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to create note", err)
	}
	return note, nil
}

// ListNotes lists notes of one user ordered by creation time, newest first.
func (s *Store) ListNotes(ctx context.Context, find *FindNote) ([]*Note, error) {
	if find.UserID == "" {
		return nil, apperrors.InvalidArgument("user id is required")
	}
	list, err := s.driver.ListNotes(ctx, find)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to list notes", err)
	}
	return list, nil
}

// GetNote returns the note with the given id owned by userID, or nil if absent.
func (s *Store) GetNote(ctx context.Context, id, userID string) (*Note, error) {
	list, err := s.ListNotes(ctx, &FindNote{UserID: userID, ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateNote applies a partial update and returns the stored note, or nil if absent.
// An empty update returns the current record without writing.
func (s *Store) UpdateNote(ctx context.Context, update *UpdateNote) (*Note, error) {
	if update.IsEmpty() {
		return s.GetNote(ctx, update.ID, update.UserID)
	}
	note, err := s.driver.UpdateNote(ctx, update)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to update note", err)
	}
	return note, nil
}

// DeleteNote deletes a note and reports whether a record was removed.
func (s *Store) DeleteNote(ctx context.Context, delete *DeleteNote) (bool, error) {
	deleted, err := s.driver.DeleteNote(ctx, delete)
	if err != nil {
		return false, apperrors.StoreUnavailable("failed to delete note", err)
	}
	return deleted, nil
}

// MarkNoteIndexed records that the content written at updatedTs has a vector.
// It reports false, without writing, when the note is gone or was written again since.
func (s *Store) MarkNoteIndexed(ctx context.Context, id string, updatedTs int64) (bool, error) {
	marked, err := s.driver.MarkNoteIndexed(ctx, id, updatedTs)
	if err != nil {
		return false, apperrors.StoreUnavailable("failed to mark note indexed", err)
	}
	return marked, nil
}

// FindNotesPendingIndex lists notes with non-empty content whose vector is missing or stale.
func (s *Store) FindNotesPendingIndex(ctx context.Context, find *FindNotesPendingIndex) ([]*Note, error) {
	list, err := s.driver.FindNotesPendingIndex(ctx, find)
	if err != nil {
		return nil, apperrors.StoreUnavailable("failed to find notes pending index", err)
	}
	return list, nil
}
