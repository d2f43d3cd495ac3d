// Package note keeps note records and their vectors consistent.
//
// A note with non-empty content owns exactly one vector in the index, keyed by the
// note id and tagged with the owner's user id. The vector embeds the content only;
// title and tags never influence it.
//
// When the store write succeeds but the vector write fails, the note is kept and the
// call returns it together with an INDEX_PENDING error. The store remembers the note
// as pending and the reindex runner backfills it. Failed vector deletions are recorded
// as tombstones and retried the same way.
//
// Concurrent operations on the same note are not serialized. The last write to each
// backend wins, which can leave a short-lived mismatch until the next write or the
// next reindex pass.
package note

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
	"github.com/hrygo/vectornotes/plugin/ai"
	"github.com/hrygo/vectornotes/plugin/ai/vector"
	"github.com/hrygo/vectornotes/server/internal/observability"
	"github.com/hrygo/vectornotes/store"
)

const (
	// DefaultPageSize is used by callers that omit a page size.
	DefaultPageSize = 20
	// MaxPageSize bounds a single list page.
	MaxPageSize = 100

	// DefaultSearchLimit is used by callers that omit a search limit.
	DefaultSearchLimit = 5
	// MaxSearchLimit bounds the number of search results.
	MaxSearchLimit = 50
	// MinQueryLength is the minimum number of characters of a trimmed search query.
	MinQueryLength = 3

	// maxIndexAttempts bounds how often IndexNote chases a note that keeps changing.
	maxIndexAttempts = 3
)

// Store is the subset of the note store used by the service.
type Store interface {
	CreateNote(ctx context.Context, create *store.Note) (*store.Note, error)
	GetNote(ctx context.Context, id, userID string) (*store.Note, error)
	ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error)
	UpdateNote(ctx context.Context, update *store.UpdateNote) (*store.Note, error)
	DeleteNote(ctx context.Context, delete *store.DeleteNote) (bool, error)
	MarkNoteIndexed(ctx context.Context, id string, updatedTs int64) (bool, error)
	CreateVectorTombstone(ctx context.Context, create *store.VectorTombstone) error
}

// CreateNote is the input of Service.Create.
type CreateNote struct {
	Content string
	Tags    []string
}

// UpdateNote is a partial update. Nil fields are left unchanged.
type UpdateNote struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// IsEmpty reports whether the update carries no field.
func (u *UpdateNote) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Tags == nil
}

// Service coordinates the note store, the embedding provider and the vector index.
// It holds no state of its own and is safe for concurrent use.
type Service struct {
	store    Store
	embedder ai.EmbeddingService
	index    vector.Index
}

// NewService creates a new note service.
func NewService(store Store, embedder ai.EmbeddingService, index vector.Index) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		index:    index,
	}
}

// Create stores a new note and indexes its content.
// On a vector failure the stored note is returned together with an INDEX_PENDING error.
func (s *Service) Create(ctx context.Context, userID string, create *CreateNote) (*store.Note, error) {
	if userID == "" {
		return nil, apperrors.InvalidArgument("user id is required")
	}

	note, err := s.store.CreateNote(ctx, &store.Note{
		UserID:  userID,
		Title:   DeriveTitle(create.Content),
		Content: create.Content,
		Tags:    normalizeTags(create.Tags),
	})
	if err != nil {
		return nil, err
	}
	if note.Content == "" {
		return note, nil
	}
	if err := s.syncVector(ctx, note); err != nil {
		return note, err
	}
	return note, nil
}

// Get returns the note with id owned by userID.
func (s *Service) Get(ctx context.Context, id, userID string) (*store.Note, error) {
	note, err := s.store.GetNote(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, apperrors.NotFound("note not found")
	}
	return note, nil
}

// List returns one page of the user's notes, newest first. Pages start at 1.
func (s *Service) List(ctx context.Context, userID string, page, pageSize int) ([]*store.Note, error) {
	if page < 1 {
		return nil, apperrors.InvalidArgumentf("page must be at least 1, got %d", page)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, apperrors.InvalidArgumentf("page size must be between 1 and %d, got %d", MaxPageSize, pageSize)
	}

	offset := (page - 1) * pageSize
	return s.store.ListNotes(ctx, &store.FindNote{
		UserID: userID,
		Limit:  &pageSize,
		Offset: &offset,
	})
}

// Update applies a partial update. The vector is refreshed only when content is part
// of the update; clearing the content removes the vector. Titles are never re-derived.
func (s *Service) Update(ctx context.Context, id, userID string, update *UpdateNote) (*store.Note, error) {
	existing, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return existing, nil
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, apperrors.InvalidArgument("title must not be empty")
	}

	storeUpdate := &store.UpdateNote{
		ID:      id,
		UserID:  userID,
		Title:   update.Title,
		Content: update.Content,
	}
	if update.Tags != nil {
		tags := normalizeTags(*update.Tags)
		storeUpdate.Tags = &tags
	}
	note, err := s.store.UpdateNote(ctx, storeUpdate)
	if err != nil {
		return nil, err
	}
	if note == nil {
		// Deleted between the lookup and the write.
		return nil, apperrors.NotFound("note not found")
	}
	if update.Content == nil {
		return note, nil
	}
	if err := s.syncVector(ctx, note); err != nil {
		return note, err
	}
	return note, nil
}

// Delete removes the note and its vector. It reports false when no note matched.
// A failed vector deletion is recorded for retry and reported as INDEX_PENDING.
func (s *Service) Delete(ctx context.Context, id, userID string) (bool, error) {
	deleted, err := s.store.DeleteNote(ctx, &store.DeleteNote{ID: id, UserID: userID})
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}
	if err := s.PurgeVector(ctx, id, userID); err != nil {
		return true, err
	}
	return true, nil
}

// Search returns the user's notes most similar to query, best match first.
// Notes deleted after they were indexed are skipped.
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]*store.Note, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return nil, apperrors.InvalidArgumentf("query must be at least %d characters", MinQueryLength)
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, apperrors.InvalidArgumentf("limit must be between 1 and %d, got %d", MaxSearchLimit, limit)
	}

	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	ids, err := s.index.Search(ctx, userID, queryVector, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*store.Note{}, nil
	}

	list, err := s.store.ListNotes(ctx, &store.FindNote{UserID: userID, IDList: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*store.Note, len(list))
	for _, note := range list {
		byID[note.ID] = note
	}
	result := make([]*store.Note, 0, len(ids))
	for _, id := range ids {
		if note, ok := byID[id]; ok {
			result = append(result, note)
		}
	}
	if dropped := len(ids) - len(result); dropped > 0 {
		observability.Logger(ctx).Debug("search skipped vectors without a note", slog.Int("count", dropped))
	}
	return result, nil
}

// IndexNote writes the vector for the current content of note and marks that
// version indexed. Blank content has no vector, so any stale one is removed.
//
// note may be an older snapshot. When the stored note moved on while the vector was
// written, the vector just written may be stale, so the current version is read back
// and indexed again. A note deleted in the meantime loses the vector.
func (s *Service) IndexNote(ctx context.Context, note *store.Note) error {
	for attempt := 1; ; attempt++ {
		if err := s.writeVector(ctx, note); err != nil {
			return err
		}
		if !s.markIndexed(ctx, note) {
			return nil
		}

		current, err := s.store.GetNote(ctx, note.ID, note.UserID)
		if err != nil {
			return err
		}
		if current == nil {
			return s.index.Delete(ctx, note.ID)
		}
		if attempt == maxIndexAttempts {
			return apperrors.IndexPending(note.ID, errors.New("note changed while indexing"))
		}
		observability.Logger(ctx).Debug("note changed while indexing, retrying",
			slog.String(observability.LogFieldNoteID, note.ID),
			slog.Int("attempt", attempt),
		)
		note = current
	}
}

func (s *Service) writeVector(ctx context.Context, note *store.Note) error {
	if isBlank(note.Content) {
		return s.index.Delete(ctx, note.ID)
	}
	embedding, err := s.embedder.Embed(ctx, note.Content)
	if err != nil {
		return err
	}
	return s.index.Upsert(ctx, note.ID, note.UserID, embedding)
}

// PurgeVector removes the vector of a note. When the index call fails a tombstone is
// written and INDEX_PENDING is returned. The index error itself is returned only if
// the tombstone could not be written either.
func (s *Service) PurgeVector(ctx context.Context, id, userID string) error {
	err := s.index.Delete(ctx, id)
	if err == nil {
		return nil
	}

	logger := observability.Logger(ctx).With(slog.String(observability.LogFieldNoteID, id))
	tombstone := &store.VectorTombstone{NoteID: id, UserID: userID, CreatedTs: time.Now().UnixMilli()}
	if tombErr := s.store.CreateVectorTombstone(ctx, tombstone); tombErr != nil {
		logger.Error("failed to record vector tombstone", slog.String("error", tombErr.Error()))
		return err
	}
	logger.Warn("vector delete deferred", slog.String("error", err.Error()))
	return apperrors.IndexPending(id, err)
}

// syncVector brings the vector in line with the stored note after a write.
func (s *Service) syncVector(ctx context.Context, note *store.Note) error {
	if isBlank(note.Content) {
		err := s.PurgeVector(ctx, note.ID, note.UserID)
		if err != nil {
			return err
		}
		if !s.markIndexed(ctx, note) {
			return nil
		}
		// Written again meanwhile: index whatever is stored now.
	}

	if err := s.IndexNote(ctx, note); err != nil {
		observability.Logger(ctx).Warn("vector write deferred",
			slog.String(observability.LogFieldNoteID, note.ID),
			slog.String("error", err.Error()),
		)
		return apperrors.IndexPending(note.ID, err)
	}
	return nil
}

// markIndexed records the indexed version and reports whether the stored note has
// moved past it. A store failure only delays the bookkeeping: the reindex runner
// embeds the note again.
func (s *Service) markIndexed(ctx context.Context, note *store.Note) (superseded bool) {
	marked, err := s.store.MarkNoteIndexed(ctx, note.ID, note.UpdatedTs)
	if err != nil {
		observability.Logger(ctx).Warn("failed to mark note indexed",
			slog.String(observability.LogFieldNoteID, note.ID),
			slog.String("error", err.Error()),
		)
		return false
	}
	if !marked {
		return true
	}
	note.IndexedTs = note.UpdatedTs
	return false
}

func isBlank(content string) bool {
	return strings.TrimSpace(content) == ""
}

// normalizeTags trims tags and drops blanks and duplicates, keeping the first occurrence.
func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}
	return result
}
