package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
	"github.com/hrygo/vectornotes/server/auth"
	"github.com/hrygo/vectornotes/server/service/note"
	"github.com/hrygo/vectornotes/store"
)

// Note is the JSON representation of a note.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateNoteRequest is the body of POST /notes.
type CreateNoteRequest struct {
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

// UpdateNoteRequest is the body of PUT /notes/:id. Omitted fields are left unchanged.
type UpdateNoteRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

func convertNoteFromStore(n *store.Note) *Note {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Note{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      tags,
		CreatedAt: time.UnixMilli(n.CreatedTs).UTC(),
		UpdatedAt: time.UnixMilli(n.UpdatedTs).UTC(),
	}
}

func convertNotesFromStore(list []*store.Note) []*Note {
	notes := make([]*Note, 0, len(list))
	for _, n := range list {
		notes = append(notes, convertNoteFromStore(n))
	}
	return notes
}

// CreateNote creates a note for the caller.
// POST /notes
func (s *APIV1Service) CreateNote(c echo.Context) error {
	var req CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidArgument("invalid request body"))
	}
	if req.Content == nil {
		return writeError(c, apperrors.InvalidArgument("content is required"))
	}

	ctx := c.Request().Context()
	created, err := s.NoteService.Create(ctx, auth.GetUserID(ctx), &note.CreateNote{Content: *req.Content, Tags: req.Tags})
	return writeNote(c, http.StatusCreated, created, err)
}

// ListNotes lists the caller's notes, newest first.
// GET /notes?page=1&page_size=20
func (s *APIV1Service) ListNotes(c echo.Context) error {
	page, err := intQueryParam(c, "page", 1)
	if err != nil {
		return writeError(c, err)
	}
	pageSize, err := intQueryParam(c, "page_size", note.DefaultPageSize)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	list, err := s.NoteService.List(ctx, auth.GetUserID(ctx), page, pageSize)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertNotesFromStore(list))
}

// SearchNotes returns the caller's notes most similar to q.
// GET /notes/search?q=...&limit=5
func (s *APIV1Service) SearchNotes(c echo.Context) error {
	limit, err := intQueryParam(c, "limit", note.DefaultSearchLimit)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	list, err := s.NoteService.Search(ctx, auth.GetUserID(ctx), c.QueryParam("q"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertNotesFromStore(list))
}

// GetNote returns one of the caller's notes.
// GET /notes/:id
func (s *APIV1Service) GetNote(c echo.Context) error {
	id, err := noteIDParam(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	n, err := s.NoteService.Get(ctx, id, auth.GetUserID(ctx))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, convertNoteFromStore(n))
}

// UpdateNote applies a partial update to one of the caller's notes.
// PUT /notes/:id
func (s *APIV1Service) UpdateNote(c echo.Context) error {
	id, err := noteIDParam(c)
	if err != nil {
		return writeError(c, err)
	}
	var req UpdateNoteRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidArgument("invalid request body"))
	}

	ctx := c.Request().Context()
	updated, err := s.NoteService.Update(ctx, id, auth.GetUserID(ctx), &note.UpdateNote{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	return writeNote(c, http.StatusOK, updated, err)
}

// DeleteNote deletes one of the caller's notes.
// DELETE /notes/:id
func (s *APIV1Service) DeleteNote(c echo.Context) error {
	id, err := noteIDParam(c)
	if err != nil {
		return writeError(c, err)
	}

	ctx := c.Request().Context()
	deleted, err := s.NoteService.Delete(ctx, id, auth.GetUserID(ctx))
	if deleted && apperrors.IsCode(err, apperrors.ErrCodeIndexPending) {
		c.Response().Header().Set("Warning", pendingWarning(err))
		return c.NoContent(http.StatusAccepted)
	}
	if err != nil {
		return writeError(c, err)
	}
	if !deleted {
		return writeError(c, apperrors.NotFound("note not found"))
	}
	return c.NoContent(http.StatusNoContent)
}

// writeNote writes the result of a write. A note saved with a deferred index update
// is answered with 202 and a Warning header.
func writeNote(c echo.Context, status int, n *store.Note, err error) error {
	if n != nil && apperrors.IsCode(err, apperrors.ErrCodeIndexPending) {
		c.Response().Header().Set("Warning", pendingWarning(err))
		return c.JSON(http.StatusAccepted, convertNoteFromStore(n))
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status, convertNoteFromStore(n))
}

func noteIDParam(c echo.Context) (string, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return "", apperrors.InvalidArgumentf("invalid note id %q", c.Param("id"))
	}
	return id.String(), nil
}

func intQueryParam(c echo.Context, name string, defaultValue int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidArgumentf("%s must be an integer", name)
	}
	return v, nil
}
