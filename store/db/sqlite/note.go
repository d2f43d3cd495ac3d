package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hrygo/vectornotes/store"
)

const noteColumns = "id, user_id, title, content, tags, created_ts, updated_ts, indexed_ts"

func (d *DB) CreateNote(ctx context.Context, create *store.Note) (*store.Note, error) {
	tags, err := marshalTags(create.Tags)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tags")
	}

	now := time.Now().UnixMilli()
	note := &store.Note{
		ID:        uuid.NewString(),
		UserID:    create.UserID,
		Title:     create.Title,
		Content:   create.Content,
		Tags:      create.Tags,
		CreatedTs: now,
		UpdatedTs: now,
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	stmt := `INSERT INTO note (id, user_id, title, content, tags, created_ts, updated_ts, indexed_ts) VALUES (` + placeholders(8) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		note.ID, note.UserID, note.Title, note.Content, tags, note.CreatedTs, note.UpdatedTs, note.IndexedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to insert note")
	}
	return note, nil
}

func (d *DB) ListNotes(ctx context.Context, find *store.FindNote) ([]*store.Note, error) {
	where, args := []string{"user_id = ?"}, []any{find.UserID}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if len(find.IDList) > 0 {
		where = append(where, "id IN ("+placeholders(len(find.IDList))+")")
		for _, id := range find.IDList {
			args = append(args, id)
		}
	}

	query := `SELECT ` + noteColumns + ` FROM note WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query, args = query+" LIMIT ?", append(args, *find.Limit)
		if find.Offset != nil {
			query, args = query+" OFFSET ?", append(args, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notes")
	}
	defer rows.Close()

	return scanNotes(rows)
}

func (d *DB) UpdateNote(ctx context.Context, update *store.UpdateNote) (*store.Note, error) {
	now := time.Now().UnixMilli()
	// updated_ts is strictly increasing so every write is observable.
	set, args := []string{"updated_ts = MAX(?, updated_ts + 1)"}, []any{now}

	if v := update.Title; v != nil {
		set, args = append(set, "title = ?"), append(args, *v)
	}
	if v := update.Content; v != nil {
		set, args = append(set, "content = ?"), append(args, *v)
	} else {
		// Content is unchanged: a note in sync stays in sync.
		set, args = append(set, "indexed_ts = CASE WHEN indexed_ts = updated_ts THEN MAX(?, updated_ts + 1) ELSE indexed_ts END"), append(args, now)
	}
	if v := update.Tags; v != nil {
		tags, err := marshalTags(*v)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal tags")
		}
		set, args = append(set, "tags = ?"), append(args, tags)
	}

	args = append(args, update.ID, update.UserID)
	stmt := `UPDATE note SET ` + strings.Join(set, ", ") + ` WHERE id = ? AND user_id = ? RETURNING ` + noteColumns

	note, err := scanNote(d.db.QueryRowContext(ctx, stmt, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update note")
	}
	return note, nil
}

func (d *DB) DeleteNote(ctx context.Context, delete *store.DeleteNote) (bool, error) {
	result, err := d.db.ExecContext(ctx, `DELETE FROM note WHERE id = ? AND user_id = ?`, delete.ID, delete.UserID)
	if err != nil {
		return false, errors.Wrap(err, "failed to delete note")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

func (d *DB) MarkNoteIndexed(ctx context.Context, id string, updatedTs int64) (bool, error) {
	result, err := d.db.ExecContext(ctx, `UPDATE note SET indexed_ts = updated_ts WHERE id = ? AND updated_ts = ?`, id, updatedTs)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark note indexed")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to get rows affected")
	}
	return rows > 0, nil
}

func (d *DB) FindNotesPendingIndex(ctx context.Context, find *store.FindNotesPendingIndex) ([]*store.Note, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + noteColumns + ` FROM note WHERE indexed_ts <> updated_ts AND content <> '' ORDER BY updated_ts ASC LIMIT ?`
	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find notes pending index")
	}
	defer rows.Close()

	return scanNotes(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*store.Note, error) {
	var note store.Note
	var tags string
	if err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.Title,
		&note.Content,
		&tags,
		&note.CreatedTs,
		&note.UpdatedTs,
		&note.IndexedTs,
	); err != nil {
		return nil, err
	}
	list, err := unmarshalTags(tags)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tags")
	}
	note.Tags = list
	return &note, nil
}

func scanNotes(rows *sql.Rows) ([]*store.Note, error) {
	list := []*store.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan note")
		}
		list = append(list, note)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
