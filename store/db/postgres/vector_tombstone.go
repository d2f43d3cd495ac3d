package postgres

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/vectornotes/store"
)

func (d *DB) CreateVectorTombstone(ctx context.Context, create *store.VectorTombstone) error {
	stmt := `INSERT INTO vector_tombstone (note_id, user_id, created_ts) VALUES ($1, $2, $3) ON CONFLICT (note_id) DO NOTHING`
	if _, err := d.db.ExecContext(ctx, stmt, create.NoteID, create.UserID, create.CreatedTs); err != nil {
		return errors.Wrap(err, "failed to create vector tombstone")
	}
	return nil
}

func (d *DB) ListVectorTombstones(ctx context.Context, limit int) ([]*store.VectorTombstone, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.db.QueryContext(ctx, `SELECT note_id, user_id, created_ts FROM vector_tombstone ORDER BY created_ts ASC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list vector tombstones")
	}
	defer rows.Close()

	list := []*store.VectorTombstone{}
	for rows.Next() {
		var tombstone store.VectorTombstone
		if err := rows.Scan(&tombstone.NoteID, &tombstone.UserID, &tombstone.CreatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector tombstone")
		}
		list = append(list, &tombstone)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteVectorTombstone(ctx context.Context, noteID string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM vector_tombstone WHERE note_id = $1`, noteID); err != nil {
		return errors.Wrap(err, "failed to delete vector tombstone")
	}
	return nil
}
