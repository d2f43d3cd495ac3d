package vector

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/pgvector/pgvector-go"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// PGVectorIndex stores vectors in a PostgreSQL table next to the notes.
// The collection name is the table name.
type PGVectorIndex struct {
	db     *sql.DB
	config Config
	table  string
}

// NewPGVectorIndex uses db, which must point at a database with the vector extension available.
func NewPGVectorIndex(db *sql.DB, cfg Config) (*PGVectorIndex, error) {
	if !identifierPattern.MatchString(cfg.Collection) {
		return nil, fmt.Errorf("invalid pgvector collection name %q", cfg.Collection)
	}
	return &PGVectorIndex{
		db:     db,
		config: cfg,
		table:  cfg.Collection,
	}, nil
}

func (p *PGVectorIndex) EnsureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT NOT NULL PRIMARY KEY,
			user_id TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			updated_ts BIGINT NOT NULL
		)`, p.table, p.config.Dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_user_id ON %s (user_id)`, p.table, p.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING hnsw (embedding vector_cosine_ops)`, p.table, p.table),
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return indexError(ctx, "failed to ensure pgvector collection", err)
		}
	}
	return nil
}

func (p *PGVectorIndex) Upsert(ctx context.Context, id, userID string, vector []float32) error {
	if err := checkDimensions(vector, p.config.Dimensions); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	stmt := fmt.Sprintf(`INSERT INTO %s (id, user_id, embedding, updated_ts) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, embedding = EXCLUDED.embedding, updated_ts = EXCLUDED.updated_ts`, p.table)
	if _, err := p.db.ExecContext(ctx, stmt, id, userID, pgvector.NewVector(vector), time.Now().UnixMilli()); err != nil {
		return indexError(ctx, "failed to upsert vector", err)
	}
	return nil
}

// Search orders by cosine distance. Filtering by user can make an HNSW scan return fewer than limit rows.
// TODO: set hnsw.iterative_scan once pgvector 0.8 is the minimum supported version.
func (p *PGVectorIndex) Search(ctx context.Context, userID string, vector []float32, limit int) ([]string, error) {
	if err := checkDimensions(vector, p.config.Dimensions); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	query := fmt.Sprintf(`SELECT id FROM %s WHERE user_id = $1 ORDER BY embedding <=> $2, id LIMIT $3`, p.table)
	rows, err := p.db.QueryContext(ctx, query, userID, pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, indexError(ctx, "failed to search vectors", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, indexError(ctx, "failed to scan search result", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, indexError(ctx, "failed to search vectors", err)
	}
	return ids, nil
}

func (p *PGVectorIndex) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	if _, err := p.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, p.table), id); err != nil {
		return indexError(ctx, "failed to delete vector", err)
	}
	return nil
}

// Close is a no-op. The connection belongs to the note store.
func (p *PGVectorIndex) Close() error {
	return nil
}

// Vector returns the stored vector of id, or nil when absent.
func (p *PGVectorIndex) Vector(ctx context.Context, id string) ([]float32, error) {
	var v pgvector.Vector
	err := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT embedding FROM %s WHERE id = $1`, p.table), id).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, indexError(ctx, "failed to get vector", err)
	}
	return v.Slice(), nil
}

var _ Index = (*PGVectorIndex)(nil)
