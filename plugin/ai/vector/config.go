package vector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hrygo/vectornotes/internal/profile"
)

// Config selects and configures an Index backend.
type Config struct {
	Backend    string // qdrant, pgvector, memory
	Collection string
	Dimensions int
	Timeout    time.Duration

	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string
	QdrantUseTLS bool
}

// NewConfigFromProfile creates the index config from profile.
func NewConfigFromProfile(p *profile.Profile) Config {
	return Config{
		Backend:      p.VectorBackend,
		Collection:   p.VectorCollection,
		Dimensions:   p.EmbeddingDimensions,
		Timeout:      p.VectorTimeout,
		QdrantHost:   p.QdrantHost,
		QdrantPort:   p.QdrantPort,
		QdrantAPIKey: p.QdrantAPIKey,
		QdrantUseTLS: p.QdrantUseTLS,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// New creates the configured backend and ensures its collection exists.
// db is only used by the pgvector backend.
func New(ctx context.Context, cfg Config, db *sql.DB) (Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("invalid vector dimensions: %d", cfg.Dimensions)
	}

	var index Index
	var err error
	switch cfg.Backend {
	case "qdrant":
		index, err = NewQdrantIndex(cfg)
	case "pgvector":
		if db == nil {
			return nil, fmt.Errorf("pgvector backend requires a postgres connection")
		}
		index, err = NewPGVectorIndex(db, cfg)
	case "memory":
		index = NewMemoryIndex(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := index.EnsureCollection(ctx); err != nil {
		index.Close()
		return nil, err
	}
	return index, nil
}
