package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/vectornotes/internal/profile"
	"github.com/hrygo/vectornotes/store"
	"github.com/hrygo/vectornotes/store/db/postgres"
	"github.com/hrygo/vectornotes/store/db/sqlite"
)

// ============================================================================
// DATABASE SUPPORT POLICY
// ============================================================================
// This project supports only PostgreSQL and SQLite databases.
//
// PostgreSQL: production note store, optionally hosting the pgvector index.
// SQLite: development and tests. Pair it with the qdrant or memory index.
// ============================================================================

// NewDBDriver creates new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
