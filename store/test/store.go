package test

import (
	"context"
	"os"
	"testing"

	"github.com/hrygo/vectornotes/internal/profile"
	"github.com/hrygo/vectornotes/store"
	"github.com/hrygo/vectornotes/store/db"
)

// NewTestingStore returns a migrated store. SQLite in memory is used unless
// DRIVER=postgres is set, in which case a PostgreSQL container is started.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	prof := getTestingProfile(t)
	dbDriver, err := db.NewDBDriver(prof)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	st := store.New(dbDriver, prof)
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

func getTestingProfile(t *testing.T) *profile.Profile {
	prof := &profile.Profile{
		Mode:   "dev",
		Driver: getDriverFromEnv(),
	}
	switch prof.Driver {
	case "postgres":
		prof.DSN = GetPostgresDSN(t)
	default:
		prof.DSN = ":memory:"
	}
	return prof
}

func getDriverFromEnv() string {
	if driver := os.Getenv("DRIVER"); driver != "" {
		return driver
	}
	return "sqlite"
}
