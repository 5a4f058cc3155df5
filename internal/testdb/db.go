package testdb

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/taskpulse/internal/ciutil"
	"github.com/phrazzld/taskpulse/internal/platform/postgres"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds a single setup step against the database.
const TestTimeout = 10 * time.Second

var migrateOnce sync.Once
var migrateErr error

// Open returns a pool on the test database with every migration applied.
// The pool is closed when the test finishes.
func Open(t *testing.T) *sql.DB {
	t.Helper()

	url := ciutil.TestDatabaseURL(nil)
	if url == "" {
		if ciutil.IsCI() {
			t.Fatalf("%s must be set in CI", ciutil.EnvTestDatabaseURL)
		}
		t.Skipf("set %s to run database integration tests", ciutil.EnvTestDatabaseURL)
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to ping test database")

	migrateOnce.Do(func() {
		migrateErr = postgres.Migrate(ctx, db, "up", nil)
	})
	require.NoError(t, migrateErr, "failed to migrate test database")
	return db
}
