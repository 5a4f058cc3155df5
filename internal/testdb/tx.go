package testdb

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// WithTx runs fn inside a transaction that is rolled back afterwards, even
// when fn commits nothing or panics.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to roll back test transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// InsertUser adds a directory entry; most tables reference users.
func InsertUser(t *testing.T, tx *sql.Tx, id, name, email string) {
	t.Helper()
	_, err := tx.Exec(`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`, id, name, email)
	require.NoError(t, err, "failed to insert user")
}
