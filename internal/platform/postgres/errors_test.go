package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskpulse/internal/store"
	"github.com/stretchr/testify/assert"
)

func pgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "notification_claims",
		ColumnName:     "type",
		ConstraintName: "uq_notification_claims",
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	generic := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		notFound error
		want     error
	}{
		{"nil", nil, nil, nil},
		{"no rows default", sql.ErrNoRows, nil, store.ErrNotFound},
		{"no rows specific", sql.ErrNoRows, store.ErrTaskNotFound, store.ErrTaskNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), store.ErrUserNotFound, store.ErrUserNotFound},
		{"unique", pgError(uniqueViolationCode), nil, store.ErrDuplicate},
		{"foreign key", pgError(foreignKeyViolationCode), nil, store.ErrInvalidEntity},
		{"check", pgError(checkViolationCode), nil, store.ErrInvalidEntity},
		{"not null", pgError(notNullViolationCode), nil, store.ErrInvalidEntity},
		{"other pg error", pgError("40001"), nil, nil},
		{"generic", generic, nil, generic},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := MapError(tc.err, tc.notFound)
			switch {
			case tc.err == nil:
				assert.NoError(t, got)
			case tc.want == nil:
				assert.Equal(t, tc.err, got, "unmapped errors pass through")
			default:
				assert.ErrorIs(t, got, tc.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, IsUniqueViolation(pgError(uniqueViolationCode)))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", pgError(uniqueViolationCode))))
	assert.False(t, IsUniqueViolation(pgError(foreignKeyViolationCode)))
	assert.False(t, IsUniqueViolation(errors.New("generic")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestRowsAffectedOrNotFound(t *testing.T) {
	t.Parallel()

	assert.NoError(t, rowsAffectedOrNotFound(sqlmock.NewResult(0, 1), store.ErrTaskNotFound))
	assert.ErrorIs(t, rowsAffectedOrNotFound(sqlmock.NewResult(0, 0), store.ErrTaskNotFound), store.ErrTaskNotFound)
	assert.ErrorContains(t,
		rowsAffectedOrNotFound(sqlmock.NewErrorResult(errors.New("driver")), store.ErrTaskNotFound),
		"rows affected")
}
