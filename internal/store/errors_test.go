package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		notFound  bool
		duplicate bool
	}{
		{"nil", nil, false, false},
		{"generic", errors.New("boom"), false, false},
		{"not found", ErrNotFound, true, false},
		{"task not found", ErrTaskNotFound, true, false},
		{"wrapped schedule not found", fmt.Errorf("load: %w", ErrScheduleNotFound), true, false},
		{"preference not found", ErrPreferenceNotFound, true, false},
		{"duplicate", ErrDuplicate, false, true},
		{"wrapped duplicate", fmt.Errorf("insert: %w", ErrDuplicate), false, true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.notFound, IsNotFoundError(tc.err))
			assert.Equal(t, tc.duplicate, IsDuplicateError(tc.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewStoreError("notification", "create", "insert failed", cause)

	assert.Equal(t, "create operation on notification failed: insert failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := NewStoreError("task", "update", "no rows", nil)
	assert.Equal(t, "update operation on task failed: no rows", bare.Error())
}
