package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSQLiteConflictError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", errors.New("exec: SQLITE_BUSY (5)"), true},
		{"locked", errors.New("database is locked"), true},
		{"table locked", errors.New("database table is locked (262)"), true},
		{"wrapped", fmt.Errorf("insert metrics: %w", errors.New("SQLITE_LOCKED")), true},
		{"other", errors.New("no such table"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSQLiteConflictError(tt.err))
		})
	}
}

func TestRetry_RetriesConflicts(t *testing.T) {
	p := RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond, Retryable: IsSQLiteConflictError}
	calls := 0
	err := Retry(context.Background(), p, "write", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	p := RetryPolicy{Attempts: 5, BaseDelay: time.Millisecond, Retryable: IsSQLiteConflictError}
	calls := 0
	boom := errors.New("constraint failed")
	err := Retry(context.Background(), p, "write", func(context.Context) error {
		calls++
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "write: ")
}

func TestRetry_GivesUpAfterAttempts(t *testing.T) {
	p := RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond, Retryable: IsSQLiteConflictError}
	calls := 0
	err := Retry(context.Background(), p, "write", func(context.Context) error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := RetryPolicy{Attempts: 3, BaseDelay: time.Hour, Retryable: IsSQLiteConflictError}
	err := Retry(ctx, p, "write", func(context.Context) error {
		return errors.New("SQLITE_BUSY")
	})
	require.ErrorIs(t, err, context.Canceled)
}
