// Package shared holds the retry helpers the store uses around SQLite writes.
package shared

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// sqliteConflictMarkers are the driver messages for a write that lost the
// database lock to another connection.
var sqliteConflictMarkers = []string{
	"SQLITE_BUSY",
	"SQLITE_LOCKED",
	"database is locked",
	"database table is locked",
}

// IsSQLiteConflictError reports whether err is a lock conflict that a later
// attempt can succeed on.
func IsSQLiteConflictError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range sqliteConflictMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// RetryPolicy controls Retry.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// Retryable decides whether an error is worth another attempt.
	Retryable func(error) bool
}

// DefaultSQLiteRetry retries SQLite write conflicts three times: 100ms, 200ms.
var DefaultSQLiteRetry = RetryPolicy{
	Attempts:  3,
	BaseDelay: 100 * time.Millisecond,
	Retryable: IsSQLiteConflictError,
}

// Retry runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. Delays double after every attempt.
func Retry(ctx context.Context, p RetryPolicy, op string, fn func(context.Context) error) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	var err error
	for i := 0; i < p.Attempts; i++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) || i == p.Attempts-1 {
			break
		}

		delay := p.BaseDelay * time.Duration(1<<i)
		slog.Debug("Operation failed with retryable error, retrying",
			"op", op,
			"attempt", i+1,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
