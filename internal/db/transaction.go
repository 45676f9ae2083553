package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tOgg1/roomlist/internal/logging"
)

// RetryPolicy bounds how a write transaction is retried while SQLite reports
// the database as busy or locked.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the pause before the second try; it doubles afterwards.
	Backoff time.Duration
}

// DefaultRetryPolicy is used for zero fields of a policy.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 50 * time.Millisecond}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetryPolicy.Attempts
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultRetryPolicy.Backoff
	}
	return p
}

// WriteTx runs fn in a transaction, retrying the whole transaction under the
// database's retry policy when another writer holds the lock.
func (db *DB) WriteTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return db.retry.run(ctx, func() error {
		return db.Transaction(ctx, fn)
	})
}

// RetryPolicy returns the policy WriteTx uses.
func (db *DB) RetryPolicy() RetryPolicy { return db.retry }

func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	p = p.withDefaults()
	backoff := p.Backoff

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil || !isBusyError(err) || attempt >= p.Attempts {
			return err
		}

		logger := logging.Component("db")
		logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("database busy, retrying write")

		if err := sleepWithContext(ctx, backoff); err != nil {
			return err
		}
		backoff *= 2
	}
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		// Extended codes keep the primary code in the low byte.
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
		return false
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database is busy") ||
		strings.Contains(message, "sqlite_busy")
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
