package trading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// isRetryable reports transient concurrency failures of the database.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	return false
}

// transact runs fn in one transaction, retrying transient failures.
func (e *Engine) transact(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	attempts := e.cfg.TxRetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = e.db.WithContext(ctx).Transaction(fn)
		if err == nil || !isRetryable(err) {
			return err
		}

		e.log.WithFields(map[string]interface{}{
			"op":      op,
			"attempt": attempt,
		}).WithError(err).Warn("Transaction conflict, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(e.cfg.TxRetryBackoff * time.Duration(attempt)):
		}
	}

	return fmt.Errorf("%w: %s: %v", ErrPersistenceConflict, op, err)
}
