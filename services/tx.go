package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"formdesk.link/configs/configslog"
	"formdesk.link/pkg/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultMaxTxRetries bounds how many times a transaction is restarted after a transient failure.
const DefaultMaxTxRetries = 3

var retryBackoff = 25 * time.Millisecond

// Postgres SQLSTATE codes that mean "run the whole transaction again".
var transientPgCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
}

// IsTransient reports whether err is a conflict that a fresh attempt can resolve.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := transientPgCodes[pgErr.Code]
		return ok
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

func txOptions(db *gorm.DB) []*sql.TxOptions {
	if db.Dialector.Name() == "postgres" {
		return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead}}
	}
	return nil
}

// runInTx runs fn in one transaction and restarts it from scratch, up to maxRetries times,
// when it fails with a transient store error. Exhausted retries surface as ErrTransientStore.
func runInTx(ctx context.Context, db *gorm.DB, maxRetries int, operation string, fn func(tx *gorm.DB) error) error {
	opts := txOptions(db)
	for attempt := 0; ; attempt++ {
		err := db.WithContext(ctx).Transaction(fn, opts...)
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt >= maxRetries {
			configslog.Log.Warn("Transaction retries exhausted",
				zap.String("operation", operation), zap.Int("attempts", attempt+1), zap.Error(err))
			return fmt.Errorf("%w: %w", ErrTransientStore, err)
		}

		metrics.TxRetries.WithLabelValues(operation).Inc()
		configslog.Log.Info("Retrying transaction after transient failure",
			zap.String("operation", operation), zap.Int("attempt", attempt+1), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * retryBackoff):
		}
	}
}
