package repos

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrRetryable marks storage conflicts a caller may retry as a whole
var ErrRetryable = errors.New("retryable storage conflict")

// Postgres error codes treated as transient
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// classify tags transient postgres failures with ErrRetryable and keeps the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return fmt.Errorf("%w (%s): %w", ErrRetryable, pgErr.Code, err)
		}
	}
	return err
}

// IsRetryable reports whether err was classified as a transient conflict
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryable)
}

// IsNotFound reports whether err is a missing row
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
