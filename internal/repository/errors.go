package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrConflictoVersion is returned by conditional writes that matched no row:
// another transaction changed the record after it was read.
var ErrConflictoVersion = errors.New("conflicto de version")

// IsRetryable reports whether err means the enclosing transaction lost a race
// and may succeed if run again from the start.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflictoVersion) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return true
		}
		return false
	}
	// sqlite reports lock contention only through the message
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// IsNotFound is a shorthand used by services to map missing rows.
func IsNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// conflictOnDuplicate turns a unique violation into a version conflict. Used
// where two racing transactions insert the same natural key.
func conflictOnDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflictoVersion
	}
	return err
}
