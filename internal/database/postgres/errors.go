package postgres

import (
	"errors"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
)

// MapError translates Postgres failures into domain outcomes. Errors that are
// already typed, or are not Postgres errors, pass through unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return apperror.Conflict(err, "transaction aborted by a concurrent update")
	case codeUniqueViolation:
		return apperror.Conflict(err, "duplicate %s", pgErr.ConstraintName)
	case codeCheckViolation:
		return apperror.InsufficientStock("stock constraint %s violated", pgErr.ConstraintName)
	case codeForeignKeyViolation:
		return apperror.InvalidArgument("referenced record does not exist (%s)", pgErr.ConstraintName)
	}
	return err
}

// IsUniqueViolation reports whether err is a unique constraint failure on constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
