package dberrors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/gradingdb/internal/pkg/apperrors"
)

// PostgreSQL error codes the grading store reacts to
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeCheckViolation       = "23514"
	CodeNotNullViolation     = "23502"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	// CodeImmutableColumn is raised by the immutability triggers of the schema
	CodeImmutableColumn = "GD001"
)

// AsPgError returns the PostgreSQL error wrapped in err, if any
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsDuplicateConstraintError checks if the error is a PostgreSQL unique violation error
// for a specific constraint.
func IsDuplicateConstraintError(err error, constraintName string) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == CodeUniqueViolation && pgErr.ConstraintName == constraintName
}

// IsUniqueViolation checks for any unique violation
func IsUniqueViolation(err error) bool {
	pgErr, ok := AsPgError(err)
	return ok && pgErr.Code == CodeUniqueViolation
}

// IsForeignKeyViolation checks for a foreign key violation on a specific constraint, or on any
// constraint when constraintName is empty
func IsForeignKeyViolation(err error, constraintName string) bool {
	pgErr, ok := AsPgError(err)
	if !ok || pgErr.Code != CodeForeignKeyViolation {
		return false
	}
	return constraintName == "" || pgErr.ConstraintName == constraintName
}

// Classify maps a database error onto the apperrors taxonomy, keeping the original error in the
// chain. Errors that are not PostgreSQL errors are returned unchanged.
func Classify(err error) error {
	pgErr, ok := AsPgError(err)
	if !ok {
		return err
	}

	var kind error
	switch pgErr.Code {
	case CodeUniqueViolation:
		kind = apperrors.ErrUniquenessViolation
	case CodeForeignKeyViolation:
		kind = apperrors.ErrReferentialIntegrity
	case CodeCheckViolation, CodeNotNullViolation:
		kind = apperrors.ErrValidationFailed
	case CodeSerializationFailure, CodeDeadlockDetected:
		kind = apperrors.ErrConcurrentUpdate
	case CodeImmutableColumn:
		kind = apperrors.ErrInvalidStateTransition
	default:
		return err
	}

	detail := pgErr.ConstraintName
	if detail == "" {
		detail = pgErr.Message
	}
	return fmt.Errorf("%w: %s: %w", kind, detail, err)
}
