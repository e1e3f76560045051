package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/essodond/Evexticket/internal/repository"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func IsRetryable(err error) bool {
	if errors.Is(err, repository.ErrRetryable) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return true
		}
	}

	return false
}

// translateDBErr maps driver errors to repository sentinels, keeping the
// original error in the chain.
func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrConflict, pge.ConstraintName)
		case codeForeignKeyViolation, codeCheckViolation:
			return fmt.Errorf("%w: %s", repository.ErrNotFound, pge.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %w", repository.ErrRetryable, err)
		}
	}

	return err
}
