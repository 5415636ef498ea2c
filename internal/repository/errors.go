package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrAttemptExists is returned when the (exam, student) pair already has an attempt.
	ErrAttemptExists = errors.New("attempt already exists")
	// ErrLateCodeRejected is returned when a late code is unknown or already used.
	ErrLateCodeRejected = errors.New("late code rejected")
	// ErrAttemptClosed is returned when writing to an attempt that is no longer STARTED.
	ErrAttemptClosed = errors.New("attempt is not in progress")
)

const uniqueViolation = "23505"

// mapErr converts driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
