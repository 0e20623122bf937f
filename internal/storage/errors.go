package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Sales are append-only and never updated.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable wraps connection-level failures. Callers may retry on their next cycle;
	// stores never retry on their own.
	ErrUnavailable = errors.New("storage unavailable")
)

// IsRetryable reports whether err is a storage availability failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
