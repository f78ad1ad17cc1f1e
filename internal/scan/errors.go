package scan

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed ingestion payload. Callers fix the
	// payload; it is never retried.
	ErrValidation = errors.New("invalid scan event")

	// ErrStoreUnavailable marks a failed read or write against the scan
	// store. It is transient and safe to retry with backoff.
	ErrStoreUnavailable = errors.New("scan store unavailable")

	// ErrNotAuthenticated is returned before any store access when no user
	// identity is present.
	ErrNotAuthenticated = errors.New("not authenticated")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Unavailable tags err as a store failure for op. Errors already tagged are
// only annotated.
func Unavailable(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
