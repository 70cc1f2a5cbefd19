package service

import (
	"errors"
	"fmt"

	"chronicle/internal/ingest"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid input")
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidSignature is returned by the webhook pipeline when the shared
	// secret check fails.
	ErrInvalidSignature = ingest.ErrInvalidSignature
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
