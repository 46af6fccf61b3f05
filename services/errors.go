package services

import "errors"

// Error kinds returned by every service operation. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
)
