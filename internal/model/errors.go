package model

import "errors"

// Domain errors. The store detects all of these before writing anything; the
// API layer maps them to HTTP status codes with errors.Is. Store errors that
// match none of them are internal faults.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
)
