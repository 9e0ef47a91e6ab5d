package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a row changed since it was read.
	// Callers should re-read and retry.
	ErrConflict = errors.New("concurrent modification")
)
