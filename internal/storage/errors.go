package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a record fails validation before it
	// reaches the backend.
	ErrInvalidInput = errors.New("invalid input")
)
