package catalog

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness or referential constraint was violated
	ErrConflict = errors.New("conflict")

	// ErrInvalid indicates the input failed validation
	ErrInvalid = errors.New("invalid input")
)
