// Package apperr defines the error kinds shared by every layer. Callers wrap
// them with fmt.Errorf("...: %w", apperr.ErrX) and match with errors.Is.
package apperr

import "errors"

var (
	// ErrUnauthorized is returned when a bearer token is missing, malformed,
	// unverifiable or carries no subject.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation is returned when a request is missing required fields.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when no item exists for the (userId, itemId) pair.
	ErrNotFound = errors.New("item not found")

	// ErrStore is returned when the keyed document store fails.
	ErrStore = errors.New("store failure")

	// ErrBlobStore is returned when the attachment blob store fails.
	ErrBlobStore = errors.New("blob store failure")
)
