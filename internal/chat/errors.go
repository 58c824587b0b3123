package chat

import "errors"

var (
	// ErrInvalidInput marks caller mistakes: missing session id, empty
	// or oversized message bodies.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks lookups for conversations or messages that do
	// not exist.
	ErrNotFound = errors.New("not found")
)
