package vector

import "errors"

var (
	// ErrDimensionMismatch is returned when an embedding's length doesn't
	// match the index's configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrConnection is returned when the index backend cannot be reached.
	ErrConnection = errors.New("vector index connection failed")
)
