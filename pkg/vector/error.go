package vector

import "errors"

var (
	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrInvalidFilter is returned when a where filter cannot be interpreted.
	ErrInvalidFilter = errors.New("invalid metadata filter")

	// ErrMismatchedInput is returned when ids, texts and metadatas passed to
	// Add differ in length.
	ErrMismatchedInput = errors.New("ids, texts and metadatas must have equal length")
)

var (
	// ErrNoEmbedder is returned when a driver that embeds client-side is
	// constructed without an embedder.
	ErrNoEmbedder = errors.New("vector driver requires an embedder")
)
