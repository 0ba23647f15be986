package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFormat indicates a file extension outside the
	// supported set (pdf, text, markdown).
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrParse indicates a file that could not be decoded
	// (corrupt or unreadable binary content).
	ErrParse = errors.New("parse failure")

	// ErrEmptyDocument indicates a document that yielded no
	// extractable text.
	ErrEmptyDocument = errors.New("document has no extractable text")

	// ErrInvalidConfig indicates a configuration value that violates
	// a precondition (e.g. chunk overlap >= chunk size).
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbedding indicates the embedding backend failed to produce
	// a vector.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector whose dimensionality
	// differs from the index configuration.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrConfigMismatch indicates a persisted store opened with an
	// incompatible embedding configuration. Scores from a mismatched
	// model would be meaningless, so the store refuses to open.
	ErrConfigMismatch = errors.New("store configuration mismatch")

	// ErrLockContention indicates another process holds the ingest
	// lock. The caller decides whether to retry.
	ErrLockContention = errors.New("ingest lock held by another process")

	// ErrIndexStale indicates the on-disk vector index does not match
	// the chunk store and must be rebuilt.
	ErrIndexStale = errors.New("vector index stale")
)
