package driven

import "context"

// VectorIndex provides persistent vector similarity search.
// Backed by a flat on-disk index with exact cosine search.
type VectorIndex interface {
	// Add inserts a vector entry. Adding an entry whose chunk ID is
	// already present is a no-op.
	Add(ctx context.Context, entry VectorEntry) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, chunkID string) error

	// DeleteAll removes every vector from the index.
	DeleteAll(ctx context.Context) error

	// Search finds the k most similar entries to the query vector,
	// ranked by descending similarity. Ties are broken by smaller
	// position, then by document ID, so results are deterministic.
	// An empty index returns an empty slice, not an error.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Save persists the index to disk atomically.
	Save() error

	// Len returns the number of stored vectors.
	Len() int

	// Close persists and releases resources.
	Close() error
}

// IndexProvider opens the vector index once the store's dimension and
// identity are known.
type IndexProvider interface {
	// Open loads the persisted index for the given store. Returns an
	// error wrapping ErrIndexStale when an index file exists but
	// cannot serve it (corrupt, truncated, or written for a different
	// store or dimension); the caller discards it through Create and
	// rebuilds from the document store.
	Open(dimension int, storeID string) (VectorIndex, error)

	// Create discards any existing index file and returns a fresh
	// empty index for the same location.
	Create(dimension int, storeID string) (VectorIndex, error)
}

// VectorEntry is one stored vector with the keys needed for
// provenance and deterministic ranking.
type VectorEntry struct {
	// ChunkID is the chunk this vector belongs to.
	ChunkID string

	// DocumentID is the chunk's parent document.
	DocumentID string

	// Position is the chunk's sequence index within its document.
	Position int

	// Vector is the embedding. Stored L2-normalised.
	Vector []float32
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID is the matched chunk's document.
	DocumentID string

	// Position is the matched chunk's sequence index.
	Position int

	// Similarity is the cosine similarity score.
	Similarity float64
}
