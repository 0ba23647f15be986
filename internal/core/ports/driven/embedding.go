package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingService generates vectors; VectorIndex stores them.
//
// Document and query embeddings are comparable: same dimensionality, same
// normalisation. Implementations truncate over-length input to the model
// limit rather than dropping it.
//
// Implementations may include:
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI-compatible endpoints (text-embedding-3-small, ...)
//   - The offline lexical embedder
type EmbeddingService interface {
	// Embed generates a vector embedding for document text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedQuery generates a vector embedding for query text.
	// Most models embed queries and documents identically; the split
	// exists for models that distinguish the two tasks.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	// This is more efficient than calling Embed in a loop for large batches.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 768, 1536).
	// This is determined by the model and must match the store configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	// Used at startup to verify connectivity before committing to ingestion.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
