package driving

import (
	"context"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

// KnowledgeService is the knowledge base entry point for external actors.
// Ingestion operations serialise on an exclusive lock; queries run
// concurrently and see a document's chunks once its ingestion returns.
type KnowledgeService interface {
	// AddDocument ingests one file: extract, chunk, embed, persist.
	// Re-adding identical content returns the existing document ID
	// with status "duplicate" and writes nothing.
	AddDocument(ctx context.Context, path string) (*domain.IngestResult, error)

	// AddDirectory walks a directory tree and ingests every supported
	// file. Unsupported files are skipped; per-file failures are
	// counted, not fatal.
	AddDirectory(ctx context.Context, dir string) (*domain.IngestSummary, error)

	// Query returns the chunks most similar to the query text, ranked
	// by descending similarity. An empty store returns an empty slice.
	Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.QueryResult, error)

	// GetDocument retrieves a stored document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all stored documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// RemoveDocument deletes a document, its chunks, and its vectors.
	RemoveDocument(ctx context.Context, id string) error

	// Reset drops every document, chunk, and vector.
	Reset(ctx context.Context) error

	// Stats summarises the persisted store.
	Stats(ctx context.Context) (*domain.StoreStats, error)

	// Close persists pending state and releases resources.
	Close() error
}
