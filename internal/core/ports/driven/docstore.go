package driven

import (
	"context"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

// DocumentStore persists documents, chunks, and the store meta record.
// Backed by SQLite.
type DocumentStore interface {
	// SaveDocument stores a document and its chunks in one transaction.
	// Either everything is persisted or nothing is.
	SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentByHash retrieves a document by its full content hash.
	GetDocumentByHash(ctx context.Context, hash string) (*domain.Document, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document, ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// DeleteAll removes every document and chunk. Meta is retained.
	DeleteAll(ctx context.Context) error

	// ListDocuments returns all documents ordered by ingestion time.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// CountChunks returns the number of stored chunks. A document ID
	// narrows the count to that document; empty counts everything.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// AllEmbeddings streams every stored embedding to fn in chunk
	// order. Used to rebuild the vector index from the database.
	AllEmbeddings(ctx context.Context, fn func(entry VectorEntry) error) error

	// GetMeta retrieves the store meta record.
	// Returns domain.ErrNotFound for a fresh store.
	GetMeta(ctx context.Context) (*domain.StoreMeta, error)

	// InitMeta writes the store meta record for a fresh store.
	InitMeta(ctx context.Context, meta *domain.StoreMeta) error

	// Close releases the underlying database handle.
	Close() error
}
