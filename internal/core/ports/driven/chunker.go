package driven

import (
	"context"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

// Chunker splits normalised document content into retrievable chunks.
type Chunker interface {
	// Process takes a document with Content populated and returns its
	// chunks with IDs, positions, and DocumentID set. Embeddings are
	// filled in downstream. The chunks argument exists for processors
	// that transform existing chunks; the chunker ignores it.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}
