package driven

import (
	"context"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

// Normaliser extracts normalised text from one source format.
// Each normaliser handles exactly one domain.Format; dispatch happens
// once, on the format resolved at ingestion entry.
type Normaliser interface {
	// Format returns the source format this normaliser handles.
	Format() domain.Format

	// Normalise transforms raw file bytes into a document with
	// Content populated. Chunking happens downstream.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
type NormaliseResult struct {
	// Document is the normalised document with Content populated.
	Document domain.Document
}
