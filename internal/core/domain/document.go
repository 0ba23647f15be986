package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Document represents one ingested source file.
// It is the canonical representation after normalisation.
type Document struct {
	// ID is the unique identifier, derived from the content hash.
	ID string

	// SourcePath is the filesystem path the document was ingested from.
	SourcePath string

	// Format is the source file format (pdf, text, markdown).
	Format Format

	// Title is the human-readable title.
	Title string

	// Content is the full text after normalisation.
	// Populated during ingestion; the persisted text lives in chunk rows.
	Content string

	// ContentHash is the full hex-encoded SHA-256 of the raw file bytes.
	ContentHash string

	// SizeBytes is the size of the raw source file.
	SizeBytes int64

	// IngestedAt is when the document was added to the knowledge base.
	IngestedAt time.Time
}

// Chunk represents a retrievable unit of text within a document.
// Documents are split into overlapping chunks for granular retrieval.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Position is the 0-based sequence index within the document.
	// Positions of one document are contiguous with no gaps; the
	// underlying text spans may overlap.
	Position int

	// Content is the text content of this chunk.
	Content string

	// Embedding is the vector representation for similarity search.
	Embedding []float32
}

// docIDPrefix marks content-derived document identifiers.
const docIDPrefix = "doc_"

// HashContent returns the full hex-encoded SHA-256 of the raw bytes.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// NewDocumentID derives a stable document ID from the raw file bytes.
// The same content always yields the same ID, which is what makes
// ingestion idempotent.
func NewDocumentID(content []byte) string {
	sum := sha256.Sum256(content)
	return docIDPrefix + hex.EncodeToString(sum[:16])
}
