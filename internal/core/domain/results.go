package domain

import "time"

// IngestStatus reports the outcome of a single document ingestion.
type IngestStatus string

const (
	// IngestAdded indicates the document was new and has been stored.
	IngestAdded IngestStatus = "added"

	// IngestDuplicate indicates a document with identical content was
	// already stored; nothing was written.
	IngestDuplicate IngestStatus = "duplicate"
)

// IngestResult is the outcome of ingesting one document.
type IngestResult struct {
	// DocumentID is the stable content-derived identifier.
	DocumentID string

	// ChunkCount is the number of chunks stored for this document.
	// For a duplicate, it is the count of the already-stored document.
	ChunkCount int

	// Status is "added" or "duplicate".
	Status IngestStatus

	// Elapsed is how long the ingestion took.
	Elapsed time.Duration
}

// IngestSummary aggregates the outcome of a directory ingestion.
type IngestSummary struct {
	// FilesAdded counts newly stored documents.
	FilesAdded int

	// FilesSkipped counts duplicates and unsupported files.
	FilesSkipped int

	// FilesFailed counts files that errored during ingestion.
	FilesFailed int

	// ChunksAdded is the total number of chunks stored.
	ChunksAdded int

	// Elapsed is how long the whole walk took.
	Elapsed time.Duration
}

// StoreStats summarises the persisted knowledge base.
type StoreStats struct {
	// Documents is the number of stored documents.
	Documents int

	// Chunks is the number of stored chunks.
	Chunks int

	// Dimension is the embedding dimensionality.
	Dimension int

	// Metric is the similarity metric (cosine).
	Metric string

	// Model identifies the embedding model the store was built with.
	Model string

	// DataDir is the knowledge base directory.
	DataDir string
}
