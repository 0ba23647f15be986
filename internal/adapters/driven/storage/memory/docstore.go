package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// It mirrors the SQLite store's constraints (unique IDs, unique content
// hashes, cascade deletes) so tests exercise the same failure modes.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	byHash    map[string]string
	chunks    map[string][]domain.Chunk
	byChunkID map[string]domain.Chunk
	meta      *domain.StoreMeta
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		byHash:    make(map[string]string),
		chunks:    make(map[string][]domain.Chunk),
		byChunkID: make(map[string]domain.Chunk),
	}
}

// SaveDocument stores a document and its chunks atomically.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	if _, exists := s.byHash[doc.ContentHash]; exists {
		return fmt.Errorf("content hash %s already exists", doc.ContentHash)
	}
	for _, chunk := range chunks {
		if _, exists := s.byChunkID[chunk.ID]; exists {
			return fmt.Errorf("chunk %s already exists", chunk.ID)
		}
	}

	s.documents[doc.ID] = *doc
	s.byHash[doc.ContentHash] = doc.ID

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	s.chunks[doc.ID] = stored
	for _, chunk := range stored {
		s.byChunkID[chunk.ID] = chunk
	}

	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.documents[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetDocumentByHash retrieves a document by its content hash.
func (s *DocumentStore) GetDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byHash[hash]
	if !exists {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[id]
	return &doc, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, exists := s.byChunkID[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// GetChunks retrieves all chunks for a document, ordered by position.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := s.chunks[documentID]
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.documents[id]
	if !exists {
		return nil
	}

	delete(s.documents, id)
	delete(s.byHash, doc.ContentHash)
	for _, chunk := range s.chunks[id] {
		delete(s.byChunkID, chunk.ID)
	}
	delete(s.chunks, id)

	return nil
}

// DeleteAll removes every document and chunk. Meta is retained.
func (s *DocumentStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents = make(map[string]domain.Document)
	s.byHash = make(map[string]string)
	s.chunks = make(map[string][]domain.Chunk)
	s.byChunkID = make(map[string]domain.Chunk)

	return nil
}

// ListDocuments returns all documents ordered by ingestion time.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].IngestedAt.Equal(docs[j].IngestedAt) {
			return docs[i].IngestedAt.Before(docs[j].IngestedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// CountDocuments returns the number of stored documents.
func (s *DocumentStore) CountDocuments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents), nil
}

// CountChunks returns the number of stored chunks, optionally for one
// document.
func (s *DocumentStore) CountChunks(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if documentID != "" {
		return len(s.chunks[documentID]), nil
	}
	return len(s.byChunkID), nil
}

// AllEmbeddings streams every stored embedding to fn in document ID
// then chunk position order.
func (s *DocumentStore) AllEmbeddings(_ context.Context, fn func(entry driven.VectorEntry) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for _, chunk := range s.chunks[id] {
			entry := driven.VectorEntry{
				ChunkID:    chunk.ID,
				DocumentID: chunk.DocumentID,
				Position:   chunk.Position,
				Vector:     chunk.Embedding,
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
	}

	return nil
}

// GetMeta retrieves the store meta record.
func (s *DocumentStore) GetMeta(_ context.Context) (*domain.StoreMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return nil, domain.ErrNotFound
	}
	meta := *s.meta
	return &meta, nil
}

// InitMeta writes the store meta record for a fresh store.
func (s *DocumentStore) InitMeta(_ context.Context, meta *domain.StoreMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta != nil {
		return fmt.Errorf("store meta already initialised")
	}
	stored := *meta
	s.meta = &stored
	return nil
}

// Close releases resources (no-op for memory store).
func (s *DocumentStore) Close() error {
	return nil
}
