package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driving"
	"github.com/corpora-labs/recall-cli/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

// ingestLockFile is the cross-process lock target within the data dir.
const ingestLockFile = "ingest.lock"

// KnowledgeService orchestrates the knowledge base: ingestion, query,
// and the persistence lifecycle of the document store and vector index.
type KnowledgeService struct {
	docStore driven.DocumentStore
	index    driven.VectorIndex
	embedder driven.EmbeddingService
	registry driven.NormaliserRegistry
	chunker  driven.Chunker
	dataDir  string

	// ingestMu serialises mutating operations within the process; the
	// file lock serialises them across processes. Queries take neither.
	ingestMu sync.Mutex
	fileLock *flock.Flock
}

// NewKnowledgeService wires the service and opens the knowledge base.
//
// Opening fails fast: a fresh store is initialised from the configured
// embedder, an existing store must match it (ErrConfigMismatch
// otherwise), and a missing, stale, or out-of-sync vector index is
// rebuilt from the document store before any operation runs.
func NewKnowledgeService(
	ctx context.Context,
	docStore driven.DocumentStore,
	indexes driven.IndexProvider,
	embedder driven.EmbeddingService,
	registry driven.NormaliserRegistry,
	chunker driven.Chunker,
	dataDir string,
) (*KnowledgeService, error) {
	s := &KnowledgeService{
		docStore: docStore,
		embedder: embedder,
		registry: registry,
		chunker:  chunker,
		dataDir:  dataDir,
		fileLock: flock.New(filepath.Join(dataDir, ingestLockFile)),
	}

	meta, err := s.ensureMeta(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.openIndex(ctx, indexes, meta); err != nil {
		return nil, err
	}

	return s, nil
}

// ensureMeta loads the store meta record, creating it for a fresh
// store. An existing record that disagrees with the configured
// embedder fails with ErrConfigMismatch before any operation runs;
// similarity scores across mismatched models would be meaningless.
func (s *KnowledgeService) ensureMeta(ctx context.Context) (*domain.StoreMeta, error) {
	meta, err := s.docStore.GetMeta(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		meta = &domain.StoreMeta{
			Dimension: s.embedder.Dimensions(),
			Metric:    domain.MetricCosine,
			Model:     s.embedder.ModelName(),
			StoreID:   uuid.New().String(),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.docStore.InitMeta(ctx, meta); err != nil {
			return nil, fmt.Errorf("initialise store meta: %w", err)
		}
		logger.Info("Initialised store: model=%s dimensions=%d", meta.Model, meta.Dimension)
		return meta, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store meta: %w", err)
	}

	if !meta.Matches(s.embedder.Dimensions(), domain.MetricCosine, s.embedder.ModelName()) {
		return nil, fmt.Errorf(
			"store built with model=%s dimensions=%d metric=%s, configured model=%s dimensions=%d metric=%s: %w",
			meta.Model, meta.Dimension, meta.Metric,
			s.embedder.ModelName(), s.embedder.Dimensions(), domain.MetricCosine,
			domain.ErrConfigMismatch)
	}

	return meta, nil
}

// openIndex opens the vector index, rebuilding it from the document
// store when the file is stale or out of sync with the chunk rows.
func (s *KnowledgeService) openIndex(ctx context.Context, indexes driven.IndexProvider, meta *domain.StoreMeta) error {
	idx, err := indexes.Open(meta.Dimension, meta.StoreID)
	if errors.Is(err, domain.ErrIndexStale) {
		logger.Warn("Vector index unusable, rebuilding: %v", err)
		idx, err = indexes.Create(meta.Dimension, meta.StoreID)
	}
	if err != nil {
		return fmt.Errorf("open vector index: %w", err)
	}
	s.index = idx

	chunkCount, err := s.docStore.CountChunks(ctx, "")
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	if s.index.Len() != chunkCount {
		logger.Warn("Vector index out of sync (%d vectors, %d chunks), rebuilding",
			s.index.Len(), chunkCount)
		if err := s.rebuildIndex(ctx); err != nil {
			return err
		}
	}

	return nil
}

// rebuildIndex repopulates the index from the embeddings persisted in
// the document store, which is the source of truth.
func (s *KnowledgeService) rebuildIndex(ctx context.Context) error {
	if err := s.index.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear vector index: %w", err)
	}

	count := 0
	err := s.docStore.AllEmbeddings(ctx, func(e driven.VectorEntry) error {
		count++
		return s.index.Add(ctx, e)
	})
	if err != nil {
		return fmt.Errorf("rebuild vector index: %w", err)
	}

	if err := s.index.Save(); err != nil {
		return fmt.Errorf("save rebuilt index: %w", err)
	}

	logger.Info("Rebuilt vector index: %d vectors", count)
	return nil
}

// lockIngest acquires the in-process mutex and the cross-process file
// lock. When another process holds the lock it fails fast with
// ErrLockContention rather than waiting; retry is the caller's call.
func (s *KnowledgeService) lockIngest() (func(), error) {
	s.ingestMu.Lock()

	locked, err := s.fileLock.TryLock()
	if err != nil {
		s.ingestMu.Unlock()
		return nil, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !locked {
		s.ingestMu.Unlock()
		return nil, fmt.Errorf("%s: %w", s.fileLock.Path(), domain.ErrLockContention)
	}

	return func() {
		if err := s.fileLock.Unlock(); err != nil {
			logger.Warn("Release ingest lock: %v", err)
		}
		s.ingestMu.Unlock()
	}, nil
}

// AddDocument ingests one file into the knowledge base.
func (s *KnowledgeService) AddDocument(ctx context.Context, path string) (*domain.IngestResult, error) {
	release, err := s.lockIngest()
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.addDocumentLocked(ctx, path)
	if err != nil {
		return nil, err
	}

	if err := s.index.Save(); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	return result, nil
}

// addDocumentLocked runs the ingestion pipeline for one file. The
// caller holds the ingest lock and saves the index afterwards.
//
//nolint:gocyclo // Pipeline orchestration with sequential steps
func (s *KnowledgeService) addDocumentLocked(ctx context.Context, path string) (*domain.IngestResult, error) {
	start := time.Now()
	logger.Section("Document Ingestion")
	logger.Debug("Path: %s", path)

	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	// 1. READ SOURCE FILE
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// 2. RESOLVE FORMAT (fixed set, from the extension)
	format, err := domain.FormatFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("Format: %s, %d bytes", format, len(content))

	// 3. DEDUP BY CONTENT HASH
	hash := domain.HashContent(content)
	existing, err := s.docStore.GetDocumentByHash(ctx, hash)
	if err == nil {
		count, err := s.docStore.CountChunks(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("count chunks for %s: %w", existing.ID, err)
		}
		logger.Info("Duplicate content, already stored as %s", existing.ID)
		return &domain.IngestResult{
			DocumentID: existing.ID,
			ChunkCount: count,
			Status:     domain.IngestDuplicate,
			Elapsed:    time.Since(start),
		}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("look up content hash: %w", err)
	}

	// 4. NORMALISE (produces Document with Content)
	normaliser, err := s.registry.ForFormat(format)
	if err != nil {
		return nil, err
	}
	result, err := normaliser.Normalise(ctx, &domain.RawDocument{
		SourcePath: path,
		Format:     format,
		Content:    content,
	})
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}

	doc := result.Document
	doc.ID = domain.NewDocumentID(content)
	doc.ContentHash = hash
	doc.SizeBytes = int64(len(content))
	doc.IngestedAt = time.Now().UTC()

	// 5. CHUNK
	chunks, err := s.chunker.Process(ctx, &doc, nil)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	logger.Debug("Chunked into %d pieces", len(chunks))

	// 6. EMBED EVERY CHUNK BEFORE WRITING ANYTHING
	// A failure on any chunk leaves the store untouched.
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed document: got %d embeddings for %d chunks: %w",
			len(vectors), len(chunks), domain.ErrEmbedding)
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	// 7. PERSIST DOCUMENT AND CHUNKS IN ONE TRANSACTION
	if err := s.docStore.SaveDocument(ctx, &doc, chunks); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	// 8. INDEX VECTORS
	for i := range chunks {
		err := s.index.Add(ctx, driven.VectorEntry{
			ChunkID:    chunks[i].ID,
			DocumentID: chunks[i].DocumentID,
			Position:   chunks[i].Position,
			Vector:     chunks[i].Embedding,
		})
		if err != nil {
			return nil, fmt.Errorf("index chunk %d: %w", chunks[i].Position, err)
		}
	}

	logger.Info("Ingested %s as %s: %d chunks", path, doc.ID, len(chunks))
	return &domain.IngestResult{
		DocumentID: doc.ID,
		ChunkCount: len(chunks),
		Status:     domain.IngestAdded,
		Elapsed:    time.Since(start),
	}, nil
}

// AddDirectory walks dir and ingests every supported file. The ingest
// lock is held across the whole walk; the index is saved once at the
// end rather than per file.
func (s *KnowledgeService) AddDirectory(ctx context.Context, dir string) (*domain.IngestSummary, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", dir, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	release, err := s.lockIngest()
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	logger.Section("Directory Ingestion")
	logger.Debug("Root: %s", dir)

	summary := &domain.IngestSummary{}
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := domain.FormatFromPath(path); err != nil {
			summary.FilesSkipped++
			return nil
		}

		result, err := s.addDocumentLocked(ctx, path)
		if err != nil {
			summary.FilesFailed++
			logger.Warn("Failed to ingest %s: %v", path, err)
			return nil
		}

		if result.Status == domain.IngestDuplicate {
			summary.FilesSkipped++
			return nil
		}

		summary.FilesAdded++
		summary.ChunksAdded += result.ChunkCount
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	if err := s.index.Save(); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	summary.Elapsed = time.Since(start)
	logger.Info("Directory complete: %d added, %d skipped, %d failed, %d chunks",
		summary.FilesAdded, summary.FilesSkipped, summary.FilesFailed, summary.ChunksAdded)
	return summary, nil
}

// Query returns the chunks most similar to the query text, ranked by
// descending similarity.
func (s *KnowledgeService) Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	logger.Section("Query Execution")

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("query text is blank: %w", domain.ErrInvalidConfig)
	}

	k := opts.EffectiveTopK()
	logger.Debug("Query: %q, top %d", text, k)

	vector, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("Index hits: %d", len(hits))

	results := make([]domain.QueryResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := s.docStore.GetChunk(ctx, hit.ChunkID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Chunk removed since the index was saved, skip it.
				continue
			}
			return nil, fmt.Errorf("get chunk %s: %w", hit.ChunkID, err)
		}

		doc, err := s.docStore.GetDocument(ctx, chunk.DocumentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
		}

		results = append(results, domain.QueryResult{
			DocumentID: chunk.DocumentID,
			ChunkText:  chunk.Content,
			Score:      hit.Similarity,
			SourcePath: doc.SourcePath,
			Position:   chunk.Position,
		})
	}

	logger.Info("Query returned %d results", len(results))
	return results, nil
}

// GetDocument retrieves a stored document by ID.
func (s *KnowledgeService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, id)
}

// ListDocuments returns all stored documents ordered by ingestion time.
func (s *KnowledgeService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// RemoveDocument deletes a document, its chunks, and its vectors.
func (s *KnowledgeService) RemoveDocument(ctx context.Context, id string) error {
	release, err := s.lockIngest()
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.docStore.GetDocument(ctx, id); err != nil {
		return fmt.Errorf("get document %s: %w", id, err)
	}

	chunks, err := s.docStore.GetChunks(ctx, id)
	if err != nil {
		return fmt.Errorf("get chunks for %s: %w", id, err)
	}

	for _, chunk := range chunks {
		if err := s.index.Delete(ctx, chunk.ID); err != nil {
			logger.Warn("Delete vector %s: %v", chunk.ID, err)
		}
	}

	if err := s.docStore.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}

	if err := s.index.Save(); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	logger.Info("Removed document %s (%d chunks)", id, len(chunks))
	return nil
}

// Reset drops every document, chunk, and vector. The meta record is
// retained; the store keeps its identity and configuration.
func (s *KnowledgeService) Reset(ctx context.Context) error {
	release, err := s.lockIngest()
	if err != nil {
		return err
	}
	defer release()

	if err := s.docStore.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear document store: %w", err)
	}

	if err := s.index.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear vector index: %w", err)
	}

	if err := s.index.Save(); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	logger.Info("Knowledge base reset")
	return nil
}

// Stats summarises the persisted store.
func (s *KnowledgeService) Stats(ctx context.Context) (*domain.StoreStats, error) {
	docs, err := s.docStore.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	chunks, err := s.docStore.CountChunks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}

	meta, err := s.docStore.GetMeta(ctx)
	if err != nil {
		return nil, fmt.Errorf("read store meta: %w", err)
	}

	return &domain.StoreStats{
		Documents: docs,
		Chunks:    chunks,
		Dimension: meta.Dimension,
		Metric:    meta.Metric,
		Model:     meta.Model,
		DataDir:   s.dataDir,
	}, nil
}

// Close persists the index and releases the service's collaborators.
func (s *KnowledgeService) Close() error {
	var errs []error

	if err := s.index.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close index: %w", err))
	}
	if err := s.docStore.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close document store: %w", err))
	}
	if err := s.embedder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close embedder: %w", err))
	}

	return errors.Join(errs...)
}
