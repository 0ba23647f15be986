package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpora-labs/recall-cli/internal/adapters/driven/embedding/lexical"
	"github.com/corpora-labs/recall-cli/internal/adapters/driven/storage/memory"
	"github.com/corpora-labs/recall-cli/internal/adapters/driven/vectorindex/flat"
	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driving"
	"github.com/corpora-labs/recall-cli/internal/normalisers"
	"github.com/corpora-labs/recall-cli/internal/postprocessors/chunker"
)

const (
	solarText = "The solar panel array converts sunlight into renewable electricity " +
		"for the village grid, storing surplus energy in battery banks for overnight use."
	breadText = "Sourdough bread baking requires patient fermentation, careful kneading " +
		"and a well maintained starter culture fed with flour and water every day."
	quantumText = "Quantum entanglement links the measured states of particle pairs " +
		"across arbitrary distance, a correlation with no classical counterpart."
)

// --- Failure-injection wrappers ---

// failingEmbedder wraps a real embedder and fails EmbedBatch on demand.
type failingEmbedder struct {
	driven.EmbeddingService
	batchErr error
}

func (f *failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.EmbeddingService.EmbedBatch(ctx, texts)
}

// failingDocStore wraps a real store and fails SaveDocument on demand.
type failingDocStore struct {
	driven.DocumentStore
	saveErr error
}

func (f *failingDocStore) SaveDocument(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.DocumentStore.SaveDocument(ctx, doc, chunks)
}

// --- Test helpers ---

func testEmbedder() *lexical.EmbeddingService {
	return lexical.NewEmbeddingService(lexical.Config{Dimensions: 32})
}

// openService wires a service over the given store and data directory
// with a small chunk size so short fixtures produce several chunks.
func openService(store driven.DocumentStore, embedder driven.EmbeddingService, dataDir string) (*KnowledgeService, error) {
	proc, err := chunker.New(chunker.WithChunkSize(80), chunker.WithOverlap(20))
	if err != nil {
		return nil, err
	}
	provider := flat.NewProvider(filepath.Join(dataDir, flat.IndexFileName))
	return NewKnowledgeService(context.Background(), store, provider, embedder,
		normalisers.NewRegistry(), proc, dataDir)
}

func newTestService(t *testing.T, store driven.DocumentStore) (*KnowledgeService, string) {
	t.Helper()
	dataDir := t.TempDir()
	svc, err := openService(store, testEmbedder(), dataDir)
	require.NoError(t, err)
	return svc, dataDir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// --- Construction and open sequence ---

func TestNewKnowledgeService_FreshStore(t *testing.T) {
	store := memory.NewDocumentStore()
	_, _ = newTestService(t, store)

	meta, err := store.GetMeta(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 32, meta.Dimension)
	assert.Equal(t, domain.MetricCosine, meta.Metric)
	assert.Equal(t, "lexical-hash-v1", meta.Model)
	assert.NotEmpty(t, meta.StoreID)
	assert.False(t, meta.CreatedAt.IsZero())
}

func TestNewKnowledgeService_ConfigMismatch(t *testing.T) {
	store := memory.NewDocumentStore()
	require.NoError(t, store.InitMeta(context.Background(), &domain.StoreMeta{
		Dimension: 768,
		Metric:    domain.MetricCosine,
		Model:     "nomic-embed-text",
		StoreID:   "store-1",
		CreatedAt: time.Now().UTC(),
	}))

	svc, err := openService(store, testEmbedder(), t.TempDir())

	assert.ErrorIs(t, err, domain.ErrConfigMismatch)
	assert.Nil(t, svc)
}

func TestNewKnowledgeService_ReopenSameConfig(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, dataDir := newTestService(t, store)
	require.NoError(t, svc.Close())

	svc2, err := openService(store, testEmbedder(), dataDir)
	require.NoError(t, err)
	require.NoError(t, svc2.Close())
}

// --- AddDocument ---

func TestAddDocument(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, dataDir := newTestService(t, store)
	ctx := context.Background()

	path := writeFile(t, t.TempDir(), "solar.txt", solarText)
	result, err := svc.AddDocument(ctx, path)

	require.NoError(t, err)
	assert.Equal(t, domain.IngestAdded, result.Status)
	assert.True(t, strings.HasPrefix(result.DocumentID, "doc_"))
	assert.Greater(t, result.ChunkCount, 1)

	doc, err := store.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, path, doc.SourcePath)
	assert.Equal(t, domain.FormatText, doc.Format)
	assert.Equal(t, int64(len(solarText)), doc.SizeBytes)

	chunks, err := store.GetChunks(ctx, result.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, result.ChunkCount)
	for _, chunk := range chunks {
		assert.Len(t, chunk.Embedding, 32)
	}

	// The index was saved to disk.
	_, err = os.Stat(filepath.Join(dataDir, flat.IndexFileName))
	assert.NoError(t, err)
}

func TestAddDocument_Duplicate(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	dir := t.TempDir()
	first, err := svc.AddDocument(ctx, writeFile(t, dir, "one.txt", solarText))
	require.NoError(t, err)

	// Same content under a different name is still a duplicate.
	second, err := svc.AddDocument(ctx, writeFile(t, dir, "two.txt", solarText))
	require.NoError(t, err)

	assert.Equal(t, domain.IngestDuplicate, second.Status)
	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Equal(t, first.ChunkCount, second.ChunkCount)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, first.ChunkCount, stats.Chunks)
}

func TestAddDocument_NotFound(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())

	result, err := svc.AddDocument(context.Background(), "/nonexistent/file.txt")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, result)
}

func TestAddDocument_UnsupportedFormat(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	path := writeFile(t, t.TempDir(), "report.docx", "binary payload")
	result, err := svc.AddDocument(ctx, path)

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Nil(t, result)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)
}

func TestAddDocument_EmptyFile(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())

	path := writeFile(t, t.TempDir(), "empty.txt", "   \n\n  ")
	_, err := svc.AddDocument(context.Background(), path)

	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestAddDocument_EmbedFailureLeavesStoreUntouched(t *testing.T) {
	store := memory.NewDocumentStore()
	embedder := &failingEmbedder{
		EmbeddingService: testEmbedder(),
		batchErr:         fmt.Errorf("backend down: %w", domain.ErrEmbedding),
	}
	dataDir := t.TempDir()
	svc, err := openService(store, embedder, dataDir)
	require.NoError(t, err)
	ctx := context.Background()

	path := writeFile(t, t.TempDir(), "solar.txt", solarText)
	_, err = svc.AddDocument(ctx, path)
	assert.ErrorIs(t, err, domain.ErrEmbedding)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)

	// With the embedder healthy again the same file ingests cleanly.
	embedder.batchErr = nil
	result, err := svc.AddDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestAdded, result.Status)
}

func TestAddDocument_SaveFailureLeavesStoreUntouched(t *testing.T) {
	store := &failingDocStore{
		DocumentStore: memory.NewDocumentStore(),
		saveErr:       fmt.Errorf("disk full"),
	}
	dataDir := t.TempDir()
	svc, err := openService(store, testEmbedder(), dataDir)
	require.NoError(t, err)
	ctx := context.Background()

	path := writeFile(t, t.TempDir(), "solar.txt", solarText)
	_, err = svc.AddDocument(ctx, path)
	assert.ErrorContains(t, err, "save document")

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
}

// --- AddDirectory ---

func TestAddDirectory(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "solar.txt", solarText)
	writeFile(t, dir, "notes.md", "# Bread\n\n"+breadText)
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0700))
	writeFile(t, sub, "quantum.txt", quantumText)
	writeFile(t, dir, "ignore.docx", "unsupported")
	writeFile(t, dir, "solar-copy.txt", solarText)

	summary, err := svc.AddDirectory(ctx, dir)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.FilesAdded)
	assert.Equal(t, 2, summary.FilesSkipped)
	assert.Zero(t, summary.FilesFailed)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, summary.ChunksAdded, stats.Chunks)
}

func TestAddDirectory_CountsFailures(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, "good.txt", solarText)
	writeFile(t, dir, "empty.txt", "")

	summary, err := svc.AddDirectory(ctx, dir)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.FilesAdded)
	assert.Equal(t, 1, summary.FilesFailed)
}

func TestAddDirectory_NotFound(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())

	_, err := svc.AddDirectory(context.Background(), "/nonexistent/dir")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddDirectory_NotADirectory(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())

	path := writeFile(t, t.TempDir(), "file.txt", solarText)
	_, err := svc.AddDirectory(context.Background(), path)

	assert.ErrorContains(t, err, "not a directory")
}

// --- Query ---

func TestQuery_RanksByLexicalOverlap(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	dir := t.TempDir()
	solar, err := svc.AddDocument(ctx, writeFile(t, dir, "solar.txt", solarText))
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, writeFile(t, dir, "bread.txt", breadText))
	require.NoError(t, err)

	results, err := svc.Query(ctx, "solar panel electricity grid", domain.QueryOptions{})

	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, solar.DocumentID, results[0].DocumentID)
	assert.NotEmpty(t, results[0].ChunkText)
	assert.Greater(t, results[0].Score, 0.0)
	assert.Equal(t, filepath.Join(dir, "solar.txt"), results[0].SourcePath)

	// Scores are returned in descending order.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestQuery_EmptyStore(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())

	results, err := svc.Query(context.Background(), "anything at all", domain.QueryOptions{})

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestQuery_BlankText(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	_, err := svc.Query(ctx, "", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = svc.Query(ctx, "   \t  ", domain.QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestQuery_TopK(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	long := strings.Repeat("database index performance tuning notes. ", 20)
	_, err := svc.AddDocument(ctx, writeFile(t, t.TempDir(), "db.txt", long))
	require.NoError(t, err)

	results, err := svc.Query(ctx, "database index tuning", domain.QueryOptions{TopK: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = svc.Query(ctx, "database index tuning", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, results, domain.DefaultTopK)
}

func TestQuery_Repeatable(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	dir := t.TempDir()
	_, err := svc.AddDocument(ctx, writeFile(t, dir, "solar.txt", solarText))
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, writeFile(t, dir, "bread.txt", breadText))
	require.NoError(t, err)

	first, err := svc.Query(ctx, "solar panel electricity", domain.QueryOptions{})
	require.NoError(t, err)
	second, err := svc.Query(ctx, "solar panel electricity", domain.QueryOptions{})
	require.NoError(t, err)

	// Identical query against an unchanged store returns the same
	// ordered result list.
	assert.Equal(t, first, second)
}

func TestQuery_Concurrent(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	dir := t.TempDir()
	_, err := svc.AddDocument(ctx, writeFile(t, dir, "solar.txt", solarText))
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, writeFile(t, dir, "bread.txt", breadText))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Query(ctx, "solar electricity", domain.QueryOptions{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

// --- Remove, reset, stats ---

func TestRemoveDocument(t *testing.T) {
	svc, _ := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	result, err := svc.AddDocument(ctx, writeFile(t, t.TempDir(), "solar.txt", solarText))
	require.NoError(t, err)

	require.NoError(t, svc.RemoveDocument(ctx, result.DocumentID))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)

	results, err := svc.Query(ctx, "solar panel electricity", domain.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.ErrorIs(t, svc.RemoveDocument(ctx, result.DocumentID), domain.ErrNotFound)
}

func TestReset(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	dir := t.TempDir()
	path := writeFile(t, dir, "solar.txt", solarText)
	_, err := svc.AddDocument(ctx, path)
	require.NoError(t, err)
	_, err = svc.AddDocument(ctx, writeFile(t, dir, "bread.txt", breadText))
	require.NoError(t, err)

	require.NoError(t, svc.Reset(ctx))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)
	assert.Equal(t, "lexical-hash-v1", stats.Model)

	// The content hash is free again after a reset.
	result, err := svc.AddDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestAdded, result.Status)
}

func TestStats(t *testing.T) {
	svc, dataDir := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	result, err := svc.AddDocument(ctx, writeFile(t, t.TempDir(), "solar.txt", solarText))
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, result.ChunkCount, stats.Chunks)
	assert.Equal(t, 32, stats.Dimension)
	assert.Equal(t, domain.MetricCosine, stats.Metric)
	assert.Equal(t, "lexical-hash-v1", stats.Model)
	assert.Equal(t, dataDir, stats.DataDir)
}

// --- Index recovery ---

func TestIndexRebuild_MissingFile(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, dataDir := newTestService(t, store)
	ctx := context.Background()

	solar, err := svc.AddDocument(ctx, writeFile(t, t.TempDir(), "solar.txt", solarText))
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	indexPath := filepath.Join(dataDir, flat.IndexFileName)
	require.NoError(t, os.Remove(indexPath))

	svc2, err := openService(store, testEmbedder(), dataDir)
	require.NoError(t, err)

	results, err := svc2.Query(ctx, "solar panel electricity", domain.QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, solar.DocumentID, results[0].DocumentID)

	// The rebuilt index was persisted.
	_, err = os.Stat(indexPath)
	assert.NoError(t, err)
}

func TestIndexRebuild_CorruptFile(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, dataDir := newTestService(t, store)
	ctx := context.Background()

	solar, err := svc.AddDocument(ctx, writeFile(t, t.TempDir(), "solar.txt", solarText))
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	indexPath := filepath.Join(dataDir, flat.IndexFileName)
	require.NoError(t, os.WriteFile(indexPath, []byte("not an index file"), 0600))

	svc2, err := openService(store, testEmbedder(), dataDir)
	require.NoError(t, err)

	results, err := svc2.Query(ctx, "solar panel electricity", domain.QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, solar.DocumentID, results[0].DocumentID)
}

func TestIndexRebuild_OutOfSync(t *testing.T) {
	store := memory.NewDocumentStore()
	svc, dataDir := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.AddDocument(ctx, writeFile(t, t.TempDir(), "solar.txt", solarText))
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	// A chunk written behind the index's back, as after a crash
	// between the database commit and the index save.
	embedder := testEmbedder()
	vector, err := embedder.Embed(ctx, quantumText)
	require.NoError(t, err)
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:          "doc_bypass",
		SourcePath:  "/kb/quantum.txt",
		Format:      domain.FormatText,
		Title:       "quantum",
		ContentHash: "hash-bypass",
		SizeBytes:   int64(len(quantumText)),
		IngestedAt:  time.Now().UTC(),
	}, []domain.Chunk{{
		ID:         "bypass-chunk",
		DocumentID: "doc_bypass",
		Position:   0,
		Content:    quantumText,
		Embedding:  vector,
	}}))

	svc2, err := openService(store, embedder, dataDir)
	require.NoError(t, err)

	results, err := svc2.Query(ctx, "quantum entanglement particle states", domain.QueryOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "doc_bypass", results[0].DocumentID)
}

// --- Locking ---

func TestIngest_LockContention(t *testing.T) {
	svc, dataDir := newTestService(t, memory.NewDocumentStore())
	ctx := context.Background()

	other := flock.New(filepath.Join(dataDir, "ingest.lock"))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	path := writeFile(t, t.TempDir(), "solar.txt", solarText)
	_, err = svc.AddDocument(ctx, path)
	assert.ErrorIs(t, err, domain.ErrLockContention)
	assert.ErrorIs(t, svc.Reset(ctx), domain.ErrLockContention)

	// Queries do not take the ingest lock.
	_, err = svc.Query(ctx, "anything", domain.QueryOptions{})
	assert.NoError(t, err)

	require.NoError(t, other.Unlock())

	result, err := svc.AddDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestAdded, result.Status)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driving.KnowledgeService = (*KnowledgeService)(nil)
}
