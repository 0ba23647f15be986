package cli

import (
	"context"
	"time"

	"github.com/corpora-labs/recall-cli/internal/adapters/driven/storage/memory"
	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

// --- Mock implementations ---

type mockKnowledgeService struct {
	addErr    error
	addResult *domain.IngestResult
	queryErr  error
	removeErr error
	resetErr  error
	statsErr  error

	lastTopK int
}

func (m *mockKnowledgeService) AddDocument(_ context.Context, _ string) (*domain.IngestResult, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	if m.addResult != nil {
		return m.addResult, nil
	}
	return &domain.IngestResult{
		DocumentID: "doc_abc123",
		ChunkCount: 4,
		Status:     domain.IngestAdded,
		Elapsed:    120 * time.Millisecond,
	}, nil
}

func (m *mockKnowledgeService) AddDirectory(_ context.Context, _ string) (*domain.IngestSummary, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	return &domain.IngestSummary{
		FilesAdded:   2,
		FilesSkipped: 1,
		FilesFailed:  0,
		ChunksAdded:  9,
		Elapsed:      300 * time.Millisecond,
	}, nil
}

func (m *mockKnowledgeService) Query(_ context.Context, _ string, opts domain.QueryOptions) ([]domain.QueryResult, error) {
	m.lastTopK = opts.TopK
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return []domain.QueryResult{
		{
			DocumentID: "doc_abc123",
			ChunkText:  "The solar array charges the battery bank during daylight hours.",
			Score:      0.91,
			SourcePath: "/notes/solar.md",
			Position:   0,
		},
		{
			DocumentID: "doc_def456",
			ChunkText:  "Grid power takes over when the battery falls below the cutoff.",
			Score:      0.72,
			SourcePath: "/notes/grid.txt",
			Position:   3,
		},
	}, nil
}

func (m *mockKnowledgeService) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if id != "doc_abc123" {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{
		ID:          "doc_abc123",
		SourcePath:  "/notes/solar.md",
		Format:      domain.FormatMarkdown,
		Title:       "solar",
		ContentHash: "0a1b2c3d4e5f60718293a4b5c6d7e8f90a1b2c3d4e5f60718293a4b5c6d7e8f9",
		SizeBytes:   2048,
		IngestedAt:  time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}, nil
}

func (m *mockKnowledgeService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return []domain.Document{
		{ID: "doc_abc123", SourcePath: "/notes/solar.md", Format: domain.FormatMarkdown, Title: "solar"},
		{ID: "doc_def456", SourcePath: "/notes/grid.txt", Format: domain.FormatText, Title: "grid"},
	}, nil
}

func (m *mockKnowledgeService) RemoveDocument(_ context.Context, _ string) error {
	return m.removeErr
}

func (m *mockKnowledgeService) Reset(_ context.Context) error {
	return m.resetErr
}

func (m *mockKnowledgeService) Stats(_ context.Context) (*domain.StoreStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return &domain.StoreStats{
		Documents: 2,
		Chunks:    9,
		Dimension: 384,
		Metric:    "cosine",
		Model:     "lexical-hash-v1",
		DataDir:   "/home/user/.recall",
	}, nil
}

func (m *mockKnowledgeService) Close() error { return nil }

// setupTestServices swaps the package services for test doubles and
// returns a cleanup that restores the originals.
func setupTestServices() func() {
	oldKnowledge := knowledgeService
	oldConfig := configStore
	knowledgeService = &mockKnowledgeService{}
	configStore = memory.NewConfigStore()
	return func() {
		knowledgeService = oldKnowledge
		configStore = oldConfig
	}
}
