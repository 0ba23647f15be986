package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

func TestAddCmd_Use(t *testing.T) {
	assert.Equal(t, "add [path]", addCmd.Use)
}

func TestAddCmd_Short(t *testing.T) {
	assert.Equal(t, "Add a file or directory to the knowledge base", addCmd.Short)
}

func TestAddCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"add"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestAddCmd_AddsFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"add", filepath.Join(t.TempDir(), "notes.txt")})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Added doc_abc123 (4 chunks)")
}

func TestAddCmd_AddsDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"add", t.TempDir()})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Added 2 files (9 chunks), skipped 1, failed 0")
}

func TestAddCmd_DuplicateFile(t *testing.T) {
	oldService := knowledgeService
	knowledgeService = &mockKnowledgeService{addResult: &domain.IngestResult{
		DocumentID: "doc_abc123",
		ChunkCount: 4,
		Status:     domain.IngestDuplicate,
	}}
	defer func() {
		knowledgeService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"add", filepath.Join(t.TempDir(), "notes.txt")})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Already indexed as doc_abc123")
}

func TestAddCmd_ServiceNotConfigured(t *testing.T) {
	oldService := knowledgeService
	knowledgeService = nil
	defer func() {
		knowledgeService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"add", "notes.txt"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "knowledge service not configured")
}

func TestAddCmd_ServiceError(t *testing.T) {
	oldService := knowledgeService
	knowledgeService = &mockKnowledgeService{addErr: errors.New("unsupported format")}
	defer func() {
		knowledgeService = oldService
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"add", "report.docx"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "add failed")
}
