package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

var addCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Add a file or directory to the knowledge base",
	Long: `Ingests a file into the knowledge base: extracts its text, splits it
into overlapping chunks, embeds every chunk, and stores the result.

Given a directory, every supported file underneath it is ingested.
Supported formats: .pdf, .txt, .md, .markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	path := args[0]
	ctx := context.Background()

	// The service reports missing paths; only dispatch on what exists.
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return addDirectory(ctx, cmd, path)
	}
	return addFile(ctx, cmd, path)
}

func addFile(ctx context.Context, cmd *cobra.Command, path string) error {
	result, err := knowledgeService.AddDocument(ctx, path)
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	if result.Status == domain.IngestDuplicate {
		cmd.Printf("Already indexed as %s (%d chunks, unchanged).\n",
			result.DocumentID, result.ChunkCount)
		return nil
	}

	cmd.Printf("Added %s (%d chunks) in %s.\n",
		result.DocumentID, result.ChunkCount, result.Elapsed.Round(time.Millisecond))
	return nil
}

func addDirectory(ctx context.Context, cmd *cobra.Command, dir string) error {
	cmd.Printf("Adding directory %s...\n", dir)

	summary, err := knowledgeService.AddDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	cmd.Printf("Added %d files (%d chunks), skipped %d, failed %d in %s.\n",
		summary.FilesAdded, summary.ChunksAdded, summary.FilesSkipped,
		summary.FilesFailed, summary.Elapsed.Round(time.Millisecond))
	return nil
}
