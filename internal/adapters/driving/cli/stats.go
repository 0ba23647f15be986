package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	stats, err := knowledgeService.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Println("Knowledge Base")
	cmd.Println()
	cmd.Printf("  Documents:  %d\n", stats.Documents)
	cmd.Printf("  Chunks:     %d\n", stats.Chunks)
	cmd.Printf("  Model:      %s\n", stats.Model)
	cmd.Printf("  Dimensions: %d\n", stats.Dimension)
	cmd.Printf("  Metric:     %s\n", stats.Metric)
	cmd.Printf("  Data dir:   %s\n", stats.DataDir)

	return nil
}
