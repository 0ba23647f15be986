package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Find the most relevant passages for a question",
	Long: `Embeds the query text and returns the most similar chunks from the
knowledge base, ranked by cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "maximum number of results (0 uses the configured default)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	text := args[0]
	ctx := context.Background()

	topK := queryTopK
	if topK <= 0 && configStore != nil {
		topK = configStore.GetInt("query.top_k")
	}

	results, err := knowledgeService.Query(ctx, text, domain.QueryOptions{TopK: topK})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	return outputQueryTable(cmd, results)
}

func outputQueryJSON(cmd *cobra.Command, results []domain.QueryResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, results []domain.QueryResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		cmd.Printf("  [%d] %s #%d (%.2f)\n",
			i+1, results[i].SourcePath, results[i].Position, results[i].Score)
		cmd.Printf("      %s\n", snippet(results[i].ChunkText))
		cmd.Println()
	}

	return nil
}

// snippet flattens a chunk to one display line.
func snippet(text string) string {
	flat := strings.Join(strings.Fields(text), " ")

	const maxRunes = 160
	runes := []rune(flat)
	if len(runes) <= maxRunes {
		return flat
	}
	return string(runes[:maxRunes-3]) + "..."
}
