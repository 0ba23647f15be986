// Package cli implements the recall command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driving"
	"github.com/corpora-labs/recall-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services are wired by Execute before the command tree runs.
// Tests swap them for mocks. knowledgeService may be nil when the
// store could not be opened; commands that need it say so, and
// reset falls back to removing the store files.
var (
	knowledgeService driving.KnowledgeService
	configStore      driven.ConfigStore
	dataDir          string
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Local knowledge base with semantic retrieval",
	Long: `recall ingests PDF, text, and markdown files into a local knowledge
base and retrieves the passages most relevant to a query.

Extraction, chunking, embedding, and search all run locally. Nothing
leaves your machine unless you configure a remote embedding provider.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute wires the command tree to its collaborators and runs it.
func Execute(svc driving.KnowledgeService, cfg driven.ConfigStore, dir string) error {
	knowledgeService = svc
	configStore = cfg
	dataDir = dir
	return rootCmd.Execute()
}
