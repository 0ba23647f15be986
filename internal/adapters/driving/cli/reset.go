package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// storeFiles are the knowledge base files under the data directory.
// The config file is not among them; reset never touches it.
var storeFiles = []string{
	"recall.db",
	"recall.db-wal",
	"recall.db-shm",
	"vectors.idx",
	"ingest.lock",
}

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every document, chunk, and vector",
	Long: `Empties the knowledge base. Configuration is kept, so new documents
can be added straight away.

When the store cannot be opened, for example after switching to an
embedding provider that does not match the indexed vectors, reset
removes the store files instead; the store is recreated on the next
run under the current configuration.`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil && dataDir == "" {
		return errors.New("knowledge service not configured")
	}

	if !resetForce {
		cmd.Print("This deletes every indexed document. Type 'yes' to continue: ")
		reader := bufio.NewReader(os.Stdin)
		if readLine(reader) != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if knowledgeService != nil {
		if err := knowledgeService.Reset(context.Background()); err != nil {
			return fmt.Errorf("reset failed: %w", err)
		}
		cmd.Println("Knowledge base reset.")
		return nil
	}

	if err := purgeStore(dataDir); err != nil {
		return fmt.Errorf("reset failed: %w", err)
	}
	cmd.Println("Store files removed. The knowledge base will be recreated on the next run.")
	return nil
}

// purgeStore removes the store files directly, for stores the
// service refused to open.
func purgeStore(dir string) error {
	for _, name := range storeFiles {
		err := os.Remove(filepath.Join(dir, name))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}
