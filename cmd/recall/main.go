// Command recall is a local knowledge base: it ingests PDF, text,
// and markdown files and answers queries with the most similar
// passages.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/corpora-labs/recall-cli/internal/adapters/driven/config/file"
	"github.com/corpora-labs/recall-cli/internal/adapters/driven/embedding/lexical"
	"github.com/corpora-labs/recall-cli/internal/adapters/driven/embedding/ollama"
	"github.com/corpora-labs/recall-cli/internal/adapters/driven/embedding/openai"
	"github.com/corpora-labs/recall-cli/internal/adapters/driven/storage/sqlite"
	"github.com/corpora-labs/recall-cli/internal/adapters/driven/vectorindex/flat"
	"github.com/corpora-labs/recall-cli/internal/adapters/driving/cli"
	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driving"
	"github.com/corpora-labs/recall-cli/internal/core/services"
	"github.com/corpora-labs/recall-cli/internal/normalisers"
	"github.com/corpora-labs/recall-cli/internal/postprocessors"
	"github.com/corpora-labs/recall-cli/internal/postprocessors/chunker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dataDir, err := resolveDataDir()
	if err != nil {
		return err
	}

	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}

	svc, err := openKnowledgeService(configStore, dataDir)
	if err != nil {
		// The CLI still runs without a store: settings and reset are
		// how a broken one gets fixed.
		fmt.Fprintf(os.Stderr, "Warning: knowledge base unavailable: %v\n", err)
	}

	var knowledge driving.KnowledgeService
	if svc != nil {
		knowledge = svc
	}

	execErr := cli.Execute(knowledge, configStore, dataDir)
	if svc != nil {
		if closeErr := svc.Close(); closeErr != nil && execErr == nil {
			execErr = fmt.Errorf("close knowledge base: %w", closeErr)
		}
	}
	return execErr
}

// resolveDataDir returns the knowledge base directory, RECALL_DATA_DIR
// or ~/.recall.
func resolveDataDir() (string, error) {
	if dir := os.Getenv("RECALL_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".recall"), nil
}

func openKnowledgeService(cfg driven.ConfigStore, dataDir string) (*services.KnowledgeService, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	chunk, err := buildChunker(cfg)
	if err != nil {
		return nil, err
	}

	docStore, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	indexes := flat.NewProvider(filepath.Join(dataDir, flat.IndexFileName))
	registry := normalisers.NewRegistry()

	svc, err := services.NewKnowledgeService(
		context.Background(), docStore, indexes, embedder, registry, chunk, dataDir)
	if err != nil {
		docStore.Close() //nolint:errcheck // Opening already failed
		return nil, err
	}
	return svc, nil
}

// buildEmbedder constructs the configured embedding provider. Nothing
// here talks to the network; a misconfigured provider surfaces on
// first use.
func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	provider := cfg.GetString("embedding.provider")
	if provider == "" {
		provider = "ollama"
	}

	switch provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.GetString("embedding.ollama.base_url"),
			Model:      cfg.GetString("embedding.ollama.model"),
			Timeout:    time.Duration(cfg.GetInt("embedding.ollama.timeout_seconds")) * time.Second,
			Dimensions: cfg.GetInt("embedding.ollama.dimensions"),
		}), nil
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.GetString("embedding.openai.api_key"),
			BaseURL:           cfg.GetString("embedding.openai.base_url"),
			Model:             cfg.GetString("embedding.openai.model"),
			Dimensions:        cfg.GetInt("embedding.openai.dimensions"),
			RequestsPerMinute: cfg.GetInt("embedding.openai.requests_per_minute"),
		})
	case "lexical":
		return lexical.NewEmbeddingService(lexical.Config{
			Dimensions: cfg.GetInt("embedding.lexical.dimensions"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q: %w", provider, domain.ErrInvalidConfig)
	}
}

// buildChunker assembles the chunking pipeline. A single fixed-size
// chunking stage today; the pipeline is the seam for later stages.
func buildChunker(cfg driven.ConfigStore) (driven.Chunker, error) {
	var opts []chunker.Option
	if _, ok := cfg.Get("chunking.size"); ok {
		opts = append(opts, chunker.WithChunkSize(cfg.GetInt("chunking.size")))
	}
	if _, ok := cfg.Get("chunking.overlap"); ok {
		opts = append(opts, chunker.WithOverlap(cfg.GetInt("chunking.overlap")))
	}
	proc, err := chunker.New(opts...)
	if err != nil {
		return nil, err
	}
	return postprocessors.NewPipeline(proc), nil
}
