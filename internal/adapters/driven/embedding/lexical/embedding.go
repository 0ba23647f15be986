// Package lexical provides an offline embedding service based on
// token feature hashing. It needs no external service or model: each
// token is hashed into a fixed-size vector, weighted by square-root
// term frequency, and the result is L2-normalised. Vectors are
// deterministic for a given text, so matching is purely lexical
// rather than semantic.
package lexical

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 384

// modelName identifies the hashing scheme. Stored vectors are only
// comparable to vectors produced under the same name.
const modelName = "lexical-hash-v1"

// Config holds configuration for the lexical embedding service.
type Config struct {
	// Dimensions is the embedding vector size (default: 384).
	Dimensions int
}

// EmbeddingService generates embeddings by hashing tokens into a
// fixed-size vector.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a new lexical embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		dimensions: cfg.Dimensions,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	vector := make([]float32, s.dimensions)

	counts := make(map[int]int)
	for _, token := range tokenise(text) {
		counts[s.bucket(token)]++
	}
	if len(counts) == 0 {
		return vector, nil
	}

	for idx, count := range counts {
		vector[idx] += float32(math.Sqrt(float64(count)))
	}

	// Norm over the final components so bucket collisions still
	// produce a unit vector.
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}

	return vector, nil
}

// EmbedQuery generates an embedding for query text. Queries and
// documents hash identically.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the hashing scheme.
func (s *EmbeddingService) ModelName() string {
	return modelName
}

// Ping always succeeds; there is no external service.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// bucket maps a token to a vector index.
func (s *EmbeddingService) bucket(token string) int {
	h := fnv.New64a()
	h.Write([]byte(token))
	return int(h.Sum64() % uint64(s.dimensions))
}

// tokenise lowercases text and splits it on anything that is not a
// letter or digit.
func tokenise(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
