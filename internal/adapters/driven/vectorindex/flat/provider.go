package flat

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.IndexProvider = (*Provider)(nil)

// IndexFileName is the index file name within the data directory.
const IndexFileName = "vectors.idx"

// Provider opens flat indexes at a fixed path. The dimension and store
// ID are not known until the store meta record has been read, so the
// service resolves them and calls Open or Create afterwards.
type Provider struct {
	path string
}

// NewProvider creates a provider for the index file at path.
func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

// Open loads the index file, or starts an empty index if none exists.
func (p *Provider) Open(dimension int, storeID string) (driven.VectorIndex, error) {
	return NewIndex(p.path, dimension, storeID)
}

// Create discards any existing index file and returns a fresh empty
// index at the same path.
func (p *Provider) Create(dimension int, storeID string) (driven.VectorIndex, error) {
	if err := os.Remove(p.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("discard index %s: %w", p.path, err)
	}
	return NewIndex(p.path, dimension, storeID)
}
