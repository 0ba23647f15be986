package normalisers

import (
	"fmt"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
	"github.com/corpora-labs/recall-cli/internal/normalisers/markdown"
	"github.com/corpora-labs/recall-cli/internal/normalisers/pdf"
	"github.com/corpora-labs/recall-cli/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps each supported format to its normaliser.
type Registry struct {
	byFormat map[domain.Format]driven.Normaliser
}

// NewRegistry builds the registry with all built-in normalisers.
func NewRegistry() *Registry {
	r := &Registry{byFormat: make(map[domain.Format]driven.Normaliser)}
	r.register(pdf.New())
	r.register(plaintext.New())
	r.register(markdown.New())
	return r
}

func (r *Registry) register(n driven.Normaliser) {
	r.byFormat[n.Format()] = n
}

// ForFormat returns the normaliser for a format.
func (r *Registry) ForFormat(f domain.Format) (driven.Normaliser, error) {
	n, ok := r.byFormat[f]
	if !ok {
		return nil, fmt.Errorf("no normaliser for format %q: %w", f, domain.ErrUnsupportedFormat)
	}
	return n, nil
}
