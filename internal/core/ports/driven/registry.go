package driven

import (
	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

// NormaliserRegistry resolves the normaliser for a source format.
// The format set is fixed, so resolution is a simple lookup rather
// than MIME sniffing or priority dispatch.
type NormaliserRegistry interface {
	// ForFormat returns the normaliser handling the given format.
	// Returns ErrUnsupportedFormat for formats outside the fixed set.
	ForFormat(f domain.Format) (Normaliser, error)
}
