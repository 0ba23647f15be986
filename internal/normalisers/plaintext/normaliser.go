package plaintext

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Format returns the source format this normaliser handles.
func (n *Normaliser) Format() domain.Format {
	return domain.FormatText
}

// Normalise converts raw text bytes to a normalised document.
// Content is kept as-is apart from line ending normalisation.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil || len(raw.Content) == 0 {
		return nil, fmt.Errorf("plaintext: %w", domain.ErrEmptyDocument)
	}

	content := normaliseLineEndings(string(raw.Content))
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("plaintext %s: %w", raw.SourcePath, domain.ErrEmptyDocument)
	}

	doc := domain.Document{
		SourcePath: raw.SourcePath,
		Format:     domain.FormatText,
		Title:      extractTitle(raw.SourcePath),
		Content:    content,
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// normaliseLineEndings rewrites CRLF and lone CR to LF.
func normaliseLineEndings(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// extractTitle extracts a human-readable title from a file path.
func extractTitle(path string) string {
	// Get filename from path
	filename := filepath.Base(path)

	// Remove the extension for a cleaner title
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	// Replace underscores and dashes with spaces
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}
