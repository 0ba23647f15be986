package markdown

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

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Format returns the source format this normaliser handles.
func (n *Normaliser) Format() domain.Format {
	return domain.FormatMarkdown
}

// Normalise converts raw markdown bytes to a normalised document.
// Markdown markup is retained verbatim; it reads fine as plain text
// and stripping it would throw away retrievable content. Only line
// endings are normalised. The title comes from the first H1 heading
// when there is one.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil || len(raw.Content) == 0 {
		return nil, fmt.Errorf("markdown: %w", domain.ErrEmptyDocument)
	}

	content := normaliseLineEndings(string(raw.Content))
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("markdown %s: %w", raw.SourcePath, domain.ErrEmptyDocument)
	}

	doc := domain.Document{
		SourcePath: raw.SourcePath,
		Format:     domain.FormatMarkdown,
		Title:      extractMarkdownTitle(content, raw.SourcePath),
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

// extractMarkdownTitle extracts a title from the markdown content or falls back to filename.
func extractMarkdownTitle(content, path string) string {
	// Try to find first H1 heading (# Title)
	lines := strings.Split(content, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}

	// Fall back to filename
	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
