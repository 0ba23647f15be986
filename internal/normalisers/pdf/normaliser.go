// Package pdf extracts text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	pdfapi "github.com/ledongthuc/pdf"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitleLen is the longest first line still considered a title.
const maxTitleLen = 200

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Format returns the source format this normaliser handles.
func (n *Normaliser) Format() domain.Format {
	return domain.FormatPDF
}

// Normalise extracts text from PDF bytes, concatenating page text in
// page order. Pages yielding no extractable text are skipped; the
// document fails with ErrEmptyDocument only when no page yields text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (res *driven.NormaliseResult, err error) {
	if raw == nil || len(raw.Content) == 0 {
		return nil, fmt.Errorf("pdf: %w", domain.ErrEmptyDocument)
	}

	// The underlying parser panics on some malformed files; surface
	// that as a parse failure like any other corrupt input.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("parse pdf %s: %v: %w", raw.SourcePath, r, domain.ErrParse)
		}
	}()

	reader, err := pdfapi.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf %s: %v: %w", raw.SourcePath, err, domain.ErrParse)
	}

	var sb strings.Builder
	fonts := make(map[string]*pdfapi.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, pageErr := page.GetPlainText(fonts)
		if pageErr != nil || strings.TrimSpace(text) == "" {
			// Unreadable or textless page, skip it
			continue
		}
		sb.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			sb.WriteString("\n")
		}
	}

	content := normaliseLineEndings(sb.String())
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("pdf %s: %w", raw.SourcePath, domain.ErrEmptyDocument)
	}

	doc := domain.Document{
		SourcePath: raw.SourcePath,
		Format:     domain.FormatPDF,
		Title:      extractTitle(content, raw.SourcePath),
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

// extractTitle takes the first short non-empty line of the extracted
// text as the title, falling back to the filename.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > maxTitleLen {
			continue
		}
		return line
	}

	filename := filepath.Base(path)
	ext := filepath.Ext(filename)
	if ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
