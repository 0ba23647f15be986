package domain

import (
	"path/filepath"
	"strings"
)

// Format identifies a supported source file format.
// The format is resolved once from the file extension at ingestion
// entry; everything downstream dispatches on this fixed set.
type Format string

const (
	// FormatPDF is a PDF file (.pdf).
	FormatPDF Format = "pdf"

	// FormatText is a plain text file (.txt).
	FormatText Format = "text"

	// FormatMarkdown is a markdown file (.md, .markdown).
	FormatMarkdown Format = "markdown"
)

// IsValid returns true if the format is recognised.
func (f Format) IsValid() bool {
	switch f {
	case FormatPDF, FormatText, FormatMarkdown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (f Format) String() string {
	return string(f)
}

// FormatFromPath resolves the format from a file path's extension.
// Returns ErrUnsupportedFormat for anything outside the supported set.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".txt":
		return FormatText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", ErrUnsupportedFormat
	}
}
