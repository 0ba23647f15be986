package domain

// RawDocument represents the opaque bytes of a source file before
// normalisation. Normalisers consume RawDocuments and never touch the
// filesystem themselves.
type RawDocument struct {
	// SourcePath is the filesystem path the bytes were read from.
	SourcePath string

	// Format is the resolved source format.
	Format Format

	// Content is the raw bytes.
	Content []byte
}
