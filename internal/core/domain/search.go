package domain

// DefaultTopK is the number of results a query returns when the
// caller does not ask for a specific count.
const DefaultTopK = 5

// QueryOptions configures a knowledge base query.
type QueryOptions struct {
	// TopK is the maximum number of results. Zero or negative means
	// DefaultTopK.
	TopK int
}

// EffectiveTopK resolves the requested result count against the default.
func (o QueryOptions) EffectiveTopK() int {
	if o.TopK <= 0 {
		return DefaultTopK
	}
	return o.TopK
}

// QueryResult is one ranked hit returned by a knowledge base query.
type QueryResult struct {
	// DocumentID identifies the source document.
	DocumentID string

	// ChunkText is the retrieved chunk content.
	ChunkText string

	// Score is the similarity to the query, in the metric's range
	// (cosine: higher is more similar).
	Score float64

	// SourcePath is the filesystem path of the source document.
	SourcePath string

	// Position is the chunk's sequence index within its document.
	Position int
}
