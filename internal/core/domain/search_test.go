package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestQueryOptions_EffectiveTopK tests top-k resolution against the default
func TestQueryOptions_EffectiveTopK(t *testing.T) {
	tests := []struct {
		name string
		topK int
		want int
	}{
		{"zero uses default", 0, DefaultTopK},
		{"negative uses default", -3, DefaultTopK},
		{"explicit value", 10, 10},
		{"one", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := QueryOptions{TopK: tt.topK}
			assert.Equal(t, tt.want, opts.EffectiveTopK())
		})
	}
}

// TestQueryResult_Fields tests QueryResult structure fields
func TestQueryResult_Fields(t *testing.T) {
	result := QueryResult{
		DocumentID: "doc_abc",
		ChunkText:  "relevant fragment",
		Score:      0.87,
		SourcePath: "/docs/report.pdf",
		Position:   2,
	}

	assert.Equal(t, "doc_abc", result.DocumentID)
	assert.Equal(t, "relevant fragment", result.ChunkText)
	assert.InDelta(t, 0.87, result.Score, 1e-9)
	assert.Equal(t, "/docs/report.pdf", result.SourcePath)
	assert.Equal(t, 2, result.Position)
}
