package domain

import "time"

// MetricCosine is the similarity metric recorded in store metadata.
// It is the only metric this store writes; anything else read back
// from disk is treated as a configuration mismatch.
const MetricCosine = "cosine"

// StoreMeta is the self-describing configuration persisted alongside
// the knowledge base. A store opened with an embedding setup that
// disagrees with its meta record fails fast instead of returning
// nonsense scores.
type StoreMeta struct {
	// Dimension is the embedding dimensionality every chunk must match.
	Dimension int

	// Metric is the similarity metric (MetricCosine).
	Metric string

	// Model identifies the embedding model the vectors were produced by.
	Model string

	// StoreID is a random identifier minted when the store is created.
	// The vector index file records it too, which is how a stale or
	// foreign index file is detected.
	StoreID string

	// CreatedAt is when the store was initialised.
	CreatedAt time.Time
}

// Matches reports whether the persisted meta agrees with the
// configured embedding setup.
func (m StoreMeta) Matches(dimension int, metric, model string) bool {
	return m.Dimension == dimension && m.Metric == metric && m.Model == model
}
