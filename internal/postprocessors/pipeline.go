// Package postprocessors chains chunk processors behind the Chunker port.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
	"github.com/corpora-labs/recall-cli/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.Chunker = (*Pipeline)(nil)

// Pipeline chains multiple chunk processors and runs them in order.
// It implements Chunker itself, so pipelines nest.
type Pipeline struct {
	processors []driven.Chunker
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.Chunker) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all processors in order.
// The first processor receives the chunks passed in; each subsequent
// processor receives the previous processor's output.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}

	for i, processor := range p.processors {
		var err error
		chunks, err = processor.Process(ctx, doc, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %d: %w", i, err)
		}
	}

	return chunks, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.Chunker) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
