package chunker

import (
	"fmt"

	"github.com/corpora-labs/recall-cli/internal/core/domain"
)

// Segment is one window over the source text.
type Segment struct {
	// Position is the 0-based sequence index of this window.
	Position int

	// Text is the window content.
	Text string
}

// Segmenter walks a text in fixed-size overlapping windows: segment i
// starts at rune offset i*(size-overlap) and spans size runes, clipped
// at the end of the text. It is lazy and restartable; Next yields one
// segment at a time and Reset rewinds to the first.
//
// Offsets are measured in runes so multi-byte text never splits
// mid-character.
type Segmenter struct {
	runes   []rune
	size    int
	overlap int
	step    int

	pos   int
	start int
}

// NewSegmenter validates the window configuration and prepares a
// segmenter over text. Text shorter than size yields exactly one
// segment containing the whole text; empty text yields none.
func NewSegmenter(text string, size, overlap int) (*Segmenter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size %d must be positive: %w", size, domain.ErrInvalidConfig)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap %d must not be negative: %w", overlap, domain.ErrInvalidConfig)
	}
	if overlap >= size {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d: %w", overlap, size, domain.ErrInvalidConfig)
	}

	return &Segmenter{
		runes:   []rune(text),
		size:    size,
		overlap: overlap,
		step:    size - overlap,
	}, nil
}

// Next returns the next segment. The second return value is false once
// the text is exhausted.
func (s *Segmenter) Next() (Segment, bool) {
	if s.start >= len(s.runes) {
		return Segment{}, false
	}

	end := s.start + s.size
	if end > len(s.runes) {
		end = len(s.runes)
	}

	seg := Segment{
		Position: s.pos,
		Text:     string(s.runes[s.start:end]),
	}

	s.pos++
	s.start += s.step

	return seg, true
}

// Reset rewinds the segmenter to the first segment.
func (s *Segmenter) Reset() {
	s.pos = 0
	s.start = 0
}
