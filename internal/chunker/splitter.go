// Package chunker splits extracted document text into overlapping fixed-size segments.
package chunker

import (
	"fmt"
	"unicode"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Defaults match the upload pipeline settings.
const (
	DefaultChunkSize = 800
	DefaultOverlap   = 100
)

// Splitter is a character-window splitter. Sizes are counted in runes.
//
// Consecutive segments share exactly overlap characters: segment i+1 starts overlap
// characters before the end of segment i. Split points move back to a whitespace
// boundary when one exists in the second half of the window.
type Splitter struct {
	chunkSize      int
	overlap        int
	wordBoundaries bool
}

// Option configures the splitter.
type Option func(*Splitter)

// WithWordBoundaries toggles backing off to whitespace before a hard cut (default on).
func WithWordBoundaries(enabled bool) Option {
	return func(s *Splitter) { s.wordBoundaries = enabled }
}

// New creates a splitter. Requires chunkSize > overlap >= 0.
func New(chunkSize, overlap int, opts ...Option) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be > 0, got %d: %w", chunkSize, domain.ErrInvalidConfig)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be >= 0, got %d: %w", overlap, domain.ErrInvalidConfig)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d: %w",
			overlap, chunkSize, domain.ErrInvalidConfig)
	}

	s := &Splitter{chunkSize: chunkSize, overlap: overlap, wordBoundaries: true}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ChunkSize returns the configured maximum segment length.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the ordered segments covering text. Empty text yields no segments.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	segments := make([]string, 0, n/(s.chunkSize-s.overlap)+1)
	start := 0
	for {
		end := start + s.chunkSize
		if end >= n {
			return append(segments, string(runes[start:n]))
		}
		if s.wordBoundaries {
			end = s.boundary(runes, start, end)
		}
		segments = append(segments, string(runes[start:end]))
		start = end - s.overlap
	}
}

// boundary returns the split point for the window [start, end).
// The result is always > start+overlap so the next window makes progress.
func (s *Splitter) boundary(runes []rune, start, end int) int {
	if unicode.IsSpace(runes[end]) {
		return end
	}
	lowest := max(start+s.overlap+1, start+s.chunkSize/2)
	for i := end; i > lowest; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
