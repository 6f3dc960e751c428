package segment

import "fmt"

// Segment is a contiguous slice of a document's extracted text (immutable value object).
type Segment struct {
	documentID string
	source     string
	position   int
	text       string
}

// New validates and creates a Segment.
func New(documentID, source string, position int, text string) (Segment, error) {
	if documentID == "" {
		return Segment{}, fmt.Errorf("segment document ID is required")
	}
	if position < 0 {
		return Segment{}, fmt.Errorf("segment position must be >= 0, got %d", position)
	}
	if text == "" {
		return Segment{}, fmt.Errorf("segment text is required")
	}
	return Segment{documentID: documentID, source: source, position: position, text: text}, nil
}

// FromTexts builds ordered segments for one document. Position i is texts[i].
func FromTexts(documentID, source string, texts []string) ([]Segment, error) {
	out := make([]Segment, len(texts))
	for i, t := range texts {
		s, err := New(documentID, source, i, t)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// Texts returns the segment texts in order.
func Texts(segments []Segment) []string {
	out := make([]string, len(segments))
	for i := range segments {
		out[i] = segments[i].text
	}
	return out
}

// DocumentID returns the owning document identifier.
func (s *Segment) DocumentID() string { return s.documentID }

// Source returns the original document name.
func (s *Segment) Source() string { return s.source }

// Position returns the zero-based position of the segment inside its document.
func (s *Segment) Position() int { return s.position }

// Text returns the segment content.
func (s *Segment) Text() string { return s.text }

// Metadata returns the citation metadata exposed to callers.
func (s *Segment) Metadata() map[string]any {
	return map[string]any{
		"source":      s.source,
		"document_id": s.documentID,
		"chunk":       s.position,
	}
}
