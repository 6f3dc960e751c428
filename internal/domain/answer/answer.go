package answer

import "github.com/kailas-cloud/docqa/internal/domain/segment"

// Source is a cited segment returned alongside an answer.
type Source struct {
	Content  string
	Metadata map[string]any
}

// Result is an answer with its ordered citations. Produced per question, never persisted.
type Result struct {
	text    string
	sources []Source
}

// New builds a Result citing segments in the given order.
func New(text string, used []segment.Segment) Result {
	sources := make([]Source, len(used))
	for i := range used {
		sources[i] = Source{Content: used[i].Text(), Metadata: used[i].Metadata()}
	}
	return Result{text: text, sources: sources}
}

// Text returns the synthesized answer.
func (r *Result) Text() string { return r.text }

// Sources returns the cited segments.
func (r *Result) Sources() []Source { return r.sources }
