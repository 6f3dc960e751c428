package ingest

import (
	"errors"
	"fmt"
	"time"
)

// State is a stage of the ingest pipeline.
type State int

// Ingest states in pipeline order. Cached and Failed are terminal.
const (
	Received State = iota
	Extracting
	Chunking
	Embedding
	Indexing
	Cached
	Failed
)

var stateNames = map[State]string{
	Received:   "received",
	Extracting: "extracting",
	Chunking:   "chunking",
	Embedding:  "embedding",
	Indexing:   "indexing",
	Cached:     "cached",
	Failed:     "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool { return s == Cached || s == Failed }

// ErrInvalidTransition signals a backward, skipping, or post-terminal transition.
var ErrInvalidTransition = errors.New("invalid ingest transition")

// Transition is one recorded state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Run tracks one ingest operation. Not safe for concurrent use.
type Run struct {
	documentID string
	state      State
	err        error
	history    []Transition
	now        func() time.Time
}

// NewRun starts a run in Received.
func NewRun(documentID string) *Run {
	return &Run{documentID: documentID, state: Received, now: time.Now}
}

// Advance moves to the next pipeline state. Only the immediate successor is accepted.
func (r *Run) Advance(next State) error {
	if r.state.Terminal() || next == Failed || next != r.state+1 {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, next)
	}
	r.record(next)
	return nil
}

// Fail moves the run to Failed from any non-terminal state, keeping the originating error.
// The returned error wraps err with the stage it failed in.
func (r *Run) Fail(err error) error {
	if r.state.Terminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.state, Failed)
	}
	stage := r.state
	r.err = err
	r.record(Failed)
	return fmt.Errorf("%s: %w", stage, err)
}

func (r *Run) record(next State) {
	r.history = append(r.history, Transition{From: r.state, To: next, At: r.now()})
	r.state = next
}

// DocumentID returns the document being ingested.
func (r *Run) DocumentID() string { return r.documentID }

// State returns the current state.
func (r *Run) State() State { return r.state }

// Err returns the originating error of a failed run.
func (r *Run) Err() error { return r.err }

// History returns the recorded transitions in order.
func (r *Run) History() []Transition { return r.history }

// StageDuration returns time spent in state s, zero if it was never left.
func (r *Run) StageDuration(s State) time.Duration {
	var entered time.Time
	found := false
	for _, t := range r.history {
		if t.To == s {
			entered = t.At
			found = true
			continue
		}
		if found && t.From == s {
			return t.At.Sub(entered)
		}
	}
	return 0
}
