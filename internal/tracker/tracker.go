// Package tracker provides the default line-status tracker installed by the
// linestatus manager.
//
// The tracker is deliberately thin: it holds the state machine, the bulk
// update suspension counter and the loaded base content. Diff computation
// and gutter rendering belong to consumers reading BaseContent against the
// buffer's live content.
package tracker

import (
	"sync"

	"github.com/kvisser/linetrack/internal/buffer"
	"github.com/kvisser/linetrack/internal/linestatus"
)

// State is a tracker's lifecycle state.
type State int

const (
	// StateUninitialized means no base content has arrived yet.
	StateUninitialized State = iota
	// StateInitialized means base content is loaded and current.
	StateInitialized
	// StateLoadFailed means the base revision could not be loaded.
	StateLoadFailed
	// StateReleased means the tracker has been disposed.
	StateReleased
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateLoadFailed:
		return "load-failed"
	case StateReleased:
		return "released"
	default:
		return "invalid"
	}
}

// StateChangeFunc observes tracker state transitions.
type StateChangeFunc func(path string, state State)

// LineStatusTracker implements linestatus.Tracker.
type LineStatusTracker struct {
	doc  *buffer.Document
	path string

	mu          sync.Mutex
	state       State
	baseContent string
	pack        linestatus.RevisionPack
	hasPack     bool
	bulkDepth   int

	onStateChange StateChangeFunc
}

var _ linestatus.Tracker = (*LineStatusTracker)(nil)

// Option configures a LineStatusTracker.
type Option func(*LineStatusTracker)

// WithStateChangeFunc registers an observer for state transitions. The
// observer is called outside the tracker lock.
func WithStateChangeFunc(fn StateChangeFunc) Option {
	return func(t *LineStatusTracker) {
		t.onStateChange = fn
	}
}

// New creates a tracker for doc in the uninitialized state.
func New(doc *buffer.Document, path string, opts ...Option) *LineStatusTracker {
	t := &LineStatusTracker{
		doc:  doc,
		path: path,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Factory adapts New to linestatus.TrackerFactory.
func Factory(opts ...Option) linestatus.TrackerFactory {
	return func(doc *buffer.Document, path string) linestatus.Tracker {
		return New(doc, path, opts...)
	}
}

// Document returns the tracked buffer.
func (t *LineStatusTracker) Document() *buffer.Document { return t.doc }

// Path returns the tracked file path.
func (t *LineStatusTracker) Path() string { return t.path }

// Initialize implements linestatus.Tracker. Content tagged with a pack not
// newer than the one already applied is discarded: packs are totally
// ordered across the manager's lifetime, so an older pack is a stale result
// from a superseded load.
func (t *LineStatusTracker) Initialize(content string, pack linestatus.RevisionPack) {
	t.mu.Lock()
	if t.state == StateReleased {
		t.mu.Unlock()
		return
	}
	if t.hasPack && !pack.After(t.pack) {
		t.mu.Unlock()
		return
	}

	t.baseContent = content
	t.pack = pack
	t.hasPack = true
	t.state = StateInitialized
	t.mu.Unlock()

	t.notify(StateInitialized)
}

// BaseRevisionLoadFailed implements linestatus.Tracker.
func (t *LineStatusTracker) BaseRevisionLoadFailed() {
	t.mu.Lock()
	if t.state != StateUninitialized {
		t.mu.Unlock()
		return
	}
	t.state = StateLoadFailed
	t.mu.Unlock()

	t.notify(StateLoadFailed)
}

// StartBulkUpdate implements linestatus.Tracker. Calls nest.
func (t *LineStatusTracker) StartBulkUpdate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateReleased {
		return
	}
	t.bulkDepth++
}

// FinishBulkUpdate implements linestatus.Tracker.
func (t *LineStatusTracker) FinishBulkUpdate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateReleased || t.bulkDepth == 0 {
		return
	}
	t.bulkDepth--
}

// Release implements linestatus.Tracker. All later calls on the tracker
// are no-ops.
func (t *LineStatusTracker) Release() {
	t.mu.Lock()
	if t.state == StateReleased {
		t.mu.Unlock()
		return
	}
	t.state = StateReleased
	t.baseContent = ""
	t.mu.Unlock()

	t.notify(StateReleased)
}

// State returns the tracker's current state.
func (t *LineStatusTracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// BaseContent returns the loaded base-revision content; ok is false until
// the tracker is initialized.
func (t *LineStatusTracker) BaseContent() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baseContent, t.state == StateInitialized
}

// Revision returns the RevisionPack of the applied base content.
func (t *LineStatusTracker) Revision() (linestatus.RevisionPack, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pack, t.hasPack
}

// InBulkUpdate reports whether a host bulk edit is in progress.
func (t *LineStatusTracker) InBulkUpdate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bulkDepth > 0
}

func (t *LineStatusTracker) notify(state State) {
	if t.onStateChange != nil {
		t.onStateChange(t.path, state)
	}
}
