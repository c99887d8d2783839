// Package linestatus manages the association between open editable buffers
// and their line-status trackers.
//
// For every buffer that is open in an editor and backed by a changed,
// version-controlled file, the manager keeps exactly one installed Tracker
// and runs at most one asynchronous base-revision load at a time. A single
// lock guards the tracker registry together with the load queue's key
// membership, so the pair (registry entry, pending load) always transitions
// atomically: installing a tracker and enqueueing its load happen in one
// critical section, and releasing a buffer removes both in one critical
// section.
//
// Thread affinity: GetTracker may be called from any goroutine that holds
// the host's read-access discipline over buffer state. Installs, releases
// and every tracker-visible mutation funnel through the manager lock;
// load results are additionally deferred onto the apply loop so that they
// commit on the host's designated apply context and can be dropped
// wholesale once the manager is disposed.
package linestatus

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/kvisser/linetrack/internal/applyloop"
	"github.com/kvisser/linetrack/internal/buffer"
	"github.com/kvisser/linetrack/internal/logger"
	"github.com/kvisser/linetrack/internal/taskq"
	"github.com/kvisser/linetrack/internal/vcs"
)

// EnvIgnoreChangeMarkers disables the manager entirely when set, for hosts
// that want VCS change tracking off without code changes.
const EnvIgnoreChangeMarkers = "LINETRACK_IGNORE_CHANGEMARKERS"

// BackendResolver returns the version-control backend claiming a file, or
// nil when none does. Implemented by vcs.Registry.
type BackendResolver interface {
	For(path string) vcs.Backend
}

// Manager is the lifecycle coordinator for line-status trackers.
type Manager struct {
	buffers  BufferSource
	backends BackendResolver
	factory  TrackerFactory
	log      *slog.Logger

	// mu is the single lock guarding trackers and all queue membership
	// transitions. Never held during backend I/O.
	mu       sync.Mutex
	trackers map[*buffer.Document]Tracker

	queue *taskq.Queue[*buffer.Document]
	loop  *applyloop.Loop

	// loadCounter is owned by the queue's runner goroutine: loaders execute
	// one at a time, so increments need no further synchronization.
	loadCounter uint64

	disabled bool
	disposed atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithDisabled creates the manager permanently disabled: every entry point
// is a no-op and GetTracker always returns nil.
func WithDisabled() Option {
	return func(m *Manager) {
		m.disabled = true
	}
}

// NewManager creates a manager and starts its load queue and apply loop.
// The factory is invoked under the manager lock whenever a tracker is
// installed.
func NewManager(buffers BufferSource, backends BackendResolver, factory TrackerFactory, opts ...Option) *Manager {
	m := &Manager{
		buffers:  buffers,
		backends: backends,
		factory:  factory,
		log:      logger.With("component", "linestatus"),
		trackers: make(map[*buffer.Document]Tracker),
	}
	if os.Getenv(EnvIgnoreChangeMarkers) != "" {
		m.disabled = true
	}
	for _, opt := range opts {
		opt(m)
	}

	m.queue = taskq.New[*buffer.Document](
		taskq.WithPanicHandler[*buffer.Document](func(doc *buffer.Document, recovered any, stack []byte) {
			m.log.Error("base revision loader panicked",
				"file", doc.Path(), "recovered", recovered, "stack", string(stack))
		}),
	)
	m.loop = applyloop.New()

	return m
}

// IsDisabled reports whether the manager ignores all operations, either by
// configuration or because it has been disposed.
func (m *Manager) IsDisabled() bool {
	return m.disabled || m.disposed.Load()
}

// GetTracker returns the installed tracker for doc, or nil. Callers must
// hold the host's read access over buffer state; the result reflects the
// registry at the time of the call.
func (m *Manager) GetTracker(doc *buffer.Document) Tracker {
	if m.IsDisabled() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackers[doc]
}

// ResetTracker re-evaluates whether the buffer backing path should have a
// tracker and converges the registry to that decision. A tracker that is
// still warranted is left untouched so unrelated status churn does not
// trigger redundant base-revision reloads.
func (m *Manager) ResetTracker(path string) {
	if m.IsDisabled() {
		return
	}

	doc, ok := m.buffers.Get(path)
	if !ok {
		m.log.Debug("skipping reset, no open buffer", "file", path)
		return
	}

	should := m.shouldBeInstalled(path) && m.buffers.IsOpenInEditor(path)
	m.log.Debug("resetting tracker", "file", path, "shouldBeInstalled", should)

	m.mu.Lock()
	defer m.mu.Unlock()

	tracker := m.trackers[doc]
	switch {
	case tracker == nil && should:
		m.installLocked(path, doc)
	case tracker != nil && !should:
		m.releaseLocked(doc)
	}
}

// ResetAllOpenBuffers re-evaluates every buffer currently shown in an
// editor. Used after global events that can invalidate many trackers at
// once.
func (m *Manager) ResetAllOpenBuffers() {
	if m.IsDisabled() {
		return
	}

	for _, doc := range m.buffers.OpenDocuments() {
		if path := doc.Path(); path != "" {
			m.ResetTracker(path)
		}
	}
}

// shouldBeInstalled computes a buffer's tracking eligibility: a real local
// file, claimed by an active backend, whose status leaves something to diff
// against.
func (m *Manager) shouldBeInstalled(path string) bool {
	if m.IsDisabled() {
		return false
	}
	if path == "" {
		return false
	}

	backend := m.backends.For(path)
	if backend == nil {
		m.log.Debug("tracker not installed, no active backend", "file", path)
		return false
	}

	status, err := backend.FileStatus(path)
	if err != nil {
		m.log.Debug("tracker not installed, status query failed", "file", path, "error", err)
		return false
	}
	switch status {
	case vcs.StatusUnmodified, vcs.StatusAdded, vcs.StatusUnknown, vcs.StatusIgnored:
		m.log.Debug("tracker not installed", "file", path, "status", status.String())
		return false
	}
	return true
}

// installLocked creates and registers a tracker for doc and enqueues its
// base-revision load in the same critical section. Idempotent when a
// tracker is already installed. Caller must hold m.mu.
func (m *Manager) installLocked(path string, doc *buffer.Document) {
	// Entry points check IsDisabled before their backend I/O, which does
	// not hold m.mu; Dispose may have emptied the registry since. A tracker
	// installed here after that point would never be released.
	if m.disposed.Load() {
		return
	}
	if _, ok := m.trackers[doc]; ok {
		return
	}
	if m.queue.Contains(doc) {
		// A pending load without a registry entry violates the pairing
		// invariant; drop the orphan instead of corrupting state further.
		m.log.Error("pending load for uninstalled buffer, dropping", "file", path)
		m.queue.Remove(doc)
	}

	m.log.Debug("installing tracker", "file", path)
	tracker := m.factory(doc, path)
	m.trackers[doc] = tracker

	loader := &baseRevisionLoader{manager: m, doc: doc, path: path}
	if err := m.queue.Add(doc, loader.run); err != nil {
		// Queue stopped: disposal won the race. The tracker is released
		// with everything else during teardown.
		m.log.Debug("load not enqueued", "file", path, "error", err)
	}
}

// releaseLocked cancels any pending load for doc and releases its tracker.
// No-op when nothing is installed. Caller must hold m.mu.
func (m *Manager) releaseLocked(doc *buffer.Document) {
	m.queue.Remove(doc)

	tracker, ok := m.trackers[doc]
	if !ok {
		return
	}
	delete(m.trackers, doc)
	m.log.Debug("released tracker", "file", doc.Path())
	tracker.Release()
}

// Dispose releases every tracker, clears the load queue and stops the
// manager's goroutines. All entry points become no-ops. Safe to call more
// than once; only the first call has any effect.
func (m *Manager) Dispose() {
	if m.disposed.Swap(true) {
		return
	}

	m.mu.Lock()
	for doc, tracker := range m.trackers {
		delete(m.trackers, doc)
		tracker.Release()
	}
	m.queue.Clear()
	m.mu.Unlock()

	// Stopping blocks on in-flight work, which may need m.mu; never hold
	// the lock here.
	m.queue.Stop()
	m.loop.Stop()
}

// Stats is a snapshot of the manager's registry and pipeline counters.
type Stats struct {
	// TrackersInstalled is the current number of registry entries.
	TrackersInstalled int

	// Queue holds the load queue counters.
	Queue taskq.Stats

	// AppliesInvoked is the number of deferred applies that ran.
	AppliesInvoked uint64

	// AppliesSkipped is the number dropped by expiration or disposal.
	AppliesSkipped uint64
}

// Stats returns a snapshot of manager counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	installed := len(m.trackers)
	m.mu.Unlock()

	return Stats{
		TrackersInstalled: installed,
		Queue:             m.queue.Stats(),
		AppliesInvoked:    m.loop.Invoked(),
		AppliesSkipped:    m.loop.Skipped(),
	}
}
