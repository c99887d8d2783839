package linestatus

import (
	"os"
	"strings"

	"github.com/kvisser/linetrack/internal/buffer"
)

// lineSeparators normalizes \r\n and bare \r to \n. Base content arrives
// with whatever separators the backend stored; trackers expect \n.
var lineSeparators = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// baseRevisionLoader is the one-shot unit of work that fetches a buffer's
// base-revision content. It runs on the load queue's runner goroutine,
// performs backend I/O without holding the manager lock, and hands its
// result to the tracker through a deferred apply that re-validates the
// registry first. Any short-circuit before the apply reports a load failure
// to the tracker; a disposed manager aborts silently instead.
type baseRevisionLoader struct {
	manager *Manager
	doc     *buffer.Document
	path    string
}

func (l *baseRevisionLoader) run() {
	m := l.manager
	if m.IsDisabled() {
		return
	}

	if !l.fileValid() {
		m.log.Debug("base revision load failed, file not valid", "file", l.path)
		l.reportLoadFailed()
		return
	}

	backend := m.backends.For(l.path)
	if backend == nil {
		m.log.Debug("base revision load failed, no active backend", "file", l.path)
		l.reportLoadFailed()
		return
	}

	revision, ok := backend.BaseRevision(l.path)
	if !ok {
		m.log.Debug("base revision load failed, no base revision", "file", l.path)
		l.reportLoadFailed()
		return
	}

	// Loads are sequential on the queue runner, so the counter cannot
	// assign a smaller sequence to a later-dispatched base revision; that
	// total order is all trackers need from it.
	pack := RevisionPack{Sequence: m.loadCounter, Revision: revision}
	m.loadCounter++

	content, ok := backend.BaseContent(l.path)
	if !ok {
		m.log.Debug("base revision load failed, no base content", "file", l.path)
		l.reportLoadFailed()
		return
	}

	converted := lineSeparators.Replace(content)

	m.loop.InvokeIf(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		// The buffer's lifecycle may have moved on while the load ran; a
		// missing entry means the result is stale and is dropped here.
		tracker, ok := m.trackers[l.doc]
		if !ok {
			m.log.Debug("dropping base revision, tracker gone", "file", l.path)
			return
		}
		m.log.Debug("initializing tracker", "file", l.path, "revision", revision)
		tracker.Initialize(converted, pack)
	}, m.IsDisabled)
}

// fileValid rechecks that the source file still exists as a regular file.
// Validity is never cached; the file can disappear between any two events.
func (l *baseRevisionLoader) fileValid() bool {
	info, err := os.Stat(l.path)
	return err == nil && info.Mode().IsRegular()
}

// reportLoadFailed signals the failure to the tracker if it is still
// installed. Failed loads are not retried; the next ResetTracker for the
// buffer starts over.
func (l *baseRevisionLoader) reportLoadFailed() {
	m := l.manager

	m.mu.Lock()
	defer m.mu.Unlock()
	if tracker, ok := m.trackers[l.doc]; ok {
		tracker.BaseRevisionLoadFailed()
	}
}
