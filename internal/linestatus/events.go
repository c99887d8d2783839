package linestatus

import "github.com/kvisser/linetrack/internal/buffer"

var _ buffer.EditorListener = (*Manager)(nil)

// Host event entry points. These are the callbacks a host registers with
// its own eventing (file status listeners, editor factories, file watchers,
// theme changes) and forwards here; the manager turns each into a registry
// decision. The Manager itself satisfies buffer.EditorListener so a
// DocumentManager can be wired to it directly.

// FileStatusesChanged handles a global status recompute: every open buffer
// is re-evaluated.
func (m *Manager) FileStatusesChanged() {
	if m.IsDisabled() {
		return
	}
	m.log.Debug("file statuses changed, resetting open buffers")
	m.ResetAllOpenBuffers()
}

// FileStatusChanged handles a single file's status change.
func (m *Manager) FileStatusChanged(path string) {
	m.ResetTracker(path)
}

// FileContentsChanged handles a raw content change originating from an
// external refresh (the file changed on disk underneath the buffer).
func (m *Manager) FileContentsChanged(path string) {
	m.ResetTracker(path)
}

// ColorSchemeChanged handles a global redraw trigger; trackers are
// re-evaluated the same way as after a status recompute.
func (m *Manager) ColorSchemeChanged() {
	if m.IsDisabled() {
		return
	}
	m.ResetAllOpenBuffers()
}

// EditorCreated handles a new editor view on doc. The event may fire off
// the host's read-access context, so both the eligibility check and the
// install are deferred onto the apply loop.
func (m *Manager) EditorCreated(doc *buffer.Document) {
	if m.IsDisabled() {
		return
	}

	m.loop.InvokeIf(func() {
		path := doc.Path()
		if !m.shouldBeInstalled(path) {
			return
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		m.installLocked(path, doc)
	}, m.IsDisabled)
}

// LastEditorReleased handles the final editor view on doc closing. The
// release is deferred onto the apply loop.
func (m *Manager) LastEditorReleased(doc *buffer.Document) {
	if m.IsDisabled() {
		return
	}

	m.loop.InvokeIf(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.releaseLocked(doc)
	}, m.IsDisabled)
}

// BulkUpdateStarted forwards a host bulk-edit start to the installed
// tracker; ignored when none is installed.
func (m *Manager) BulkUpdateStarted(doc *buffer.Document) {
	if tracker := m.GetTracker(doc); tracker != nil {
		tracker.StartBulkUpdate()
	}
}

// BulkUpdateFinished forwards a host bulk-edit finish to the installed
// tracker; ignored when none is installed.
func (m *Manager) BulkUpdateFinished(doc *buffer.Document) {
	if tracker := m.GetTracker(doc); tracker != nil {
		tracker.FinishBulkUpdate()
	}
}
