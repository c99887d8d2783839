package linestatus

import "github.com/kvisser/linetrack/internal/buffer"

// Tracker owns the line-status state for one buffer. The manager treats it
// as opaque: it installs one per eligible buffer, feeds it base-revision
// content when a load completes, and releases it exactly once when the
// buffer stops being tracked. How the tracker computes or renders a diff is
// outside the manager's concern.
type Tracker interface {
	// Initialize supplies the base-revision content. Called on the apply
	// loop, under the manager lock, only while the tracker is installed.
	Initialize(content string, pack RevisionPack)

	// BaseRevisionLoadFailed signals that no base content could be loaded.
	// The tracker presents a degraded state; no automatic retry follows.
	BaseRevisionLoadFailed()

	// StartBulkUpdate and FinishBulkUpdate bracket host bulk edits.
	StartBulkUpdate()
	FinishBulkUpdate()

	// Release disposes the tracker. Called exactly once, synchronously
	// with its removal from the manager.
	Release()
}

// TrackerFactory creates the tracker installed for a buffer.
type TrackerFactory func(doc *buffer.Document, path string) Tracker

// BufferSource resolves between file paths and live buffers. Implemented by
// buffer.DocumentManager.
type BufferSource interface {
	// Get returns the cached open document for path, without loading one.
	Get(path string) (*buffer.Document, bool)

	// IsOpenInEditor reports whether the file has a live editor view.
	IsOpenInEditor(path string) bool

	// OpenDocuments returns every document with a live editor view.
	OpenDocuments() []*buffer.Document
}
