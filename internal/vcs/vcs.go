// Package vcs defines the version-control collaborator interfaces consumed
// by the line-status manager: per-file status classification and access to
// base-revision content.
package vcs

import "sync"

// Status classifies a file against its version-controlled base.
type Status int

const (
	// StatusUnmodified indicates the file matches its base revision.
	StatusUnmodified Status = iota
	// StatusModified indicates the file differs from its base revision.
	StatusModified
	// StatusAdded indicates the file is newly added and has no base.
	StatusAdded
	// StatusDeleted indicates the file has been deleted.
	StatusDeleted
	// StatusUnknown indicates the file is not tracked.
	StatusUnknown
	// StatusIgnored indicates the file is excluded from tracking.
	StatusIgnored
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusUnmodified:
		return "unmodified"
	case StatusModified:
		return "modified"
	case StatusAdded:
		return "added"
	case StatusDeleted:
		return "deleted"
	case StatusUnknown:
		return "unknown"
	case StatusIgnored:
		return "ignored"
	default:
		return "invalid"
	}
}

// BaseContentProvider produces base-revision information for a file.
// Absence (no commits yet, file not in the base revision, backend failure)
// is reported through the boolean, not an error: the manager treats all of
// these the same way.
type BaseContentProvider interface {
	// BaseRevision returns an opaque identifier of the base revision the
	// file would be diffed against.
	BaseRevision(path string) (string, bool)

	// BaseContent returns the file's content at the base revision.
	BaseContent(path string) (string, bool)
}

// Backend is a version-control system that can claim files and classify
// their status.
type Backend interface {
	BaseContentProvider

	// Name identifies the backend ("git", "hg", ...).
	Name() string

	// Owns reports whether the file at path is under this backend's control.
	Owns(path string) bool

	// FileStatus classifies the file against its base revision.
	FileStatus(path string) (Status, error)
}

// Registry holds the active backends and resolves which one, if any,
// claims a given file.
type Registry struct {
	mu       sync.RWMutex
	backends []Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a backend. Backends are consulted in registration order.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends = append(r.backends, b)
}

// For returns the first backend that owns path, or nil when no backend
// claims the file.
func (r *Registry) For(path string) Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.backends {
		if b.Owns(path) {
			return b
		}
	}
	return nil
}
