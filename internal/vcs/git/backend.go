// Package git implements the vcs.Backend interface on top of the git CLI.
//
// Repositories are discovered lazily by walking up from each queried file
// and cached by root. Status classification shells out to
// `git status --porcelain=v2` and caches per-file results briefly so that a
// global status recompute over many open buffers does not fork a git
// process per buffer per event.
package git

import (
	"strings"
	"sync"
	"time"

	"github.com/kvisser/linetrack/internal/vcs"
)

// DefaultStatusCacheTTL is how long per-file status results are cached.
const DefaultStatusCacheTTL = time.Second

// Backend implements vcs.Backend using the git command-line tool.
type Backend struct {
	mu    sync.Mutex
	repos map[string]*Repository // root -> repository

	statusCacheTTL time.Duration
}

// Option configures a Backend.
type Option func(*Backend)

// WithStatusCacheTTL overrides the per-file status cache TTL.
func WithStatusCacheTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		if ttl > 0 {
			b.statusCacheTTL = ttl
		}
	}
}

// NewBackend creates a git backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		repos:          make(map[string]*Repository),
		statusCacheTTL: DefaultStatusCacheTTL,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements vcs.Backend.
func (b *Backend) Name() string { return "git" }

// Owns reports whether path is inside a git working tree.
func (b *Backend) Owns(path string) bool {
	_, _, err := b.repoFor(path)
	return err == nil
}

// FileStatus classifies path against its base revision.
func (b *Backend) FileStatus(path string) (vcs.Status, error) {
	repo, rel, err := b.repoFor(path)
	if err != nil {
		return vcs.StatusUnknown, err
	}

	e, err := repo.fileEntry(rel)
	if err != nil {
		return vcs.StatusUnknown, err
	}
	return classify(e), nil
}

// BaseRevision implements vcs.BaseContentProvider.
func (b *Backend) BaseRevision(path string) (string, bool) {
	repo, rel, err := b.repoFor(path)
	if err != nil {
		return "", false
	}
	return repo.baseRevision(rel)
}

// BaseContent implements vcs.BaseContentProvider.
func (b *Backend) BaseContent(path string) (string, bool) {
	repo, rel, err := b.repoFor(path)
	if err != nil {
		return "", false
	}
	return repo.baseContent(rel)
}

// InvalidateStatusCaches drops cached status entries in all known
// repositories. Hosts call this before a global status recompute.
func (b *Backend) InvalidateStatusCaches() {
	b.mu.Lock()
	repos := make([]*Repository, 0, len(b.repos))
	for _, r := range b.repos {
		repos = append(repos, r)
	}
	b.mu.Unlock()

	for _, r := range repos {
		r.InvalidateStatusCache()
	}
}

// repoFor resolves the repository and repository-relative path for a file.
func (b *Backend) repoFor(path string) (*Repository, string, error) {
	root, err := discoverRoot(path)
	if err != nil {
		return nil, "", err
	}

	b.mu.Lock()
	repo, ok := b.repos[root]
	if !ok {
		repo, err = openRepository(root, b.statusCacheTTL)
		if err != nil {
			b.mu.Unlock()
			return nil, "", err
		}
		b.repos[root] = repo
	}
	b.mu.Unlock()

	rel, err := repo.relPath(path)
	if err != nil {
		return nil, "", err
	}
	return repo, rel, nil
}

// classify maps a porcelain status entry to a vcs.Status.
func classify(e entry) vcs.Status {
	switch e.kind {
	case 0:
		return vcs.StatusUnmodified
	case '?':
		return vcs.StatusUnknown
	case '!':
		return vcs.StatusIgnored
	case 'u':
		// Conflicted files still diff meaningfully against their base.
		return vcs.StatusModified
	case '1', '2':
		// XY pair: X is the index status, Y the worktree status.
		if strings.ContainsAny(e.xy, "A") {
			// Added in the index. If the worktree further modified it the
			// file still has no committed base to diff against.
			return vcs.StatusAdded
		}
		if strings.ContainsAny(e.xy, "D") {
			return vcs.StatusDeleted
		}
		return vcs.StatusModified
	default:
		return vcs.StatusUnknown
	}
}
