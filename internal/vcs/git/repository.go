package git

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Repository wraps git invocations for a single working tree.
type Repository struct {
	root string

	mu sync.Mutex

	// Per-file status cache. Repeated classification during a global
	// status recompute would otherwise fork one git process per open
	// buffer per query.
	statusCache    map[string]cachedStatus
	statusCacheTTL time.Duration
}

type cachedStatus struct {
	entry entry
	at    time.Time
}

// entry is one parsed porcelain status entry.
type entry struct {
	kind byte   // '1' ordinary, '2' renamed/copied, 'u' unmerged, '?' untracked, '!' ignored, 0 clean
	xy   string // index/worktree status pair for '1' and '2' entries
}

// openRepository opens the repository rooted at root.
func openRepository(root string, cacheTTL time.Duration) (*Repository, error) {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotRepository
		}
		return nil, fmt.Errorf("stat .git: %w", err)
	}

	// .git can be a file for worktrees.
	if !info.IsDir() {
		content, err := os.ReadFile(gitDir)
		if err != nil {
			return nil, fmt.Errorf("read .git file: %w", err)
		}
		if !bytes.HasPrefix(content, []byte("gitdir:")) {
			return nil, ErrNotRepository
		}
	}

	return &Repository{
		root:           root,
		statusCache:    make(map[string]cachedStatus),
		statusCacheTTL: cacheTTL,
	}, nil
}

// discoverRoot walks up from path looking for a .git entry.
func discoverRoot(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}

	current := absPath
	for {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return current, nil
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", ErrNotRepository
		}
		current = parent
	}
}

// Root returns the repository root path.
func (r *Repository) Root() string {
	return r.root
}

// relPath converts an absolute file path to a repository-relative,
// slash-separated path as git expects it.
func (r *Repository) relPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", ErrOutsideRepository
	}
	return filepath.ToSlash(rel), nil
}

// git executes a git command in the repository root.
func (r *Repository) git(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = r.root

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// fileEntry returns the porcelain status entry for one file, consulting the
// cache first.
func (r *Repository) fileEntry(rel string) (entry, error) {
	r.mu.Lock()
	if cached, ok := r.statusCache[rel]; ok && time.Since(cached.at) < r.statusCacheTTL {
		r.mu.Unlock()
		return cached.entry, nil
	}
	r.mu.Unlock()

	e, err := r.queryEntry(rel)
	if err != nil {
		return entry{}, err
	}

	r.mu.Lock()
	r.statusCache[rel] = cachedStatus{entry: e, at: time.Now()}
	r.mu.Unlock()

	return e, nil
}

// queryEntry asks git for the status of a single file.
func (r *Repository) queryEntry(rel string) (entry, error) {
	out, err := r.git("status", "--porcelain=v2", "--ignored", "--untracked-files=all", "--", rel)
	if err != nil {
		return entry{}, err
	}

	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case '1', '2':
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			return entry{kind: line[0], xy: fields[1]}, nil
		case 'u':
			return entry{kind: 'u'}, nil
		case '?':
			return entry{kind: '?'}, nil
		case '!':
			return entry{kind: '!'}, nil
		}
	}

	// No status entry: either clean and tracked, or not known to git at all.
	if _, err := r.git("ls-files", "--error-unmatch", "--", rel); err != nil {
		return entry{kind: '?'}, nil
	}
	return entry{kind: 0}, nil
}

// InvalidateStatusCache drops all cached status entries.
func (r *Repository) InvalidateStatusCache() {
	r.mu.Lock()
	r.statusCache = make(map[string]cachedStatus)
	r.mu.Unlock()
}

// baseRevision returns the hash of the last commit touching rel.
func (r *Repository) baseRevision(rel string) (string, bool) {
	out, err := r.git("rev-list", "-1", "HEAD", "--", rel)
	if err != nil {
		return "", false
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return "", false
	}
	return hash, true
}

// baseContent returns the file content at HEAD.
func (r *Repository) baseContent(rel string) (string, bool) {
	out, err := r.git("show", "HEAD:"+rel)
	if err != nil {
		return "", false
	}
	return out, true
}
