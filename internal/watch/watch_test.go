package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *changeRecorder) record(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *changeRecorder) seen(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.paths {
		if p == path {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestFileWatcher_ReportsWrites(t *testing.T) {
	rec := &changeRecorder{}
	w, err := New(rec.record)
	require.NoError(t, err)
	defer w.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))
	require.NoError(t, w.Add(path))

	require.NoError(t, os.WriteFile(path, []byte("two\n"), 0o644))

	waitFor(t, func() bool { return rec.seen(path) }, "write was not reported")
}

func TestFileWatcher_IgnoresUnwatchedSiblings(t *testing.T) {
	rec := &changeRecorder{}
	w, err := New(rec.record)
	require.NoError(t, err)
	defer w.Close()

	dir := t.TempDir()
	watched := filepath.Join(dir, "watched.go")
	sibling := filepath.Join(dir, "sibling.go")
	require.NoError(t, os.WriteFile(watched, []byte("x"), 0o644))
	require.NoError(t, w.Add(watched))

	require.NoError(t, os.WriteFile(sibling, []byte("y"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("z"), 0o644))

	waitFor(t, func() bool { return rec.seen(watched) }, "watched file change was not reported")
	assert.False(t, rec.seen(sibling), "sibling changes must be ignored")
}

func TestFileWatcher_ReportsReplace(t *testing.T) {
	rec := &changeRecorder{}
	w, err := New(rec.record)
	require.NoError(t, err)
	defer w.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))
	require.NoError(t, w.Add(path))

	// Rename-and-replace, the way VCS checkouts rewrite files.
	tmp := filepath.Join(dir, ".a.go.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("two\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	waitFor(t, func() bool { return rec.seen(path) }, "replace was not reported")
}

func TestFileWatcher_RemoveStopsReporting(t *testing.T) {
	rec := &changeRecorder{}
	w, err := New(rec.record)
	require.NoError(t, err)
	defer w.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))
	require.NoError(t, w.Add(path))
	require.NoError(t, w.Remove(path))

	require.NoError(t, os.WriteFile(path, []byte("two\n"), 0o644))
	time.Sleep(50 * time.Millisecond)

	assert.False(t, rec.seen(path))
}

func TestFileWatcher_CloseIdempotent(t *testing.T) {
	w, err := New(func(string) {})
	require.NoError(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	// Add after close is a quiet no-op.
	assert.NoError(t, w.Add(filepath.Join(t.TempDir(), "a.go")))
}
