// Package watch feeds external file refreshes into the line-status manager.
//
// It watches the directories of tracked files with fsnotify and reports
// writes, creates and removes of watched paths to a single callback —
// typically Manager.FileContentsChanged, which re-evaluates the buffer's
// tracker against the changed on-disk state.
package watch

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kvisser/linetrack/internal/logger"
)

// ChangedFunc receives the absolute path of a file changed on disk.
type ChangedFunc func(path string)

// FileWatcher watches individual files for out-of-band changes.
type FileWatcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	files   map[string]bool // absolute path -> watched
	dirs    map[string]int  // directory -> watched file count
	closed  bool

	onChanged ChangedFunc
	done      chan struct{}
	wg        sync.WaitGroup
}

// New creates a watcher delivering change notifications to onChanged.
// The callback runs on the watcher's goroutine and must not block.
func New(onChanged ChangedFunc) (*FileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &FileWatcher{
		watcher:   fsw,
		files:     make(map[string]bool),
		dirs:      make(map[string]int),
		onChanged: onChanged,
		done:      make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Add starts watching the file at path. Watching the parent directory
// instead of the file itself keeps notifications working across the
// rename-and-replace pattern editors and VCS tools use when writing files.
func (w *FileWatcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.files[abs] {
		return nil
	}

	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = true
	return nil
}

// Remove stops watching the file at path.
func (w *FileWatcher) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || !w.files[abs] {
		return nil
	}

	delete(w.files, abs)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		if err := w.watcher.Remove(dir); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the watcher. Idempotent.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *FileWatcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *FileWatcher) handle(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
		!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
		return
	}

	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	watched := w.files[abs]
	w.mu.Unlock()

	if watched {
		w.onChanged(abs)
	}
}
