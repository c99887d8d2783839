// Package buffer models open editable text buffers and the editor views
// onto them.
//
// A Document is the stable identity of one buffer: every consumer that needs
// a per-buffer map keys it by *Document. Pointer identity survives renames,
// unlike the file path, so associative state is never silently orphaned when
// a file moves.
package buffer

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
)

// Document is an open, editable in-memory representation of a file's text.
type Document struct {
	// path is the absolute file path; empty for scratch buffers.
	// Guarded by mu: renames update it in place.
	mu   sync.RWMutex
	path string

	name    string
	content string

	// version counts content changes.
	version atomic.Int64

	// editors counts live editor views on this document.
	editors atomic.Int32
}

// NewDocument creates a document for path with the given content.
func NewDocument(path, content string) *Document {
	name := filepath.Base(path)
	if path == "" {
		name = "Untitled"
	}
	return &Document{
		path:    path,
		name:    name,
		content: content,
	}
}

// NewScratchDocument creates an in-memory document with no backing file.
func NewScratchDocument() *Document {
	return NewDocument("", "")
}

// Path returns the document's absolute file path; empty for scratch buffers.
func (d *Document) Path() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// Name returns the display name.
func (d *Document) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// IsScratch reports whether this is a synthetic in-memory buffer.
func (d *Document) IsScratch() bool {
	return d.Path() == ""
}

// Content returns the buffer's live content.
func (d *Document) Content() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.content
}

// SetContent replaces the buffer content and bumps the version.
func (d *Document) SetContent(content string) {
	d.mu.Lock()
	d.content = content
	d.mu.Unlock()
	d.version.Add(1)
}

// Version returns the current content version.
func (d *Document) Version() int64 {
	return d.version.Load()
}

// EditorCount returns the number of live editor views on this document.
func (d *Document) EditorCount() int {
	return int(d.editors.Load())
}

// rename updates the backing path in place; identity is unchanged.
func (d *Document) rename(path string) {
	d.mu.Lock()
	d.path = path
	d.name = filepath.Base(path)
	d.mu.Unlock()
}

// Editor is a view handle on a Document. A document can have any number of
// editors; the last release is what retires the buffer from tracking.
type Editor struct {
	doc      *Document
	dm       *DocumentManager
	released atomic.Bool
}

// Document returns the document this editor views.
func (e *Editor) Document() *Document {
	return e.doc
}

// Release closes this editor view. When it is the last view on the
// document, the manager's editor listener is notified. Releasing twice
// returns ErrEditorReleased.
func (e *Editor) Release() error {
	if e.released.Swap(true) {
		return ErrEditorReleased
	}

	last := e.doc.editors.Add(-1) == 0
	e.dm.notifyEditorReleased(e.doc, last)
	return nil
}

// EditorListener receives editor lifecycle notifications. Hosts register
// one listener and forward the calls to the line-status manager.
type EditorListener interface {
	// EditorCreated fires for every new editor view.
	EditorCreated(doc *Document)

	// LastEditorReleased fires when the final view on a document closes.
	LastEditorReleased(doc *Document)
}

// DocumentManager owns all open documents and resolves between file paths
// and buffer identities.
type DocumentManager struct {
	mu        sync.RWMutex
	documents map[string]*Document // absolute path -> document
	scratch   []*Document

	listener EditorListener
}

// NewDocumentManager creates an empty document manager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		documents: make(map[string]*Document),
	}
}

// SetEditorListener registers the listener notified of editor lifecycle
// events. Passing nil removes the current listener.
func (dm *DocumentManager) SetEditorListener(l EditorListener) {
	dm.mu.Lock()
	dm.listener = l
	dm.mu.Unlock()
}

// Open returns the document for path, reading it from disk when not
// already open.
func (dm *DocumentManager) Open(path string) (*Document, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	dm.mu.Lock()
	if doc, ok := dm.documents[absPath]; ok {
		dm.mu.Unlock()
		return doc, nil
	}
	dm.mu.Unlock()

	// Read outside the lock; a concurrent Open of the same path loses the
	// race below and returns the winner's document.
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if doc, ok := dm.documents[absPath]; ok {
		return doc, nil
	}
	doc := NewDocument(absPath, string(content))
	dm.documents[absPath] = doc
	return doc, nil
}

// CreateScratch creates a new scratch document.
func (dm *DocumentManager) CreateScratch() *Document {
	doc := NewScratchDocument()
	dm.mu.Lock()
	dm.scratch = append(dm.scratch, doc)
	dm.mu.Unlock()
	return doc
}

// Get returns the cached document for path without touching the disk.
// This is the resolution step lifecycle events use: an event for a file
// with no live buffer is a no-op, not a reason to load one.
func (dm *DocumentManager) Get(path string) (*Document, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	dm.mu.RLock()
	defer dm.mu.RUnlock()
	doc, ok := dm.documents[absPath]
	return doc, ok
}

// Close removes the document for path. Live editors keep their handles but
// the document is no longer resolvable.
func (dm *DocumentManager) Close(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if _, ok := dm.documents[absPath]; !ok {
		return ErrDocumentNotFound
	}
	delete(dm.documents, absPath)
	return nil
}

// Rename moves the document from oldPath to newPath, preserving identity.
func (dm *DocumentManager) Rename(oldPath, newPath string) error {
	oldAbs, err := filepath.Abs(oldPath)
	if err != nil {
		return err
	}
	newAbs, err := filepath.Abs(newPath)
	if err != nil {
		return err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	doc, ok := dm.documents[oldAbs]
	if !ok {
		return ErrDocumentNotFound
	}
	delete(dm.documents, oldAbs)
	doc.rename(newAbs)
	dm.documents[newAbs] = doc
	return nil
}

// CreateEditor opens a new editor view on doc and notifies the listener.
func (dm *DocumentManager) CreateEditor(doc *Document) *Editor {
	doc.editors.Add(1)
	e := &Editor{doc: doc, dm: dm}

	dm.mu.RLock()
	l := dm.listener
	dm.mu.RUnlock()
	if l != nil {
		l.EditorCreated(doc)
	}
	return e
}

// IsOpenInEditor reports whether the file at path has at least one live
// editor view.
func (dm *DocumentManager) IsOpenInEditor(path string) bool {
	doc, ok := dm.Get(path)
	return ok && doc.EditorCount() > 0
}

// OpenDocuments returns all documents currently shown in at least one
// editor, scratch buffers included.
func (dm *DocumentManager) OpenDocuments() []*Document {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	var open []*Document
	for _, doc := range dm.documents {
		if doc.EditorCount() > 0 {
			open = append(open, doc)
		}
	}
	for _, doc := range dm.scratch {
		if doc.EditorCount() > 0 {
			open = append(open, doc)
		}
	}
	return open
}

// Count returns the number of open file-backed documents.
func (dm *DocumentManager) Count() int {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return len(dm.documents)
}

func (dm *DocumentManager) notifyEditorReleased(doc *Document, last bool) {
	if !last {
		return
	}
	dm.mu.RLock()
	l := dm.listener
	dm.mu.RUnlock()
	if l != nil {
		l.LastEditorReleased(doc)
	}
}
