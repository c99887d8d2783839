package buffer

import "errors"

// Sentinel errors for the buffer package.
var (
	// ErrDocumentNotFound indicates no document is open for the path.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrEditorReleased indicates the editor handle was already released.
	ErrEditorReleased = errors.New("editor already released")
)
