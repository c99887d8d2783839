package git

import "errors"

// Sentinel errors for the git backend.
var (
	// ErrNotRepository indicates the path is not inside a git repository.
	ErrNotRepository = errors.New("not a git repository")

	// ErrOutsideRepository indicates a path outside the repository root.
	ErrOutsideRepository = errors.New("path outside repository")
)
