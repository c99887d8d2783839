package taskq

import "errors"

// Sentinel errors for the taskq package.
var (
	// ErrStopped is returned when tasks are added to a stopped queue.
	ErrStopped = errors.New("task queue is stopped")
)
