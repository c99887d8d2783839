// Package taskq implements a deduplicating keyed task queue.
//
// Tasks are executed strictly one at a time, in arrival order, on a single
// runner goroutine. Adding a task for a key that already has a pending task
// replaces the pending task in place (the older task is discarded without
// running and without losing the key's position in line). A pending task can
// be removed by key; a task that has already started always runs to
// completion.
//
// The single runner doubles as an ordering primitive: state owned by the
// runner goroutine needs no further synchronization across tasks.
package taskq

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Task is a unit of work executed by the queue.
type Task func()

// PanicHandler is invoked when a task panics. The queue keeps running.
type PanicHandler[K comparable] func(key K, recovered any, stack []byte)

// Queue is a deduplicating FIFO task runner keyed by K.
type Queue[K comparable] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending map[K]Task
	order   []K

	// Key of the task currently executing; valid while active is true.
	runningKey K
	active     bool

	stopped bool
	wg      sync.WaitGroup

	panicHandler PanicHandler[K]

	// Stats
	enqueued atomic.Uint64
	replaced atomic.Uint64
	removed  atomic.Uint64
	executed atomic.Uint64
	panicked atomic.Uint64
}

// Option configures a Queue.
type Option[K comparable] func(*Queue[K])

// WithPanicHandler sets the handler invoked when a task panics.
func WithPanicHandler[K comparable](h PanicHandler[K]) Option[K] {
	return func(q *Queue[K]) {
		q.panicHandler = h
	}
}

// New creates a queue and starts its runner goroutine.
func New[K comparable](opts ...Option[K]) *Queue[K] {
	q := &Queue[K]{
		pending: make(map[K]Task),
	}
	q.cond = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}

	q.wg.Add(1)
	go q.run()

	return q
}

// Add enqueues a task for key. If a task is already pending for key it is
// replaced and the key keeps its position in arrival order. If a task for
// key is currently executing, the new task runs after it.
func (q *Queue[K]) Add(key K, task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrStopped
	}

	if _, ok := q.pending[key]; ok {
		q.pending[key] = task
		q.replaced.Add(1)
		return nil
	}

	q.pending[key] = task
	q.order = append(q.order, key)
	q.enqueued.Add(1)
	q.cond.Signal()
	return nil
}

// Remove cancels the pending task for key, if any. It reports whether a
// task was removed. A task that has already started is unaffected.
func (q *Queue[K]) Remove(key K) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[key]; !ok {
		return false
	}

	delete(q.pending, key)
	q.dropFromOrder(key)
	q.removed.Add(1)
	return true
}

// Contains reports whether key has a pending or currently executing task.
func (q *Queue[K]) Contains(key K) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[key]; ok {
		return true
	}
	return q.active && q.runningKey == key
}

// Len returns the number of pending (not yet started) tasks.
func (q *Queue[K]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Clear drops all pending tasks. The currently executing task, if any,
// runs to completion.
func (q *Queue[K]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removed.Add(uint64(len(q.pending)))
	q.pending = make(map[K]Task)
	q.order = q.order[:0]
}

// Stop drops all pending tasks and stops the runner after any in-flight
// task returns. Stop is idempotent and blocks until the runner has exited.
func (q *Queue[K]) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		q.wg.Wait()
		return
	}
	q.stopped = true
	q.pending = make(map[K]Task)
	q.order = q.order[:0]
	q.cond.Broadcast()
	q.mu.Unlock()

	q.wg.Wait()
}

// run is the single runner goroutine.
func (q *Queue[K]) run() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		for len(q.order) == 0 && !q.stopped {
			q.cond.Wait()
		}
		if q.stopped {
			q.mu.Unlock()
			return
		}

		key := q.order[0]
		q.order = q.order[1:]
		task := q.pending[key]
		delete(q.pending, key)
		q.runningKey = key
		q.active = true
		q.mu.Unlock()

		q.execute(key, task)

		q.mu.Lock()
		q.active = false
		var zero K
		q.runningKey = zero
		q.mu.Unlock()
	}
}

// execute runs one task with panic recovery.
func (q *Queue[K]) execute(key K, task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.panicked.Add(1)
			if q.panicHandler != nil {
				q.panicHandler(key, r, debug.Stack())
			}
		}
	}()

	task()
	q.executed.Add(1)
}

// dropFromOrder removes key from the arrival-order slice (must hold lock).
func (q *Queue[K]) dropFromOrder(key K) {
	for i, k := range q.order {
		if k == key {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

// Stats contains queue counters.
type Stats struct {
	// Enqueued is the number of tasks accepted for new keys.
	Enqueued uint64

	// Replaced is the number of pending tasks displaced by a newer task
	// for the same key.
	Replaced uint64

	// Removed is the number of pending tasks cancelled before running.
	Removed uint64

	// Executed is the number of tasks that ran to completion.
	Executed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Pending is the current number of queued tasks.
	Pending int
}

// Stats returns a snapshot of queue counters.
func (q *Queue[K]) Stats() Stats {
	return Stats{
		Enqueued: q.enqueued.Load(),
		Replaced: q.replaced.Load(),
		Removed:  q.removed.Load(),
		Executed: q.executed.Load(),
		Panicked: q.panicked.Load(),
		Pending:  q.Len(),
	}
}
