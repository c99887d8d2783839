// Package applyloop provides a single-consumer loop for deferred work.
//
// Background work that must commit its results on a designated context posts
// a closure here instead of mutating shared state directly. The loop runs
// closures one at a time, in submission order, on its own goroutine, and
// re-checks an optional expiration predicate immediately before running each
// closure so that results completed after a teardown are dropped instead of
// applied.
package applyloop

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/kvisser/linetrack/internal/logger"
)

// entry is one deferred closure plus its expiration predicate.
type entry struct {
	fn      func()
	expired func() bool
}

// Loop executes deferred closures sequentially on a dedicated goroutine.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []entry
	stopped bool
	wg      sync.WaitGroup

	invoked atomic.Uint64
	skipped atomic.Uint64
}

// New creates a loop and starts its consumer goroutine.
func New() *Loop {
	l := &Loop{}
	l.cond = sync.NewCond(&l.mu)

	l.wg.Add(1)
	go l.run()

	return l
}

// Invoke schedules fn to run on the loop goroutine.
func (l *Loop) Invoke(fn func()) {
	l.InvokeIf(fn, nil)
}

// InvokeIf schedules fn to run on the loop goroutine unless expired returns
// true at execution time. Closures scheduled after Stop are dropped.
func (l *Loop) InvokeIf(fn func(), expired func() bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		l.skipped.Add(1)
		return
	}

	l.queue = append(l.queue, entry{fn: fn, expired: expired})
	l.cond.Signal()
}

// Stop drops all pending closures and stops the consumer after any closure
// currently executing returns. Stop is idempotent and blocks until the
// consumer has exited.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.wg.Wait()
		return
	}
	l.stopped = true
	l.skipped.Add(uint64(len(l.queue)))
	l.queue = nil
	l.cond.Broadcast()
	l.mu.Unlock()

	l.wg.Wait()
}

// Pending returns the number of closures waiting to run.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Invoked returns the number of closures that ran.
func (l *Loop) Invoked() uint64 { return l.invoked.Load() }

// Skipped returns the number of closures dropped by expiration or Stop.
func (l *Loop) Skipped() uint64 { return l.skipped.Load() }

func (l *Loop) run() {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.stopped {
			l.cond.Wait()
		}
		if l.stopped {
			l.mu.Unlock()
			return
		}

		e := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		if e.expired != nil && e.expired() {
			l.skipped.Add(1)
			continue
		}
		l.execute(e.fn)
	}
}

// execute runs one closure with panic recovery so a bad apply cannot kill
// the consumer goroutine.
func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("apply loop closure panicked", "recovered", r, "stack", string(debug.Stack()))
		}
	}()

	fn()
	l.invoked.Add(1)
}
