package taskq

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor polls until cond returns true or the timeout elapses.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestQueue_ExecutesInArrivalOrder(t *testing.T) {
	q := New[string]()
	defer q.Stop()

	var mu sync.Mutex
	var got []string

	// Hold the runner on a gate so all three keys are queued before any runs.
	gate := make(chan struct{})
	require.NoError(t, q.Add("gate", func() { <-gate }))

	for _, key := range []string{"a", "b", "c"} {
		k := key
		require.NoError(t, q.Add(k, func() {
			mu.Lock()
			got = append(got, k)
			mu.Unlock()
		}))
	}
	close(gate)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, "tasks did not complete")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestQueue_ReplacesPendingTask(t *testing.T) {
	q := New[string]()
	defer q.Stop()

	gate := make(chan struct{})
	require.NoError(t, q.Add("gate", func() { <-gate }))

	var first, second atomic.Bool
	require.NoError(t, q.Add("k", func() { first.Store(true) }))
	require.NoError(t, q.Add("k", func() { second.Store(true) }))
	close(gate)

	waitFor(t, func() bool { return second.Load() }, "replacement task did not run")
	assert.False(t, first.Load(), "coalesced task must not run")
	assert.Equal(t, uint64(1), q.Stats().Replaced)
}

func TestQueue_RemovePreventsExecution(t *testing.T) {
	q := New[string]()
	defer q.Stop()

	gate := make(chan struct{})
	require.NoError(t, q.Add("gate", func() { <-gate }))

	var ran atomic.Bool
	require.NoError(t, q.Add("k", func() { ran.Store(true) }))
	assert.True(t, q.Remove("k"))
	assert.False(t, q.Remove("k"), "second remove is a no-op")
	close(gate)

	// Let the runner drain.
	var sentinel atomic.Bool
	require.NoError(t, q.Add("z", func() { sentinel.Store(true) }))
	waitFor(t, func() bool { return sentinel.Load() }, "sentinel did not run")

	assert.False(t, ran.Load(), "removed task must never run")
}

func TestQueue_RemoveDoesNotAffectRunningTask(t *testing.T) {
	q := New[string]()
	defer q.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	require.NoError(t, q.Add("k", func() {
		close(started)
		<-release
		close(finished)
	}))

	<-started
	assert.False(t, q.Remove("k"), "running task is not removable")
	assert.True(t, q.Contains("k"), "running key still reported by Contains")
	close(release)
	<-finished
}

func TestQueue_Contains(t *testing.T) {
	q := New[string]()
	defer q.Stop()

	gate := make(chan struct{})
	require.NoError(t, q.Add("gate", func() { <-gate }))
	require.NoError(t, q.Add("k", func() {}))

	assert.True(t, q.Contains("k"))
	assert.False(t, q.Contains("other"))
	close(gate)
}

func TestQueue_OneTaskAtATime(t *testing.T) {
	q := New[int]()
	defer q.Stop()

	var concurrent, peak atomic.Int32
	var done sync.WaitGroup
	done.Add(10)

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Add(i, func() {
			defer done.Done()
			n := concurrent.Add(1)
			if n > peak.Load() {
				peak.Store(n)
			}
			time.Sleep(time.Millisecond)
			concurrent.Add(-1)
		}))
	}

	done.Wait()
	assert.Equal(t, int32(1), peak.Load(), "tasks overlapped")
}

func TestQueue_AddAfterStop(t *testing.T) {
	q := New[string]()
	q.Stop()

	err := q.Add("k", func() {})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestQueue_StopDropsPending(t *testing.T) {
	q := New[string]()

	gate := make(chan struct{})
	require.NoError(t, q.Add("gate", func() { <-gate }))

	var ran atomic.Bool
	require.NoError(t, q.Add("k", func() { ran.Store(true) }))

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	q.Stop()

	assert.False(t, ran.Load(), "pending task must be dropped on Stop")
}

func TestQueue_PanicRecovery(t *testing.T) {
	var panicKey atomic.Value
	q := New[string](WithPanicHandler[string](func(key string, recovered any, stack []byte) {
		panicKey.Store(key)
	}))
	defer q.Stop()

	require.NoError(t, q.Add("boom", func() { panic("kaboom") }))

	var after atomic.Bool
	require.NoError(t, q.Add("next", func() { after.Store(true) }))

	waitFor(t, func() bool { return after.Load() }, "queue did not survive panic")
	assert.Equal(t, "boom", panicKey.Load())
	assert.Equal(t, uint64(1), q.Stats().Panicked)
}

func TestQueue_Clear(t *testing.T) {
	q := New[string]()
	defer q.Stop()

	gate := make(chan struct{})
	require.NoError(t, q.Add("gate", func() { <-gate }))
	require.NoError(t, q.Add("a", func() {}))
	require.NoError(t, q.Add("b", func() {}))

	q.Clear()
	assert.Equal(t, 0, q.Len())
	close(gate)
}
