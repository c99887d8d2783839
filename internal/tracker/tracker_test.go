package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvisser/linetrack/internal/buffer"
	"github.com/kvisser/linetrack/internal/linestatus"
)

func newTestTracker(opts ...Option) *LineStatusTracker {
	doc := buffer.NewDocument("/tmp/a.go", "live\n")
	return New(doc, doc.Path(), opts...)
}

func TestInitialize(t *testing.T) {
	tr := newTestTracker()
	require.Equal(t, StateUninitialized, tr.State())

	tr.Initialize("base\n", linestatus.RevisionPack{Sequence: 0, Revision: "r1"})

	assert.Equal(t, StateInitialized, tr.State())
	content, ok := tr.BaseContent()
	require.True(t, ok)
	assert.Equal(t, "base\n", content)

	pack, ok := tr.Revision()
	require.True(t, ok)
	assert.Equal(t, "r1", pack.Revision)
}

func TestInitialize_RejectsStalePack(t *testing.T) {
	tr := newTestTracker()

	tr.Initialize("newer\n", linestatus.RevisionPack{Sequence: 5, Revision: "r5"})
	tr.Initialize("stale\n", linestatus.RevisionPack{Sequence: 3, Revision: "r3"})
	tr.Initialize("same\n", linestatus.RevisionPack{Sequence: 5, Revision: "r5"})

	content, ok := tr.BaseContent()
	require.True(t, ok)
	assert.Equal(t, "newer\n", content, "older or equal packs must be discarded")
}

func TestInitialize_AcceptsNewerPack(t *testing.T) {
	tr := newTestTracker()

	tr.Initialize("first\n", linestatus.RevisionPack{Sequence: 1, Revision: "r1"})
	tr.Initialize("second\n", linestatus.RevisionPack{Sequence: 2, Revision: "r2"})

	content, _ := tr.BaseContent()
	assert.Equal(t, "second\n", content)
}

func TestBaseRevisionLoadFailed(t *testing.T) {
	tr := newTestTracker()
	tr.BaseRevisionLoadFailed()

	assert.Equal(t, StateLoadFailed, tr.State())
	_, ok := tr.BaseContent()
	assert.False(t, ok)
}

func TestBaseRevisionLoadFailed_DoesNotDowngradeInitialized(t *testing.T) {
	tr := newTestTracker()
	tr.Initialize("base\n", linestatus.RevisionPack{Sequence: 0, Revision: "r1"})

	tr.BaseRevisionLoadFailed()
	assert.Equal(t, StateInitialized, tr.State())
}

func TestBulkUpdateNesting(t *testing.T) {
	tr := newTestTracker()

	tr.StartBulkUpdate()
	tr.StartBulkUpdate()
	assert.True(t, tr.InBulkUpdate())

	tr.FinishBulkUpdate()
	assert.True(t, tr.InBulkUpdate())
	tr.FinishBulkUpdate()
	assert.False(t, tr.InBulkUpdate())

	// Unbalanced finish is ignored.
	tr.FinishBulkUpdate()
	assert.False(t, tr.InBulkUpdate())
}

func TestRelease_MakesTrackerInert(t *testing.T) {
	tr := newTestTracker()
	tr.Initialize("base\n", linestatus.RevisionPack{Sequence: 0, Revision: "r1"})

	tr.Release()
	assert.Equal(t, StateReleased, tr.State())

	tr.Initialize("late\n", linestatus.RevisionPack{Sequence: 9, Revision: "r9"})
	tr.StartBulkUpdate()

	assert.Equal(t, StateReleased, tr.State())
	_, ok := tr.BaseContent()
	assert.False(t, ok)
	assert.False(t, tr.InBulkUpdate())

	// Releasing again is a no-op.
	tr.Release()
}

func TestStateChangeObserver(t *testing.T) {
	var transitions []State
	tr := newTestTracker(WithStateChangeFunc(func(path string, state State) {
		transitions = append(transitions, state)
	}))

	tr.Initialize("base\n", linestatus.RevisionPack{Sequence: 0, Revision: "r1"})
	tr.Release()
	tr.Release()

	assert.Equal(t, []State{StateInitialized, StateReleased}, transitions)
}
