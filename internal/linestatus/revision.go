package linestatus

// RevisionPack tags one loaded base content with its freshness. Sequence
// numbers are assigned at load-dispatch time from a counter owned by the
// load queue's single runner goroutine, so they form a strict total order
// across the manager's lifetime. Trackers use the order to discard results
// superseded across reinstallation cycles; within one key the queue already
// prevents two loads from racing.
type RevisionPack struct {
	// Sequence is the manager-lifetime dispatch counter value.
	Sequence uint64

	// Revision is the opaque base revision identifier.
	Revision string
}

// After reports whether p was dispatched after other.
func (p RevisionPack) After(other RevisionPack) bool {
	return p.Sequence > other.Sequence
}
