package metaspace

// NodeStats is a snapshot of one node's (or an aggregate's) word counters.
// capacity = committed + uncommitted; reserved covers both.
type NodeStats struct {
	ReservedWords  uintptr
	CommittedWords uintptr
}

// Add accumulates other into s.
func (s *NodeStats) Add(other NodeStats) {
	s.ReservedWords += other.ReservedWords
	s.CommittedWords += other.CommittedWords
}

// ReservedBytes returns the reserved size in bytes.
func (s NodeStats) ReservedBytes() uintptr { return s.ReservedWords * BytesPerWord }

// CommittedBytes returns the committed size in bytes.
func (s NodeStats) CommittedBytes() uintptr { return s.CommittedWords * BytesPerWord }
