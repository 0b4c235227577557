package metaspace

import "sync"

// NodeList owns the reserved nodes of one metaspace context (for example
// the class-space list and the non-class list). All nodes in a list share
// one commit limiter.
type NodeList struct {
	mu      sync.Mutex
	name    string
	limiter *CommitLimiter
	nodes   []*VirtualSpaceNode
}

// NewNodeList returns an empty list. limiter may be nil, in which case the
// global limiter is shared.
func NewNodeList(name string, limiter *CommitLimiter) *NodeList {
	if limiter == nil {
		limiter = GlobalCommitLimiter()
	}

	return &NodeList{name: name, limiter: limiter}
}

// Name returns the list's display name.
func (l *NodeList) Name() string { return l.name }

// Limiter returns the commit limiter shared by the list's nodes.
func (l *NodeList) Limiter() *CommitLimiter { return l.limiter }

// CreateNode reserves a new node of wordSize words and adds it to the list.
func (l *NodeList) CreateNode(wordSize uintptr) (*VirtualSpaceNode, error) {
	node, err := ReserveNode(wordSize, l.limiter)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.nodes = append(l.nodes, node)
	l.mu.Unlock()

	return node, nil
}

// Nodes returns a snapshot of the current nodes.
func (l *NodeList) Nodes() []*VirtualSpaceNode {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*VirtualSpaceNode, len(l.nodes))
	copy(out, l.nodes)

	return out
}

// Stats returns the aggregated word counters over all nodes.
func (l *NodeList) Stats() NodeStats {
	var total NodeStats
	for _, n := range l.Nodes() {
		total.Add(n.Stats())
	}

	return total
}

// Verify runs node verification over every node. No-op unless consistency
// checks are enabled.
func (l *NodeList) Verify(slow bool) {
	for _, n := range l.Nodes() {
		n.Verify(slow)
	}
}

// Destroy releases every node. The first error is returned; remaining nodes
// are still released.
func (l *NodeList) Destroy() error {
	l.mu.Lock()
	nodes := l.nodes
	l.nodes = nil
	l.mu.Unlock()

	var firstErr error
	for _, n := range nodes {
		if err := n.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
