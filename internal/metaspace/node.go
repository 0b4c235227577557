package metaspace

import (
	"fmt"
	"io"
	"sync"

	"github.com/orizon-lang/metaspace/internal/sysmem"
)

// CommitErrorCode classifies commit/uncommit failures.
type CommitErrorCode int

const (
	ErrCommitLimitReached CommitErrorCode = iota // Limiter cap would be exceeded
	ErrOSCommitFailed                            // OS commit call failed
	ErrOSUncommitFailed                          // OS uncommit call failed
	ErrRangeOutOfBounds                          // Range outside the node's reservation
)

// String returns string representation of the error code.
func (ec CommitErrorCode) String() string {
	switch ec {
	case ErrCommitLimitReached:
		return "CommitLimitReached"
	case ErrOSCommitFailed:
		return "OSCommitFailed"
	case ErrOSUncommitFailed:
		return "OSUncommitFailed"
	case ErrRangeOutOfBounds:
		return "RangeOutOfBounds"
	default:
		return fmt.Sprintf("Unknown(%d)", int(ec))
	}
}

// CommitError describes a failed node commit or uncommit operation.
type CommitError struct {
	Message  string
	Code     CommitErrorCode
	Addr     uintptr
	WordSize uintptr
	Err      error
}

// Error implements the error interface.
func (e *CommitError) Error() string {
	return fmt.Sprintf("CommitError[%s]: %s (addr=%#x, words=%d)", e.Code, e.Message, e.Addr, e.WordSize)
}

// Unwrap returns the underlying OS error, if any.
func (e *CommitError) Unwrap() error { return e.Err }

// VirtualSpaceNode is one reserved virtual address range of the metaspace.
// It owns exactly one CommitMask and the lock that serializes every
// mutation of it. The node performs the OS commit/uncommit calls; the mask
// is updated strictly after the OS call succeeded.
type VirtualSpaceNode struct {
	mu        sync.Mutex
	region    *sysmem.Region
	base      uintptr // granule-aligned start inside the reservation
	wordSize  uintptr
	mask      *CommitMask
	limiter   *CommitLimiter
	committed SizeCounter // words committed in this node, guarded by mu
	destroyed bool
}

// ReserveNode reserves wordSize words of address space (rounded up to whole
// commit granules) and attaches a fresh, all-clear commit mask. No memory is
// committed yet. limiter may be nil, in which case the global limiter is
// used.
func ReserveNode(wordSize uintptr, limiter *CommitLimiter) (*VirtualSpaceNode, error) {
	if limiter == nil {
		limiter = GlobalCommitLimiter()
	}

	granuleWords := CommitGranuleWords()
	granuleBytes := granuleWords * BytesPerWord
	wordSize = alignUp(wordSize, granuleWords)
	if wordSize == 0 {
		wordSize = granuleWords
	}

	// Over-reserve by one granule so the usable base can be aligned to the
	// granule even when the granule exceeds the OS page size.
	region, err := sysmem.Reserve(wordSize*BytesPerWord + granuleBytes)
	if err != nil {
		return nil, err
	}

	base := alignUp(region.Base(), granuleBytes)
	n := &VirtualSpaceNode{
		region:   region,
		base:     base,
		wordSize: wordSize,
		limiter:  limiter,
	}
	n.mask = NewCommitMask(base, wordSize, granuleWords)

	return n, nil
}

// Base returns the usable, granule-aligned start address.
func (n *VirtualSpaceNode) Base() uintptr { return n.base }

// WordSize returns the usable reservation size in words.
func (n *VirtualSpaceNode) WordSize() uintptr { return n.wordSize }

// CommittedWords returns the words currently committed in this node.
func (n *VirtualSpaceNode) CommittedWords() uintptr {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.committed.Get()
}

// granuleIndexRange maps the byte range [addr, addr+wordSize words) onto the
// smallest covering granule index range.
func (n *VirtualSpaceNode) granuleIndexRange(addr, wordSize uintptr) (lo, hi int) {
	granuleBytes := n.mask.wordsPerBit * BytesPerWord
	lo = int((alignDown(addr, granuleBytes) - n.base) / granuleBytes)
	hi = int((alignUp(addr+wordSize*BytesPerWord, granuleBytes) - n.base) / granuleBytes)

	return lo, hi
}

func (n *VirtualSpaceNode) checkRange(addr, wordSize uintptr) *CommitError {
	if addr < n.base || addr+wordSize*BytesPerWord > n.base+n.wordSize*BytesPerWord {
		return &CommitError{
			Message:  "range outside reservation",
			Code:     ErrRangeOutOfBounds,
			Addr:     addr,
			WordSize: wordSize,
		}
	}

	return nil
}

// EnsureRangeCommitted makes sure [addr, addr+wordSize words) is backed by
// real memory. It commits the minimal granule-aligned superset of the range,
// skipping granules the mask already records as committed; the limiter is
// consulted before each OS call, and the mask is updated only after the call
// succeeded. Already fully committed ranges cost one mask scan and no OS
// call.
func (n *VirtualSpaceNode) EnsureRangeCommitted(addr, wordSize uintptr) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if wordSize == 0 {
		return nil
	}
	if err := n.checkRange(addr, wordSize); err != nil {
		return err
	}

	lo, hi := n.granuleIndexRange(addr, wordSize)
	granuleBytes := n.mask.wordsPerBit * BytesPerWord

	for i := lo; i < hi; {
		if n.mask.IsCommitted(i) {
			i++
			continue
		}

		// Extend over the whole uncommitted run so one OS call covers it.
		j := i + 1
		for j < hi && !n.mask.IsCommitted(j) {
			j++
		}

		runWords := uintptr(j-i) * n.mask.wordsPerBit
		if n.limiter.PossibleExpansionWords() < runWords {
			return &CommitError{
				Message:  fmt.Sprintf("commit limit reached (%d of %d words committed)", n.limiter.CommittedWords(), n.limiter.CapWords()),
				Code:     ErrCommitLimitReached,
				Addr:     addr,
				WordSize: wordSize,
			}
		}

		runAddr := n.base + uintptr(i)*granuleBytes
		if err := sysmem.Commit(runAddr, runWords*BytesPerWord); err != nil {
			return &CommitError{
				Message:  "OS commit failed",
				Code:     ErrOSCommitFailed,
				Addr:     runAddr,
				WordSize: runWords,
				Err:      err,
			}
		}

		// The OS call succeeded; only now may the mask follow.
		n.limiter.IncreaseCommitted(runWords)
		n.mask.MarkCommitted(i, j)
		n.committed.IncrementBy(runWords)

		i = j
	}

	return nil
}

// UncommitRange returns whole granules to the OS. addr and wordSize must be
// granule-aligned; only the caller knows that no live allocation remains in
// the range. Granules the mask records as uncommitted are skipped.
func (n *VirtualSpaceNode) UncommitRange(addr, wordSize uintptr) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if wordSize == 0 {
		return nil
	}
	if err := n.checkRange(addr, wordSize); err != nil {
		return err
	}

	granuleBytes := n.mask.wordsPerBit * BytesPerWord
	if ConsistencyChecksEnabled() {
		if !isMultiple(addr, granuleBytes) || !isMultiple(wordSize, n.mask.wordsPerBit) {
			panic(fmt.Sprintf("virtual space node: uncommit range (%#x, %d words) not granule-aligned", addr, wordSize))
		}
	}

	lo, hi := n.granuleIndexRange(addr, wordSize)

	for i := lo; i < hi; {
		if !n.mask.IsCommitted(i) {
			i++
			continue
		}

		j := i + 1
		for j < hi && n.mask.IsCommitted(j) {
			j++
		}

		runWords := uintptr(j-i) * n.mask.wordsPerBit
		runAddr := n.base + uintptr(i)*granuleBytes
		if err := sysmem.Uncommit(runAddr, runWords*BytesPerWord); err != nil {
			return &CommitError{
				Message:  "OS uncommit failed",
				Code:     ErrOSUncommitFailed,
				Addr:     runAddr,
				WordSize: runWords,
				Err:      err,
			}
		}

		n.limiter.DecreaseCommitted(runWords)
		n.mask.MarkUncommitted(i, j)
		n.committed.DecrementBy(runWords)

		i = j
	}

	return nil
}

// IsRangeCommitted reports whether every granule overlapping
// [addr, addr+wordSize words) is committed.
func (n *VirtualSpaceNode) IsRangeCommitted(addr, wordSize uintptr) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if wordSize == 0 {
		return true
	}
	if n.checkRange(addr, wordSize) != nil {
		return false
	}

	lo, hi := n.granuleIndexRange(addr, wordSize)

	return n.mask.IsRangeCommitted(lo, hi)
}

// Stats returns a snapshot of the node's word counters.
func (n *VirtualSpaceNode) Stats() NodeStats {
	n.mu.Lock()
	defer n.mu.Unlock()

	return NodeStats{
		ReservedWords:  n.wordSize,
		CommittedWords: n.committed.Get(),
	}
}

// Verify cross-checks the node under its own lock: the committed counter
// against the mask's popcount, then the mask against the OS mapping state
// (including the touch test). No-op unless consistency checks are enabled.
func (n *VirtualSpaceNode) Verify(slow bool) {
	if !ConsistencyChecksEnabled() {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	n.committed.check(n.mask.CommittedWords())
	n.mask.verify(slow, true)
}

// Render writes the node's commit mask in its fixed-width text form.
func (n *VirtualSpaceNode) Render(w io.Writer) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.mask.Render(w)
}

// Destroy releases the reservation. All committed memory in the node is
// implicitly returned to the OS; the mask dies with the node.
func (n *VirtualSpaceNode) Destroy() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.destroyed {
		return nil
	}

	if err := sysmem.Release(n.region); err != nil {
		return err
	}

	n.limiter.DecreaseCommitted(n.committed.Get())
	n.committed.Reset()
	n.destroyed = true

	return nil
}
