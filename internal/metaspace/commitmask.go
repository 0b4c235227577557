package metaspace

import (
	"fmt"
	"io"
	"sync/atomic"
	"unsafe"

	"github.com/orizon-lang/metaspace/internal/sysmem"
)

// CommitMask records, one bit per commit granule, which parts of a reserved
// address range are currently backed by real memory. Bit i covers the
// granule [base + i*granuleWords, base + (i+1)*granuleWords) in words. A set
// bit asserts the granule is committed and safe to touch; a clear bit gives
// no such guarantee.
//
// The mask is a follower of physical state, never a driver: the owning node
// mutates it only after the matching OS commit or uncommit call succeeded.
// It performs no locking of its own; the owner serializes all mutations.
type CommitMask struct {
	bits        bitmap
	base        uintptr
	wordSize    uintptr
	wordsPerBit uintptr
}

// NewCommitMask creates an all-clear mask for the region of wordSize words
// starting at base, tracked at granuleWords words per bit. A fresh
// reservation is never pre-committed, so every bit starts false.
//
// Preconditions (fatal, checked only when consistency checks are enabled):
// wordSize and granuleWords are nonzero, wordSize is a whole multiple of
// granuleWords, and base is aligned to the granule size in bytes.
func NewCommitMask(base, wordSize, granuleWords uintptr) *CommitMask {
	if ConsistencyChecksEnabled() {
		if wordSize == 0 || granuleWords == 0 {
			panic(fmt.Sprintf("commit mask: zero geometry (word size %d, granule %d)", wordSize, granuleWords))
		}
		if !isMultiple(wordSize, granuleWords) {
			panic(fmt.Sprintf("commit mask: word size %d not a multiple of granule %d", wordSize, granuleWords))
		}
		if !isMultiple(base, granuleWords*BytesPerWord) {
			panic(fmt.Sprintf("commit mask: base %#x not aligned to granule (%d bytes)", base, granuleWords*BytesPerWord))
		}
	}

	return &CommitMask{
		bits:        newBitmap(int(wordSize / granuleWords)),
		base:        base,
		wordSize:    wordSize,
		wordsPerBit: granuleWords,
	}
}

// Len returns the number of granules the mask tracks.
func (m *CommitMask) Len() int { return m.bits.size() }

// Base returns the start address of the tracked region.
func (m *CommitMask) Base() uintptr { return m.base }

// WordSize returns the tracked region size in words.
func (m *CommitMask) WordSize() uintptr { return m.wordSize }

// granuleAddress returns the first byte address of granule i.
func (m *CommitMask) granuleAddress(i int) uintptr {
	return m.base + uintptr(i)*m.wordsPerBit*BytesPerWord
}

// MarkCommitted sets the bits for granules [lo, hi). The caller must hold
// the owning lock and must have completed the matching OS commit call.
func (m *CommitMask) MarkCommitted(lo, hi int) {
	m.assertIndexRange(lo, hi)
	m.bits.setRange(lo, hi)
}

// MarkUncommitted clears the bits for granules [lo, hi). The caller must
// hold the owning lock and must have completed the matching OS uncommit
// call.
func (m *CommitMask) MarkUncommitted(lo, hi int) {
	m.assertIndexRange(lo, hi)
	m.bits.clearRange(lo, hi)
}

// IsCommitted returns the bit for granule i.
func (m *CommitMask) IsCommitted(i int) bool {
	return m.bits.at(i)
}

// IsRangeCommitted reports whether every granule in [lo, hi) is committed.
func (m *CommitMask) IsRangeCommitted(lo, hi int) bool {
	m.assertIndexRange(lo, hi)
	return m.bits.allSet(lo, hi)
}

// CommittedGranules returns the number of set bits.
func (m *CommitMask) CommittedGranules() int {
	return m.bits.popcount()
}

// CommittedWords returns the committed size in words.
func (m *CommitMask) CommittedWords() uintptr {
	return uintptr(m.bits.popcount()) * m.wordsPerBit
}

func (m *CommitMask) assertIndexRange(lo, hi int) {
	if !ConsistencyChecksEnabled() {
		return
	}
	if lo < 0 || hi < lo || hi > m.bits.size() {
		panic(fmt.Sprintf("commit mask: index range [%d, %d) out of bounds (length %d)", lo, hi, m.bits.size()))
	}
}

// touchSink soaks up the bytes read by the verification touch test so the
// reads cannot be eliminated as dead code. Monotonically increasing; one
// increment per touched granule.
var touchSink uint64

// touchSinkValue returns the current sink value, for tests that want to
// observe that Verify actually touched memory.
func touchSinkValue() uint64 {
	return atomic.LoadUint64(&touchSink)
}

// Verify cross-checks the mask against the OS-observed mapping state. It
// walks every bit once and never mutates the mask; the only outcome of a
// mismatch is a fatal panic, because a wrong mask means either corrupt
// metadata writes (bit set, memory unbacked) or a leak (bit clear, memory
// still live).
//
// For each set bit, if doTouchTest is requested, one byte at the granule's
// first address is read and fed through touchSink; where the platform has a
// safe probe it is consulted first so a mismatch fails loudly instead of
// faulting. For each clear bit, if slow is requested, the granule is checked
// to be inaccessible — only where the platform probe exists, uncommit is
// known to be protective, and the advisory check is enabled.
//
// Verify is a no-op unless consistency checks are enabled. The caller must
// hold the owning lock or run at a quiesced point.
func (m *CommitMask) Verify(slow, doTouchTest bool) {
	if !ConsistencyChecksEnabled() {
		return
	}
	m.verify(slow, doTouchTest)
}

func (m *CommitMask) verify(slow, doTouchTest bool) {
	if !isMultiple(m.base, m.wordsPerBit*BytesPerWord) || !isMultiple(m.wordSize, m.wordsPerBit) {
		panic(fmt.Sprintf("commit mask: invalid geometry (base %#x, word size %d, granule %d)", m.base, m.wordSize, m.wordsPerBit))
	}

	checkUncommitted := slow && VerifyUncommittedEnabled() &&
		sysmem.HasSafeProbe() && sysmem.UncommitIsProtective()

	for i := 0; i < m.bits.size(); i++ {
		p := m.granuleAddress(i)
		if m.bits.at(i) {
			if doTouchTest {
				touchGranule(i, p)
			}
		} else if checkUncommitted {
			if sysmem.Probe(p) {
				panic(fmt.Sprintf("commit mask: granule %d at %#x marked uncommitted but is readable", i, p))
			}
		}
	}
}

// touchGranule confirms granule i at address p is actually accessible and
// performs the one-byte diagnostic read.
func touchGranule(i int, p uintptr) {
	if sysmem.HasSafeProbe() && !sysmem.Probe(p) {
		panic(fmt.Sprintf("commit mask: granule %d at %#x marked committed but is not accessible", i, p))
	}
	b := *(*byte)(unsafe.Pointer(p))
	atomic.AddUint64(&touchSink, uint64(b)|1)
}

// Render writes the mask's fixed-width text form: the base address label
// followed by one character per granule, 'X' committed, '-' uncommitted.
func (m *CommitMask) Render(w io.Writer) {
	fmt.Fprintf(w, "commit mask, base %#x:", m.base)
	line := make([]byte, m.bits.size())
	for i := range line {
		if m.bits.at(i) {
			line[i] = 'X'
		} else {
			line[i] = '-'
		}
	}
	w.Write(line)
	io.WriteString(w, "\n")
}
