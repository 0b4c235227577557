package metaspace

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/metaspace/internal/sysmem"
)

func TestCommitMaskFreshAllClear(t *testing.T) {
	withTestSettings(t, 8, true)

	m := NewCommitMask(0x1000, 64, 8)
	require.Equal(t, 8, m.Len())
	assert.Equal(t, uintptr(0x1000), m.Base())
	assert.Equal(t, uintptr(64), m.WordSize())
	assert.Equal(t, 0, m.CommittedGranules())
	assert.Equal(t, uintptr(0), m.CommittedWords())
	for i := 0; i < m.Len(); i++ {
		assert.False(t, m.IsCommitted(i), "granule %d", i)
	}
}

func TestCommitMaskRejectsBadGeometry(t *testing.T) {
	withTestSettings(t, 8, true)

	assert.Panics(t, func() { NewCommitMask(0x1000, 100, 7) })
	assert.Panics(t, func() { NewCommitMask(0x1008, 64, 8) })
	assert.Panics(t, func() { NewCommitMask(0x1000, 0, 8) })
	assert.Panics(t, func() { NewCommitMask(0x1000, 64, 0) })
}

func TestCommitMaskUncheckedConstructionTrustsCaller(t *testing.T) {
	withTestSettings(t, 8, false)

	m := NewCommitMask(0x1000, 96, 8)
	assert.Equal(t, 12, m.Len())
}

func TestCommitMaskMarkDisjointRanges(t *testing.T) {
	withTestSettings(t, 8, true)

	m := NewCommitMask(0x1000, 512, 8)
	m.MarkCommitted(0, 4)
	m.MarkCommitted(10, 20)

	assert.True(t, m.IsRangeCommitted(0, 4))
	assert.True(t, m.IsRangeCommitted(10, 20))
	assert.False(t, m.IsRangeCommitted(0, 20))
	assert.False(t, m.IsCommitted(4))
	assert.False(t, m.IsCommitted(9))
	assert.Equal(t, 14, m.CommittedGranules())
	assert.Equal(t, uintptr(14*8), m.CommittedWords())

	m.MarkUncommitted(2, 12)
	assert.True(t, m.IsRangeCommitted(0, 2))
	assert.False(t, m.IsCommitted(2))
	assert.False(t, m.IsCommitted(11))
	assert.True(t, m.IsRangeCommitted(12, 20))
	assert.Equal(t, 10, m.CommittedGranules())
}

func TestCommitMaskCommitUncommitRoundTrip(t *testing.T) {
	withTestSettings(t, 8, true)

	m := NewCommitMask(0x1000, 256, 8)
	m.MarkCommitted(0, m.Len())
	require.Equal(t, m.Len(), m.CommittedGranules())

	m.MarkUncommitted(0, m.Len())
	assert.Equal(t, 0, m.CommittedGranules())
	for i := 0; i < m.Len(); i++ {
		assert.False(t, m.IsCommitted(i))
	}
}

func TestCommitMaskIndexRangeChecked(t *testing.T) {
	withTestSettings(t, 8, true)

	m := NewCommitMask(0x1000, 64, 8)
	assert.Panics(t, func() { m.MarkCommitted(0, 9) })
	assert.Panics(t, func() { m.MarkUncommitted(-1, 2) })
	assert.Panics(t, func() { m.IsRangeCommitted(5, 3) })
}

func TestCommitMaskRender(t *testing.T) {
	withTestSettings(t, 8, true)

	m := NewCommitMask(0x1000, 64, 8)
	m.MarkCommitted(2, 5)

	var sb strings.Builder
	m.Render(&sb)
	assert.Equal(t, "commit mask, base 0x1000:--XXX---\n", sb.String())

	assert.False(t, m.IsCommitted(1))
	assert.True(t, m.IsCommitted(2))
	assert.True(t, m.IsCommitted(4))
	assert.False(t, m.IsCommitted(5))
}

func TestCommitMaskVerifyNoopWhenUnchecked(t *testing.T) {
	withTestSettings(t, 8, false)

	// Deliberately bogus base; Verify must not dereference anything.
	m := NewCommitMask(0xdead0, 64, 8)
	m.MarkCommitted(0, 8)
	m.Verify(true, true)
}

func TestCommitMaskVerifyTouchesCommittedMemory(t *testing.T) {
	const granuleWords = 8
	withTestSettings(t, granuleWords, true)

	granuleBytes := uintptr(granuleWords) * BytesPerWord
	base := alignedBuffer(t, 4*granuleBytes, granuleBytes)

	m := NewCommitMask(base, 4*granuleWords, granuleWords)
	m.MarkCommitted(0, 4)

	before := touchSinkValue()
	m.Verify(false, true)
	assert.GreaterOrEqual(t, touchSinkValue()-before, uint64(4))
}

func TestCommitMaskVerifyDetectsInaccessibleGranule(t *testing.T) {
	if !sysmem.HasSafeProbe() {
		t.Skip("no safe probe on this platform")
	}
	pageWords := sysmem.PageSize() / BytesPerWord
	withTestSettings(t, pageWords, true)

	r, err := sysmem.Reserve(2 * sysmem.PageSize())
	require.NoError(t, err)
	defer sysmem.Release(r)

	// The reservation is PROT_NONE and never committed; a mask claiming
	// otherwise must fail the probe before the raw read faults.
	m := NewCommitMask(r.Base(), 2*pageWords, pageWords)
	m.MarkCommitted(0, 2)
	assert.Panics(t, func() { m.Verify(false, true) })
}
