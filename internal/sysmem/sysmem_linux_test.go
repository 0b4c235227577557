package sysmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveCommitUncommitCycle(t *testing.T) {
	size := 4 * PageSize()

	r, err := Reserve(size)
	require.NoError(t, err)
	defer func() { require.NoError(t, Release(r)) }()

	require.NotZero(t, r.Base())
	require.Equal(t, size, r.Size())
	require.Zero(t, r.Base()%PageSize(), "mmap base should be page-aligned")

	// Fresh reservation is inaccessible.
	assert.False(t, Probe(r.Base()))

	// Commit the first two pages and touch them.
	require.NoError(t, Commit(r.Base(), 2*PageSize()))
	b := unsafe.Slice((*byte)(unsafe.Pointer(r.Base())), 2*PageSize())
	b[0] = 0xa5
	b[len(b)-1] = 0x5a
	assert.True(t, Probe(r.Base()))
	assert.False(t, Probe(r.Base()+2*PageSize()), "page past the committed range stays inaccessible")

	// Uncommit the first page; the second stays committed.
	require.NoError(t, Uncommit(r.Base(), PageSize()))
	assert.False(t, Probe(r.Base()))
	assert.True(t, Probe(r.Base()+PageSize()))
}

func TestRecommitZeroes(t *testing.T) {
	r, err := Reserve(PageSize())
	require.NoError(t, err)
	defer func() { require.NoError(t, Release(r)) }()

	require.NoError(t, Commit(r.Base(), PageSize()))
	p := (*byte)(unsafe.Pointer(r.Base()))
	*p = 0xff

	require.NoError(t, Uncommit(r.Base(), PageSize()))
	require.NoError(t, Commit(r.Base(), PageSize()))
	assert.Zero(t, *p, "re-committed page should read as zero")
}

func TestProbeUnmappedAddress(t *testing.T) {
	require.True(t, HasSafeProbe())

	// Reserve and immediately release to get an address we know is unmapped.
	r, err := Reserve(PageSize())
	require.NoError(t, err)
	addr := r.Base()
	require.NoError(t, Release(r))

	assert.False(t, Probe(addr))
}
