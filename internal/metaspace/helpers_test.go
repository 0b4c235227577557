package metaspace

import (
	"runtime"
	"sync/atomic"
	"testing"
	"unsafe"
)

// withTestSettings forces a commit granule and the checked path for the
// duration of a test, restoring the previous settings afterwards. Tests
// using it must not run in parallel.
func withTestSettings(t *testing.T, granuleWords uintptr, checks bool) {
	t.Helper()

	prevGranule := atomic.LoadUintptr(&commitGranuleWords)
	prevChecks := ConsistencyChecksEnabled()
	prevUncommitted := VerifyUncommittedEnabled()

	atomic.StoreUintptr(&commitGranuleWords, granuleWords)
	SetConsistencyChecks(checks)

	t.Cleanup(func() {
		atomic.StoreUintptr(&commitGranuleWords, prevGranule)
		SetConsistencyChecks(prevChecks)
		SetVerifyUncommitted(prevUncommitted)
	})
}

// alignedBuffer returns a granule-aligned address inside a live heap buffer
// of at least size bytes. The buffer stays reachable until test cleanup.
func alignedBuffer(t *testing.T, size, align uintptr) uintptr {
	t.Helper()

	buf := make([]byte, size+align)
	t.Cleanup(func() { runtime.KeepAlive(buf) })

	return alignUp(uintptr(unsafe.Pointer(&buf[0])), align)
}
