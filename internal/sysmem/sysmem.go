// Package sysmem provides the OS-level memory primitives the metaspace
// manager builds on: reserving large virtual address ranges without backing
// them, committing and uncommitting sub-ranges, and a best-effort
// non-faulting accessibility probe for diagnostics.
//
// Reservations are made inaccessible (PROT_NONE / MEM_RESERVE); committing
// makes a range readable and writable; uncommitting returns it to the
// inaccessible state and tells the OS the backing pages are no longer
// needed. How "uncommitted" manifests to a reader is platform-dependent,
// which is why the probe is gated behind capability queries rather than
// assumed to exist everywhere.
package sysmem

import (
	"fmt"
	"os"
)

// MemError describes a failed memory primitive operation.
type MemError struct {
	Op   string // "reserve", "commit", "uncommit", "release"
	Addr uintptr
	Size uintptr
	Err  error
}

// Error implements the error interface.
func (e *MemError) Error() string {
	return fmt.Sprintf("sysmem: %s of %d bytes at %#x failed: %v", e.Op, e.Size, e.Addr, e.Err)
}

// Unwrap returns the underlying OS error.
func (e *MemError) Unwrap() error { return e.Err }

// PageSize returns the OS page size in bytes.
func PageSize() uintptr {
	return uintptr(os.Getpagesize())
}
