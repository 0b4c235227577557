package sysmem

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Region is a reserved virtual address range. The reservation starts out
// fully inaccessible; sub-ranges become usable only after Commit.
type Region struct {
	base uintptr
	size uintptr
}

// Base returns the start address of the reservation.
func (r *Region) Base() uintptr { return r.base }

// Size returns the reservation size in bytes.
func (r *Region) Size() uintptr { return r.size }

// Reserve reserves size bytes of address space without committing any
// physical memory.
func Reserve(size uintptr) (*Region, error) {
	base, err := windows.VirtualAlloc(0, size, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		return nil, &MemError{Op: "reserve", Size: size, Err: err}
	}
	return &Region{base: base, size: size}, nil
}

// Release frees the whole reservation.
func Release(r *Region) error {
	if err := windows.VirtualFree(r.base, 0, windows.MEM_RELEASE); err != nil {
		return &MemError{Op: "release", Addr: r.base, Size: r.size, Err: err}
	}
	r.base, r.size = 0, 0
	return nil
}

// Commit backs [addr, addr+size) with real memory, readable and writable.
func Commit(addr, size uintptr) error {
	if _, err := windows.VirtualAlloc(addr, size, windows.MEM_COMMIT, windows.PAGE_READWRITE); err != nil {
		return &MemError{Op: "commit", Addr: addr, Size: size, Err: err}
	}
	return nil
}

// Uncommit decommits [addr, addr+size), returning the pages to the OS. The
// range stays reserved and becomes inaccessible until committed again.
func Uncommit(addr, size uintptr) error {
	if err := windows.VirtualFree(addr, size, windows.MEM_DECOMMIT); err != nil {
		return &MemError{Op: "uncommit", Addr: addr, Size: size, Err: err}
	}
	return nil
}

// UncommitIsProtective reports whether uncommitted ranges are guaranteed to
// be inaccessible to loads. True here: decommitted pages fault on access.
func UncommitIsProtective() bool { return true }

// HasSafeProbe reports whether Probe is available. VirtualQuery gives the
// commit and protection state of a page without touching it.
func HasSafeProbe() bool { return true }

// Probe reports whether one byte at addr is readable, without faulting.
func Probe(addr uintptr) bool {
	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQuery(addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
		return false
	}
	if mbi.State != windows.MEM_COMMIT {
		return false
	}
	return mbi.Protect&(windows.PAGE_NOACCESS|windows.PAGE_GUARD) == 0
}
