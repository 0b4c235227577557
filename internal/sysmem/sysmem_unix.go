//go:build linux || darwin || freebsd || netbsd || openbsd

package sysmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is a reserved virtual address range. The backing mapping starts out
// fully inaccessible; sub-ranges become usable only after Commit.
type Region struct {
	mapping []byte
}

// Base returns the start address of the reservation. The address is
// page-aligned by construction.
func (r *Region) Base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.mapping)))
}

// Size returns the reservation size in bytes.
func (r *Region) Size() uintptr { return uintptr(len(r.mapping)) }

// Reserve maps size bytes of anonymous, inaccessible address space. No
// physical memory is committed; touching any part of the region before
// committing it faults.
func Reserve(size uintptr) (*Region, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_NONE, reserveFlags)
	if err != nil {
		return nil, &MemError{Op: "reserve", Size: size, Err: err}
	}
	return &Region{mapping: b}, nil
}

// Release unmaps the whole reservation. All committed sub-ranges are
// implicitly returned to the OS.
func Release(r *Region) error {
	if err := unix.Munmap(r.mapping); err != nil {
		return &MemError{Op: "release", Addr: r.Base(), Size: r.Size(), Err: err}
	}
	r.mapping = nil
	return nil
}

// Commit backs [addr, addr+size) with real memory, making it readable and
// writable. addr and size must be page-aligned and lie within a reservation.
func Commit(addr, size uintptr) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	if err := unix.Mprotect(b, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return &MemError{Op: "commit", Addr: addr, Size: size, Err: err}
	}
	return nil
}

// Uncommit removes the backing from [addr, addr+size) and makes the range
// inaccessible again. The pages are released with MADV_DONTNEED while still
// accessible, then the protection drops to PROT_NONE; a later re-commit
// observes zeroed content.
func Uncommit(addr, size uintptr) error {
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	if err := unix.Madvise(b, unix.MADV_DONTNEED); err != nil {
		return &MemError{Op: "uncommit", Addr: addr, Size: size, Err: err}
	}
	if err := unix.Mprotect(b, unix.PROT_NONE); err != nil {
		return &MemError{Op: "uncommit", Addr: addr, Size: size, Err: err}
	}
	return nil
}

// UncommitIsProtective reports whether uncommitted ranges are guaranteed to
// be inaccessible to loads. True here: Uncommit drops the protection to
// PROT_NONE, so a read of an uncommitted granule faults.
func UncommitIsProtective() bool { return true }
