package metaspace

import "unsafe"

// BytesPerWord is the size of one metadata word in bytes. All metaspace
// sizes and offsets are expressed in words at pointer granularity.
const BytesPerWord = unsafe.Sizeof(uintptr(0))

// alignUp rounds v up to the next multiple of alignment.
// alignment must be a power of two.
func alignUp(v, alignment uintptr) uintptr {
	return (v + alignment - 1) &^ (alignment - 1)
}

// alignDown rounds v down to a multiple of alignment.
// alignment must be a power of two.
func alignDown(v, alignment uintptr) uintptr {
	return v &^ (alignment - 1)
}

// isAligned reports whether v is a multiple of alignment.
// alignment must be a power of two.
func isAligned(v, alignment uintptr) bool {
	return v&(alignment-1) == 0
}

// isMultiple reports whether v is a whole multiple of m. Unlike isAligned
// this does not require m to be a power of two.
func isMultiple(v, m uintptr) bool {
	return m != 0 && v%m == 0
}

// isPowerOfTwo reports whether v is a nonzero power of two.
func isPowerOfTwo(v uintptr) bool {
	return v != 0 && v&(v-1) == 0
}
