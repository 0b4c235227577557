//go:build !linux && !windows

package sysmem

// HasSafeProbe reports whether Probe is available. There is no portable
// non-faulting read on this platform, so diagnostics that need one are
// skipped.
func HasSafeProbe() bool { return false }

// Probe always reports false on platforms without a safe probe. Callers must
// check HasSafeProbe first.
func Probe(addr uintptr) bool { return false }
