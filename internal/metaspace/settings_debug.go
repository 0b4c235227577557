//go:build debug

package metaspace

// In debug builds every consistency check and Verify walk is on by default.
const debugChecksDefault uint32 = 1
