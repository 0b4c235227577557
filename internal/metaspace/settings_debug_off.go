//go:build !debug

package metaspace

// Performance builds trust callers: checks are off unless forced at runtime
// via SetConsistencyChecks.
const debugChecksDefault uint32 = 0
