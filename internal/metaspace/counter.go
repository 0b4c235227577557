package metaspace

import (
	"fmt"
	"sync/atomic"
)

// SizeCounter counts words. Not synchronized; the owner serializes access
// the same way it serializes its commit mask. Overflow and underflow are
// asserted only when consistency checks are enabled.
type SizeCounter struct {
	v uintptr
}

// Get returns the current count.
func (c *SizeCounter) Get() uintptr { return c.v }

// Increment adds one.
func (c *SizeCounter) Increment() { c.IncrementBy(1) }

// IncrementBy adds n.
func (c *SizeCounter) IncrementBy(n uintptr) {
	if ConsistencyChecksEnabled() && c.v+n < c.v {
		panic(fmt.Sprintf("size counter: overflow (%d + %d)", c.v, n))
	}
	c.v += n
}

// Decrement subtracts one.
func (c *SizeCounter) Decrement() { c.DecrementBy(1) }

// DecrementBy subtracts n.
func (c *SizeCounter) DecrementBy(n uintptr) {
	if ConsistencyChecksEnabled() && n > c.v {
		panic(fmt.Sprintf("size counter: underflow (%d - %d)", c.v, n))
	}
	c.v -= n
}

// Reset sets the count to zero.
func (c *SizeCounter) Reset() { c.v = 0 }

// check panics if the count does not match expected. Diagnostic use only;
// no-op unless consistency checks are enabled.
func (c *SizeCounter) check(expected uintptr) {
	if ConsistencyChecksEnabled() && c.v != expected {
		panic(fmt.Sprintf("size counter: mismatch: %d, expected %d", c.v, expected))
	}
}

// SizeAtomicCounter is a SizeCounter safe for concurrent use. The
// overflow/underflow diagnostics are check-then-add and therefore
// best-effort under contention, which is fine for a debug aid.
type SizeAtomicCounter struct {
	v uint64
}

// Get returns the current count.
func (c *SizeAtomicCounter) Get() uintptr {
	return uintptr(atomic.LoadUint64(&c.v))
}

// IncrementBy adds n.
func (c *SizeAtomicCounter) IncrementBy(n uintptr) {
	if ConsistencyChecksEnabled() {
		if cur := atomic.LoadUint64(&c.v); cur+uint64(n) < cur {
			panic(fmt.Sprintf("atomic size counter: overflow (%d + %d)", cur, n))
		}
	}
	atomic.AddUint64(&c.v, uint64(n))
}

// DecrementBy subtracts n.
func (c *SizeAtomicCounter) DecrementBy(n uintptr) {
	if ConsistencyChecksEnabled() {
		if cur := atomic.LoadUint64(&c.v); uint64(n) > cur {
			panic(fmt.Sprintf("atomic size counter: underflow (%d - %d)", cur, n))
		}
	}
	atomic.AddUint64(&c.v, ^(uint64(n) - 1))
}
