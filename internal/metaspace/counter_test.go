package metaspace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeCounterBasics(t *testing.T) {
	withTestSettings(t, 8, true)

	var c SizeCounter
	assert.Equal(t, uintptr(0), c.Get())

	c.Increment()
	c.IncrementBy(41)
	assert.Equal(t, uintptr(42), c.Get())

	c.Decrement()
	c.DecrementBy(11)
	assert.Equal(t, uintptr(30), c.Get())

	c.Reset()
	assert.Equal(t, uintptr(0), c.Get())
}

func TestSizeCounterUnderflowChecked(t *testing.T) {
	withTestSettings(t, 8, true)

	var c SizeCounter
	c.IncrementBy(5)
	assert.Panics(t, func() { c.DecrementBy(6) })
}

func TestSizeCounterOverflowChecked(t *testing.T) {
	withTestSettings(t, 8, true)

	c := SizeCounter{v: ^uintptr(0)}
	assert.Panics(t, func() { c.Increment() })
}

func TestSizeCounterCheck(t *testing.T) {
	withTestSettings(t, 8, true)

	var c SizeCounter
	c.IncrementBy(7)
	c.check(7)
	assert.Panics(t, func() { c.check(8) })
}

func TestSizeCounterUncheckedWraps(t *testing.T) {
	withTestSettings(t, 8, false)

	var c SizeCounter
	c.DecrementBy(1)
	assert.Equal(t, ^uintptr(0), c.Get())
}

func TestSizeAtomicCounterConcurrent(t *testing.T) {
	withTestSettings(t, 8, false)

	var c SizeAtomicCounter
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.IncrementBy(3)
				c.DecrementBy(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uintptr(8*1000*2), c.Get())
}

func TestSizeAtomicCounterUnderflowChecked(t *testing.T) {
	withTestSettings(t, 8, true)

	var c SizeAtomicCounter
	c.IncrementBy(2)
	assert.Panics(t, func() { c.DecrementBy(3) })
}
