package metaspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommitLimiterUnlimited(t *testing.T) {
	withTestSettings(t, 8, true)

	l := NewCommitLimiter(0)
	assert.Equal(t, uintptr(0), l.CapWords())
	assert.Equal(t, ^uintptr(0), l.PossibleExpansionWords())

	l.IncreaseCommitted(1 << 20)
	assert.Equal(t, ^uintptr(0), l.PossibleExpansionWords())
	assert.Equal(t, uintptr(1<<20), l.CommittedWords())
}

func TestCommitLimiterCap(t *testing.T) {
	withTestSettings(t, 8, true)

	l := NewCommitLimiter(100)
	assert.Equal(t, uintptr(100), l.PossibleExpansionWords())

	l.IncreaseCommitted(60)
	assert.Equal(t, uintptr(40), l.PossibleExpansionWords())

	l.IncreaseCommitted(40)
	assert.Equal(t, uintptr(0), l.PossibleExpansionWords())

	l.DecreaseCommitted(30)
	assert.Equal(t, uintptr(30), l.PossibleExpansionWords())
	assert.Equal(t, uintptr(70), l.CommittedWords())
}

func TestCommitLimiterOvershoot(t *testing.T) {
	withTestSettings(t, 8, false)

	// The limiter only advises; a caller that commits past the cap still
	// gets a sane zero expansion, not a wrapped value.
	l := NewCommitLimiter(50)
	l.IncreaseCommitted(80)
	assert.Equal(t, uintptr(0), l.PossibleExpansionWords())
}

func TestGlobalCommitLimiterIsSingleton(t *testing.T) {
	assert.Same(t, GlobalCommitLimiter(), GlobalCommitLimiter())
}
