package metaspace

// CommitLimiter caps how many metadata words may be committed at any one
// time across the nodes that share it. Nodes consult it before every OS
// commit call and report back after commit and uncommit.
type CommitLimiter struct {
	committed SizeAtomicCounter
	capWords  uintptr // 0 means unlimited
}

// NewCommitLimiter returns a limiter with the given cap in words; a cap of
// zero means unlimited.
func NewCommitLimiter(capWords uintptr) *CommitLimiter {
	return &CommitLimiter{capWords: capWords}
}

// CapWords returns the configured cap, zero for unlimited.
func (l *CommitLimiter) CapWords() uintptr { return l.capWords }

// CommittedWords returns the words currently accounted as committed.
func (l *CommitLimiter) CommittedWords() uintptr { return l.committed.Get() }

// PossibleExpansionWords returns how many more words may be committed before
// hitting the cap.
func (l *CommitLimiter) PossibleExpansionWords() uintptr {
	if l.capWords == 0 {
		return ^uintptr(0)
	}
	c := l.committed.Get()
	if c >= l.capWords {
		return 0
	}
	return l.capWords - c
}

// IncreaseCommitted accounts words as committed after a successful OS
// commit.
func (l *CommitLimiter) IncreaseCommitted(words uintptr) {
	l.committed.IncrementBy(words)
}

// DecreaseCommitted returns words to the budget after a successful OS
// uncommit.
func (l *CommitLimiter) DecreaseCommitted(words uintptr) {
	l.committed.DecrementBy(words)
}

// globalCommitLimiter is the process-wide limiter used when a node list is
// not given its own. Unlimited unless a cap is installed before use.
var globalCommitLimiter = NewCommitLimiter(0)

// GlobalCommitLimiter returns the process-wide limiter.
func GlobalCommitLimiter() *CommitLimiter {
	return globalCommitLimiter
}
