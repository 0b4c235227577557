package metaspace

import "math/bits"

// bitmap is a fixed-length bit vector backed by uint64 words. It is the
// private storage of CommitMask; no generic bit-vector API is exposed
// outside this package.
type bitmap struct {
	words []uint64
	n     int
}

// newBitmap returns a bitmap of n bits, all zero.
func newBitmap(n int) bitmap {
	return bitmap{words: make([]uint64, (n+63)/64), n: n}
}

// size returns the number of bits.
func (b *bitmap) size() int { return b.n }

// at returns bit i.
func (b *bitmap) at(i int) bool {
	return b.words[i>>6]&(1<<(uint(i)&63)) != 0
}

// wordMask returns a mask of bits [lo, hi) within a single uint64,
// 0 <= lo < hi <= 64.
func wordMask(lo, hi int) uint64 {
	return (^uint64(0) << uint(lo)) & (^uint64(0) >> uint(64-hi))
}

// setRange sets bits in the half-open range [lo, hi).
func (b *bitmap) setRange(lo, hi int) {
	if lo >= hi {
		return
	}
	lw, hw := lo>>6, (hi-1)>>6
	if lw == hw {
		b.words[lw] |= wordMask(lo&63, (hi-1)&63+1)
		return
	}
	b.words[lw] |= wordMask(lo&63, 64)
	for w := lw + 1; w < hw; w++ {
		b.words[w] = ^uint64(0)
	}
	b.words[hw] |= wordMask(0, (hi-1)&63+1)
}

// clearRange clears bits in the half-open range [lo, hi).
func (b *bitmap) clearRange(lo, hi int) {
	if lo >= hi {
		return
	}
	lw, hw := lo>>6, (hi-1)>>6
	if lw == hw {
		b.words[lw] &^= wordMask(lo&63, (hi-1)&63+1)
		return
	}
	b.words[lw] &^= wordMask(lo&63, 64)
	for w := lw + 1; w < hw; w++ {
		b.words[w] = 0
	}
	b.words[hw] &^= wordMask(0, (hi-1)&63+1)
}

// allSet reports whether every bit in [lo, hi) is set. An empty range is
// trivially all set.
func (b *bitmap) allSet(lo, hi int) bool {
	for i := lo; i < hi; i++ {
		if !b.at(i) {
			return false
		}
	}
	return true
}

// popcount returns the number of set bits.
func (b *bitmap) popcount() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}
