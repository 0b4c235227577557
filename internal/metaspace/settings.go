// Package metaspace implements the commit-state tracking core of a
// class-metadata arena: large virtual address ranges are reserved up front
// and backed by physical memory incrementally, at commit-granule
// granularity. The CommitMask records which granules of a reserved range are
// currently backed; VirtualSpaceNode performs the OS commit/uncommit calls
// and keeps the mask in sync with them.
package metaspace

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/orizon-lang/metaspace/internal/sysmem"
)

// ReclaimStrategy selects how aggressively committed metadata memory is
// returned to the OS. The strategy fixes the commit granule size for the
// whole process: coarser granules mean fewer, cheaper OS calls and a smaller
// mask, finer granules reclaim more precisely.
type ReclaimStrategy int

const (
	ReclaimBalanced ReclaimStrategy = iota
	ReclaimNone
	ReclaimAggressive
)

// String returns the textual form of the strategy.
func (s ReclaimStrategy) String() string {
	switch s {
	case ReclaimBalanced:
		return "balanced"
	case ReclaimNone:
		return "none"
	case ReclaimAggressive:
		return "aggressive"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ParseReclaimStrategy parses a strategy name as given on a command line.
func ParseReclaimStrategy(s string) (ReclaimStrategy, error) {
	switch s {
	case "balanced":
		return ReclaimBalanced, nil
	case "none":
		return ReclaimNone, nil
	case "aggressive":
		return ReclaimAggressive, nil
	default:
		return 0, fmt.Errorf("invalid reclaim strategy %q (want balanced, none or aggressive)", s)
	}
}

// Commit granule byte sizes per strategy. With no reclaim the granule is so
// coarse that uncommit effectively never happens below whole-node size.
const (
	granuleBytesBalanced   = 64 * 1024
	granuleBytesNone       = 16 * 1024 * 1024
	granuleBytesAggressive = 16 * 1024
)

// DefaultGranuleWords is the commit granule used when InitializeSettings was
// never called (the balanced strategy's granule).
const DefaultGranuleWords = granuleBytesBalanced / BytesPerWord

var (
	settingsMu          sync.Mutex
	settingsInitialized bool

	// commitGranuleWords is the process-wide granule size in words. Set once
	// by InitializeSettings; read-mostly afterwards.
	commitGranuleWords uintptr = DefaultGranuleWords

	// consistencyChecks gates every precondition assert and Verify walk.
	// Defaults from the debug build tag; runtime-togglable so tests and the
	// tunables watcher can force the checked path in any build.
	consistencyChecks uint32 = debugChecksDefault

	// verifyUncommitted additionally enables the advisory
	// "uncommitted implies inaccessible" direction of Verify.
	verifyUncommitted uint32
)

// InitializeSettings fixes the process-wide commit granule from the chosen
// reclaim strategy. It must be called at most once, before any node is
// reserved; the granule is rounded up to the OS page size so that commit and
// uncommit always operate on whole pages.
func InitializeSettings(strategy ReclaimStrategy) error {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	if settingsInitialized {
		return fmt.Errorf("metaspace: settings already initialized")
	}

	var granuleBytes uintptr
	switch strategy {
	case ReclaimBalanced:
		granuleBytes = granuleBytesBalanced
	case ReclaimNone:
		granuleBytes = granuleBytesNone
	case ReclaimAggressive:
		granuleBytes = granuleBytesAggressive
	default:
		return fmt.Errorf("metaspace: unknown reclaim strategy %d", int(strategy))
	}

	page := sysmem.PageSize()
	if granuleBytes < page {
		granuleBytes = page
	}
	if !isPowerOfTwo(granuleBytes) || !isAligned(granuleBytes, page) {
		return fmt.Errorf("metaspace: commit granule %d bytes not a page multiple (page size %d)", granuleBytes, page)
	}

	atomic.StoreUintptr(&commitGranuleWords, granuleBytes/BytesPerWord)
	settingsInitialized = true

	return nil
}

// CommitGranuleWords returns the process-wide commit granule size in words.
func CommitGranuleWords() uintptr {
	return atomic.LoadUintptr(&commitGranuleWords)
}

// CommitGranuleBytes returns the commit granule size in bytes.
func CommitGranuleBytes() uintptr {
	return CommitGranuleWords() * BytesPerWord
}

// ConsistencyChecksEnabled reports whether precondition asserts and Verify
// walks are active. In a performance build with checks off, callers are
// trusted and none of these paths run.
func ConsistencyChecksEnabled() bool {
	return atomic.LoadUint32(&consistencyChecks) != 0
}

// SetConsistencyChecks switches the checked path on or off at runtime.
func SetConsistencyChecks(enabled bool) {
	atomic.StoreUint32(&consistencyChecks, boolToFlag(enabled))
}

// VerifyUncommittedEnabled reports whether slow Verify also checks that
// uncommitted granules are inaccessible. This direction is advisory and
// platform-dependent, so it is off by default.
func VerifyUncommittedEnabled() bool {
	return atomic.LoadUint32(&verifyUncommitted) != 0
}

// SetVerifyUncommitted toggles the advisory uncommitted-ranges check.
func SetVerifyUncommitted(enabled bool) {
	atomic.StoreUint32(&verifyUncommitted, boolToFlag(enabled))
}

func boolToFlag(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
