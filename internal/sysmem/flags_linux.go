package sysmem

import "golang.org/x/sys/unix"

// MAP_NORESERVE keeps large reservations from counting against overcommit
// accounting; the committed subset is what actually consumes memory.
const reserveFlags = unix.MAP_PRIVATE | unix.MAP_ANON | unix.MAP_NORESERVE
