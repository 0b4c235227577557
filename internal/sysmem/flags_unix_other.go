//go:build darwin || freebsd || netbsd || openbsd

package sysmem

import "golang.org/x/sys/unix"

const reserveFlags = unix.MAP_PRIVATE | unix.MAP_ANON
