//go:build linux

package transport

import "golang.org/x/sys/unix"

// ioctlReadSize reports the bytes queued for reading. For datagram sockets
// Linux reports the size of the next datagram only.
const ioctlReadSize = unix.SIOCINQ
