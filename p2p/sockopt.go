//
// sockopt.go
//
// Copyright (c) 2019 Markku Rossi
//
// All rights reserved.
//

package p2p

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneSocket disables Nagle's algorithm on the raw file descriptor
// backing nc. Every online round is a small request/response pair;
// without TCP_NODELAY the kernel's coalescing delay can dominate the
// round latency the protocol otherwise spends on local computation.
// Best-effort: a connection that does not expose a raw fd (e.g. a
// net.Pipe used in tests) is left untouched.
func tuneSocket(nc net.Conn) {
	tc, ok := nc.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
}
