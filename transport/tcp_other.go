//go:build !linux

package transport

import "net"

// writevAll falls back to a coalesced single write on platforms without a
// wired-up scatter/gather syscall path. Correctness is identical to the
// Linux path; only the syscall count differs, and scatter/gather there is
// an optimization, not a requirement.
func writevAll(conn *net.TCPConn, bufs [][]byte) error {
	return sendAllOn(conn, concat(bufs))
}

// setCork is a no-op outside Linux; TCP_CORK has no portable analogue, and
// the hint is advisory only.
func setCork(conn *net.TCPConn, on bool) {}
