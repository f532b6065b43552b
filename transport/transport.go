// Package transport implements the reliable ordered byte stream abstraction
// the wire protocol runs over: a plain TCP variant and a TLS 1.3
// mutual-auth variant behind one StreamTransport interface, so the
// pipeline and client packages never need to know which one they're using.
//
// Connection establishment policy beyond what the protocol requires (DNS,
// socket option tuning, keepalive, hostname/IP verification policy) is
// deliberately out of scope here; this package opens a connection with the
// options it is given, loads the certificate files a TLSConfig names, and
// otherwise treats the resulting stream opaquely.
package transport

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/hpkv-io/rioc/status"
)

// coalesceBelowBytes is the threshold under which a vectored send is
// coalesced into a single contiguous write rather than issued as
// scatter/gather, to minimize syscalls for small payloads.
const coalesceBelowBytes = 4096

// StreamTransport is the contract both the plain and TLS variants satisfy.
// Send/recv loop internally until the full length is transferred or a hard
// error occurs; would-block and interrupted conditions are retried
// transparently by the underlying net.Conn and are never surfaced here.
type StreamTransport interface {
	// SendAll writes all of b, looping until done or a hard error occurs.
	SendAll(b []byte) error
	// SendvAll delivers bufs as if concatenated, preserving order, in a
	// single logical transmission.
	SendvAll(bufs [][]byte) error
	// RecvExact reads exactly len(buf) bytes into buf.
	RecvExact(buf []byte) error
	// EnableCoalesce is an advisory hint that small writes may be held back
	// to be merged with subsequent ones. Best-effort; never affects
	// correctness.
	EnableCoalesce()
	// DisableCoalesce releases any withheld segments.
	DisableCoalesce()
	// Close invalidates the session. No further operations may be attempted
	// after Close; all surface as status.IoError.
	Close() error
}

// totalLen sums the length of a list of buffers.
func totalLen(bufs [][]byte) int {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n
}

// concat coalesces bufs into one contiguous buffer.
func concat(bufs [][]byte) []byte {
	out := make([]byte, 0, totalLen(bufs))
	for _, b := range bufs {
		out = append(out, b...)
	}
	return out
}

// sendAllOn loops net.Conn.Write until b is fully sent or a hard error
// occurs, matching the send_all contract for any net.Conn-backed transport.
func sendAllOn(conn net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := conn.Write(b)
		if err != nil {
			return status.New(status.IoError, "write: %v", err)
		}
		b = b[n:]
	}
	return nil
}

// recvExactOn loops net.Conn.Read until buf is full or a hard error occurs.
func recvExactOn(conn net.Conn, buf []byte) error {
	_, err := io.ReadFull(conn, buf)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return status.New(status.IoError, "connection closed: %v", err)
		}
		return status.New(status.IoError, "read: %v", err)
	}
	return nil
}

// setDeadline applies the configured read/write deadline to conn, if any.
func setDeadline(conn net.Conn, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	conn.SetDeadline(time.Now().Add(timeout))
}

// dialErr wraps a dial failure as a status.Error.
func dialErr(host string, port int, err error) error {
	return status.New(status.IoError, "dial %s:%d: %v", host, port, err)
}

// addr formats host/port as a dial address.
func addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}

// trimBufs returns the suffix of bufs remaining after n bytes, counted
// across buffer boundaries, have been consumed from the front.
func trimBufs(bufs [][]byte, n int) [][]byte {
	for n > 0 && len(bufs) > 0 {
		if n < len(bufs[0]) {
			bufs[0] = bufs[0][n:]
			return bufs
		}
		n -= len(bufs[0])
		bufs = bufs[1:]
	}
	return bufs
}
