package transport

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/hpkv-io/rioc/status"
)

// TCPTransport is the plain (non-TLS) StreamTransport, a thin wrapper
// around a *net.TCPConn. It is exclusively owned by a single submitter at a
// time.
type TCPTransport struct {
	conn    *net.TCPConn
	timeout time.Duration
	invalid int32 // set with atomic once a hard I/O error occurs
}

// Dial opens a plain TCP connection to host:port. timeout, if positive,
// bounds each individual send/recv call (not the whole session).
func Dial(host string, port int, timeout time.Duration) (*TCPTransport, error) {
	conn, err := net.DialTimeout("tcp", addr(host, port), dialTimeoutOrDefault(timeout))
	if err != nil {
		return nil, dialErr(host, port, err)
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, status.New(status.IoError, "dial %s:%d: not a TCP connection", host, port)
	}
	return &TCPTransport{conn: tcpConn, timeout: timeout}, nil
}

func dialTimeoutOrDefault(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return 30 * time.Second
}

func (t *TCPTransport) markInvalid() {
	atomic.StoreInt32(&t.invalid, 1)
}

func (t *TCPTransport) checkValid() error {
	if atomic.LoadInt32(&t.invalid) != 0 {
		return status.New(status.IoError, "session invalidated by a prior error")
	}
	return nil
}

// SendAll implements StreamTransport.
func (t *TCPTransport) SendAll(b []byte) error {
	if err := t.checkValid(); err != nil {
		return err
	}
	setDeadline(t.conn, t.timeout)
	if err := sendAllOn(t.conn, b); err != nil {
		t.markInvalid()
		return err
	}
	return nil
}

// SendvAll implements StreamTransport. Payloads at or above
// coalesceBelowBytes use OS-level scatter/gather (writev); smaller ones are
// coalesced into one contiguous write to save a syscall.
func (t *TCPTransport) SendvAll(bufs [][]byte) error {
	if err := t.checkValid(); err != nil {
		return err
	}
	setDeadline(t.conn, t.timeout)

	var err error
	if totalLen(bufs) < coalesceBelowBytes {
		err = sendAllOn(t.conn, concat(bufs))
	} else {
		err = writevAll(t.conn, bufs)
	}
	if err != nil {
		t.markInvalid()
		return err
	}
	return nil
}

// RecvExact implements StreamTransport.
func (t *TCPTransport) RecvExact(buf []byte) error {
	if err := t.checkValid(); err != nil {
		return err
	}
	setDeadline(t.conn, t.timeout)
	if err := recvExactOn(t.conn, buf); err != nil {
		t.markInvalid()
		return err
	}
	return nil
}

// EnableCoalesce implements StreamTransport as a TCP_CORK hint on Linux and
// a best-effort no-op elsewhere.
func (t *TCPTransport) EnableCoalesce() {
	setCork(t.conn, true)
}

// DisableCoalesce implements StreamTransport.
func (t *TCPTransport) DisableCoalesce() {
	setCork(t.conn, false)
}

// Close implements StreamTransport.
func (t *TCPTransport) Close() error {
	t.markInvalid()
	return t.conn.Close()
}
