package transport

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/hpkv-io/rioc/status"
)

// writevAll delivers bufs with a single logical scatter/gather write,
// looping over unix.Writev until every buffer is fully consumed.
func writevAll(conn *net.TCPConn, bufs [][]byte) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return status.New(status.IoError, "sendv: %v", err)
	}

	remaining := bufs
	var werr error
	ctrlErr := raw.Write(func(fd uintptr) bool {
		for len(remaining) > 0 {
			n, e := unix.Writev(int(fd), remaining)
			if e != nil {
				if e == unix.EINTR {
					// Interrupted before any data moved; retry at once.
					continue
				}
				if e == unix.EAGAIN || e == unix.EWOULDBLOCK {
					// Not writable yet; let the runtime poller retry us.
					return false
				}
				werr = e
				return true
			}
			remaining = trimBufs(remaining, int(n))
		}
		return true
	})
	if ctrlErr != nil {
		return status.New(status.IoError, "sendv: %v", ctrlErr)
	}
	if werr != nil {
		return status.New(status.IoError, "sendv: writev: %v", werr)
	}
	return nil
}

// setCork toggles TCP_CORK, the Linux analogue of the coalesce hint:
// withholding partial frames so the kernel can merge them with whatever is
// written next. Best-effort: errors are deliberately ignored, since
// coalescing is a throughput hint, not a correctness requirement.
func setCork(conn *net.TCPConn, on bool) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return
	}
	val := 0
	if on {
		val = 1
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_CORK, val)
	})
}
