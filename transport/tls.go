package transport

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/hpkv-io/rioc/status"
)

// tlsChunkBytes is the largest logical write fed to the underlying TLS
// record layer at once. crypto/tls has no native scatter/gather write, so
// SendvAll emulates it by funneling the concatenated payload through
// fixed-size chunks.
const tlsChunkBytes = 16000

// TLSConfig describes the TLS 1.3 mutual-auth session parameters.
// This package loads the certificate files named here and applies the two
// verification switches; any other certificate or verification policy is
// the caller's responsibility.
type TLSConfig struct {
	CAPath         string
	CertPath       string
	KeyPath        string
	VerifyHostname bool
	VerifyPeer     bool
}

// TLSTransport is the TLS 1.3 StreamTransport variant. It preserves the
// same send_all/sendv_all/recv_exact contract as TCPTransport; only the
// vectored-write emulation and the coalesce hint's mechanism differ.
type TLSTransport struct {
	conn    *tls.Conn
	timeout time.Duration
	invalid int32
}

// DialTLS opens a TLS 1.3 connection to host:port using cfg for mutual
// authentication. serverName drives hostname verification when
// cfg.VerifyHostname is set.
func DialTLS(host string, port int, serverName string, cfg TLSConfig, timeout time.Duration) (*TLSTransport, error) {
	tlsCfg, err := buildTLSConfig(serverName, cfg)
	if err != nil {
		return nil, status.New(status.IoError, "tls config: %v", err)
	}

	dialer := &net.Dialer{Timeout: dialTimeoutOrDefault(timeout)}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr(host, port), tlsCfg)
	if err != nil {
		return nil, dialErr(host, port, err)
	}
	return &TLSTransport{conn: conn, timeout: timeout}, nil
}

func buildTLSConfig(serverName string, cfg TLSConfig) (*tls.Config, error) {
	out := &tls.Config{
		MinVersion:         tls.VersionTLS13,
		MaxVersion:         tls.VersionTLS13,
		ServerName:         serverName,
		InsecureSkipVerify: !cfg.VerifyHostname,
	}

	if cfg.CertPath != "" && cfg.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
		if err != nil {
			return nil, err
		}
		out.Certificates = []tls.Certificate{cert}
	}

	if cfg.VerifyPeer && cfg.CAPath != "" {
		pem, err := os.ReadFile(cfg.CAPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, status.New(status.ParamError, "no certificates parsed from %s", cfg.CAPath)
		}
		out.RootCAs = pool
	}

	return out, nil
}

func (t *TLSTransport) markInvalid() {
	atomic.StoreInt32(&t.invalid, 1)
}

func (t *TLSTransport) checkValid() error {
	if atomic.LoadInt32(&t.invalid) != 0 {
		return status.New(status.IoError, "session invalidated by a prior error")
	}
	return nil
}

// SendAll implements StreamTransport.
func (t *TLSTransport) SendAll(b []byte) error {
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

// SendvAll implements StreamTransport by chunking the concatenated payload
// into tlsChunkBytes-sized writes. The peer sees exactly the concatenation
// of bufs, delivered before this call returns: chunking is purely a
// transport-internal adapter, never a caller-visible difference.
func (t *TLSTransport) SendvAll(bufs [][]byte) error {
	if err := t.checkValid(); err != nil {
		return err
	}
	setDeadline(t.conn, t.timeout)

	payload := concat(bufs)
	for len(payload) > 0 {
		n := tlsChunkBytes
		if n > len(payload) {
			n = len(payload)
		}
		if err := sendAllOn(t.conn, payload[:n]); err != nil {
			t.markInvalid()
			return err
		}
		payload = payload[n:]
	}
	return nil
}

// RecvExact implements StreamTransport.
func (t *TLSTransport) RecvExact(buf []byte) error {
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

// EnableCoalesce reaches through to the underlying TCP socket and sets the
// same best-effort cork hint TCPTransport uses; TLS records still flush
// independently, so this is weaker than the plain-TCP hint but remains
// correctness-neutral.
func (t *TLSTransport) EnableCoalesce() {
	if tcpConn, ok := t.conn.NetConn().(*net.TCPConn); ok {
		setCork(tcpConn, true)
	}
}

// DisableCoalesce implements StreamTransport.
func (t *TLSTransport) DisableCoalesce() {
	if tcpConn, ok := t.conn.NetConn().(*net.TCPConn); ok {
		setCork(tcpConn, false)
	}
}

// Close implements StreamTransport.
func (t *TLSTransport) Close() error {
	t.markInvalid()
	return t.conn.Close()
}
