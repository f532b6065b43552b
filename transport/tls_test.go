package transport

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"testing"
	"time"
)

// selfSignedCert generates a throwaway certificate/key pair for a loopback
// TLS test server; no CA or disk files are needed since the client in these
// tests dials with VerifyHostname: false.
func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		t.Fatalf("X509KeyPair: %v", err)
	}
	return cert
}

// TestTLSVectoredWritePreservesBytes checks that an iovec spanning several
// tlsChunkBytes-sized writes arrives at the peer as the exact concatenation
// of its buffers, with no framing artifacts from the chunking.
func TestTLSVectoredWritePreservesBytes(t *testing.T) {
	cert := selfSignedCert(t)
	listener, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	})
	if err != nil {
		t.Fatalf("tls.Listen: %v", err)
	}
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	const total = 50000
	payload := make([]byte, total)
	for i := range payload {
		payload[i] = byte(i)
	}
	bufs := [][]byte{payload[:1000], payload[1000:20000], payload[20000:]}

	serverDone := make(chan []byte, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			serverDone <- nil
			return
		}
		defer conn.Close()
		got := make([]byte, total)
		if _, err := io.ReadFull(conn, got); err != nil {
			serverDone <- nil
			return
		}
		serverDone <- got
	}()

	tr, err := DialTLS("127.0.0.1", port, "", TLSConfig{VerifyHostname: false}, time.Second)
	if err != nil {
		t.Fatalf("DialTLS: %v", err)
	}
	defer tr.Close()

	if err := tr.SendvAll(bufs); err != nil {
		t.Fatalf("SendvAll: %v", err)
	}

	got := <-serverDone
	if got == nil {
		t.Fatal("server did not receive the full payload")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("received payload does not match the concatenation of the iovec buffers")
	}
}
