// Package client is the programmatic surface callers use: connecting a
// Session, the batch-oriented API, and the synchronous one-op facade built
// on top of it.
package client

import (
	"log"
	"time"

	"github.com/hpkv-io/rioc/batch"
	"github.com/hpkv-io/rioc/pipeline"
	"github.com/hpkv-io/rioc/sessionid"
	"github.com/hpkv-io/rioc/status"
	"github.com/hpkv-io/rioc/tracker"
	"github.com/hpkv-io/rioc/transport"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// Config is the connection configuration a caller assembles before
// connecting. TLS is nil for a plain TCP session.
type Config struct {
	Host       string
	Port       int
	TimeoutMs  uint32
	TLS        *transport.TLSConfig
	ServerName string // hostname verification target; only consulted when TLS != nil
}

func (c Config) timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Session is one client connection to the store. Exactly one goroutine may
// submit on a Session at a time; BatchSubmitAsync serializes callers and
// enforces that one batch's receiver finishes before the next is sent.
type Session struct {
	id string
	t  transport.StreamTransport

	mu   chan struct{} // 1-buffered: held from submit until the prior receiver has completed
	prev *tracker.Tracker
}

// Connect opens a Session per cfg.
func Connect(cfg Config) (*Session, error) {
	var t transport.StreamTransport
	var err error
	if cfg.TLS != nil {
		t, err = transport.DialTLS(cfg.Host, cfg.Port, cfg.ServerName, *cfg.TLS, cfg.timeout())
	} else {
		t, err = transport.Dial(cfg.Host, cfg.Port, cfg.timeout())
	}
	if err != nil {
		return nil, err
	}
	s := &Session{
		id: sessionid.New(),
		t:  t,
		mu: make(chan struct{}, 1),
	}
	s.mu <- struct{}{}
	return s, nil
}

// Disconnect closes the underlying transport. Any Tracker still in flight
// is left to fail its next Wait with status.IoError.
func (s *Session) Disconnect() error {
	return s.t.Close()
}

// BatchCreate returns an empty Batch ready for assembly.
func (s *Session) BatchCreate() *batch.Batch {
	return batch.New()
}

// BatchSubmitAsync serializes b onto the Session's transport and starts its
// background receiver. Only one batch may be in flight on a Session at a
// time: if a previous Tracker has not yet completed, this call blocks until
// its receiver finishes (the protocol does not permit interleaving two
// batches' responses on one connection).
func (s *Session) BatchSubmitAsync(b *batch.Batch) (*tracker.Tracker, error) {
	<-s.mu
	defer func() { s.mu <- struct{}{} }()

	if s.prev != nil {
		s.prev.Wait(0)
	}

	trk, err := pipeline.Submit(s.t, b)
	if err != nil {
		log.Printf("%s: batch submit failed: %v", s.id, err)
		return nil, err
	}
	s.prev = trk
	return trk, nil
}

// BatchWait blocks until trk completes or timeoutMs elapses (0 = forever).
func (s *Session) BatchWait(trk *tracker.Tracker, timeoutMs uint32) status.Code {
	return trk.Wait(time.Duration(timeoutMs) * time.Millisecond)
}

// BatchResult returns the decoded result for op i of trk's batch.
func (s *Session) BatchResult(trk *tracker.Tracker, i int) (status.Code, tracker.Payload, error) {
	return trk.Result(i)
}

// BatchRetire releases trk's buffers, joining its receiver first.
func (s *Session) BatchRetire(trk *tracker.Tracker) {
	trk.Retire()
}

// submitOne runs the assemble/submit/wait/read/retire sequence common to
// every synchronous operation. The wire form is identical to a batch of
// size 1: same flags, same framing, so the server cannot distinguish this
// path from a caller who built the one-element batch itself.
func (s *Session) submitOne(b *batch.Batch) (status.Code, tracker.Payload, error) {
	trk, err := s.BatchSubmitAsync(b)
	if err != nil {
		return status.CodeOf(err), tracker.Payload{}, err
	}
	defer trk.Retire()

	if code := trk.Wait(0); code != status.Success {
		return code, tracker.Payload{}, nil
	}
	return trk.Result(0)
}

// Get fetches the value for key.
func (s *Session) Get(key []byte) (status.Code, []byte, error) {
	b := batch.New()
	if err := b.AddGet(key); err != nil {
		return status.CodeOf(err), nil, err
	}
	code, payload, err := s.submitOne(b)
	return code, payload.Bytes, err
}

// Insert stores value under key, stamped with ts.
func (s *Session) Insert(key, value []byte, ts uint64) (status.Code, error) {
	b := batch.New()
	if err := b.AddInsert(key, value, ts); err != nil {
		return status.CodeOf(err), err
	}
	code, _, err := s.submitOne(b)
	return code, err
}

// Delete removes key, stamped with ts.
func (s *Session) Delete(key []byte, ts uint64) (status.Code, error) {
	b := batch.New()
	if err := b.AddDelete(key, ts); err != nil {
		return status.CodeOf(err), err
	}
	code, _, err := s.submitOne(b)
	return code, err
}

// RangeQuery lists the key/value pairs in [startKey, endKey].
func (s *Session) RangeQuery(startKey, endKey []byte) (status.Code, []tracker.RangeEntry, error) {
	b := batch.New()
	if err := b.AddRangeQuery(startKey, endKey); err != nil {
		return status.CodeOf(err), nil, err
	}
	code, payload, err := s.submitOne(b)
	return code, payload.Range, err
}

// AtomicIncDec applies delta to the counter at key, stamped with ts, and
// returns the counter's new value.
func (s *Session) AtomicIncDec(key []byte, delta int64, ts uint64) (status.Code, int64, error) {
	b := batch.New()
	if err := b.AddAtomicIncDec(key, delta, ts); err != nil {
		return status.CodeOf(err), 0, err
	}
	code, payload, err := s.submitOne(b)
	return code, payload.Counter, err
}
