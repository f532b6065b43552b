// Package tracker is the single synchronization object between a batch's
// submitter and its background response receiver, exposing completion,
// per-index result lookup, and ownership of received buffers.
package tracker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hpkv-io/rioc/batch"
	"github.com/hpkv-io/rioc/status"
)

// PayloadKind discriminates the variant carried by a Result's Payload.
// Keying the variant on the originating request kind, rather than letting
// callers cast an interface{}, keeps decoding type-safe.
type PayloadKind int

const (
	// PayloadNone carries no value: Insert, Delete, or any failed op.
	PayloadNone PayloadKind = iota
	// PayloadBytes carries a Get's opaque value.
	PayloadBytes
	// PayloadCounter carries an AtomicIncDec result.
	PayloadCounter
	// PayloadRangeList carries a RangeQuery result.
	PayloadRangeList
)

// RangeEntry is one key/value pair returned by a RangeQuery.
type RangeEntry struct {
	Key   []byte
	Value []byte
}

// Payload is the decoded per-op result. Exactly one field is meaningful,
// selected by Kind.
type Payload struct {
	Kind    PayloadKind
	Bytes   []byte
	Counter int64
	Range   []RangeEntry
}

// Result is the full per-op result: the server (or locally synthesized)
// status plus its decoded payload.
type Result struct {
	Status  status.Code
	Payload Payload
}

// state is the Tracker's lifecycle.
type state int32

const (
	assembled state = iota
	inFlight
	complete
)

// Tracker owns a submitted Batch, its result slots, and any heap buffers
// the response receiver allocated to hold server-returned values, counters
// or range entries. It is created on submit and must be retired exactly
// once.
type Tracker struct {
	b *batch.Batch

	mu      sync.Mutex
	slots   []Result
	filled  int32 // atomic high-water mark: number of populated slots
	st      int32 // atomic state
	aggCode int32 // atomic status.Code, valid once st == complete

	done chan struct{}

	receiverWG *sync.WaitGroup
	retireOnce sync.Once
}

// New creates a Tracker for b, in the ASSEMBLED state. The pipeline
// package transitions it to IN_FLIGHT and, eventually, COMPLETE.
func New(b *batch.Batch) *Tracker {
	return &Tracker{
		b:     b,
		slots: make([]Result, b.Len()),
		done:  make(chan struct{}),
	}
}

// Batch returns the tracked batch, for components (the receiver) that need
// to consult it as the authoritative schema for decoding responses.
func (t *Tracker) Batch() *batch.Batch {
	return t.b
}

// MarkInFlight transitions ASSEMBLED -> IN_FLIGHT. Called by the pipeline
// sender immediately after a successful submission.
func (t *Tracker) MarkInFlight() {
	atomic.StoreInt32(&t.st, int32(inFlight))
}

// SetResult stores the result for op i and advances the high-water mark to
// i+1. The receiver processes ops strictly in order, so the high-water
// mark only ever needs to grow by one at a time. The slot write
// happens-before the atomic store, which happens-before any acquire load of
// Filled() observing it, per the Go memory model's treatment of
// sync/atomic.
func (t *Tracker) SetResult(i int, r Result) {
	t.mu.Lock()
	t.slots[i] = r
	t.mu.Unlock()
	atomic.StoreInt32(&t.filled, int32(i+1))
}

// Filled returns the number of result slots populated so far (acquire
// load).
func (t *Tracker) Filled() int {
	return int(atomic.LoadInt32(&t.filled))
}

// Complete transitions the Tracker to COMPLETE with the given aggregate
// code (status.Success if every op was received and decoded without a
// transport or protocol failure) and unblocks every Wait call.
func (t *Tracker) Complete(code status.Code) {
	atomic.StoreInt32(&t.aggCode, int32(code))
	atomic.StoreInt32(&t.st, int32(complete))
	close(t.done)
}

// Wait blocks until the Tracker reaches COMPLETE or timeout elapses,
// returning the aggregate status. timeout == 0 blocks indefinitely;
// timeout > 0 returns status.IoError if exceeded, without affecting the
// background receiver.
func (t *Tracker) Wait(timeout time.Duration) status.Code {
	if timeout <= 0 {
		<-t.done
		return status.Code(atomic.LoadInt32(&t.aggCode))
	}
	select {
	case <-t.done:
		return status.Code(atomic.LoadInt32(&t.aggCode))
	case <-time.After(timeout):
		return status.IoError
	}
}

// Result returns the (status, payload) for op i. If i has not yet been
// filled, it returns status.IoError ("not yet available").
func (t *Tracker) Result(i int) (status.Code, Payload, error) {
	if i < 0 || i >= t.b.Len() {
		return status.IoError, Payload{}, status.New(status.IoError, "index %d out of range", i)
	}
	if i >= t.Filled() {
		return status.IoError, Payload{}, status.New(status.IoError, "result %d not yet available", i)
	}
	t.mu.Lock()
	r := t.slots[i]
	t.mu.Unlock()
	if r.Status != status.Success {
		return r.Status, Payload{}, nil
	}
	return r.Status, r.Payload, nil
}

// SetReceiverWaitGroup records the WaitGroup the background receiver will
// Done() when it exits, so Retire can join it before freeing buffers. A
// plain setter (rather than a constructor parameter) keeps tracker.New
// usable without a receiver, which Retire's nil check allows;
// pipeline.Submit registers one for every batch, single-op facade
// batches included.
func (t *Tracker) SetReceiverWaitGroup(wg *sync.WaitGroup) {
	t.mu.Lock()
	t.receiverWG = wg
	t.mu.Unlock()
}

// Retire joins the background receiver (if one was registered) and
// releases all owned result buffers. It is idempotent: a second call is a
// no-op.
func (t *Tracker) Retire() {
	t.retireOnce.Do(func() {
		t.mu.Lock()
		wg := t.receiverWG
		t.mu.Unlock()
		if wg != nil {
			wg.Wait()
		}
		t.mu.Lock()
		t.slots = nil
		t.mu.Unlock()
	})
}
