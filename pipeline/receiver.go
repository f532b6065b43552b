package pipeline

import (
	"sync"
	"time"

	"github.com/hpkv-io/rioc/metrics"
	"github.com/hpkv-io/rioc/status"
	"github.com/hpkv-io/rioc/tracker"
	"github.com/hpkv-io/rioc/transport"
	"github.com/hpkv-io/rioc/wire"
)

// runReceiver reads responses strictly in request order, using the
// submitted batch as the authoritative schema for each response's payload
// shape, and reports into trk. It is the only reader of t for this batch.
//
// The goroutine-per-submission shape mirrors a ticking receive loop paired
// with per-task marshaller goroutines; here the loop bound is the batch
// length rather than a rep count or a channel close.
func runReceiver(t transport.StreamTransport, trk *tracker.Tracker, wg *sync.WaitGroup) {
	defer wg.Done()

	start := time.Now()
	b := trk.Batch()
	n := b.Len()

	for i := 0; i < n; i++ {
		result, bytesRead, err := receiveOne(t, b.OpAt(i).Command)
		if err != nil {
			metrics.BatchSubmitLatency.Observe(time.Since(start).Seconds())
			trk.Complete(status.CodeOf(err))
			return
		}
		metrics.BytesReceived.Add(float64(bytesRead))
		metrics.OpsTotal.WithLabelValues(b.OpAt(i).Command.String(), result.Status.String()).Inc()
		trk.SetResult(i, result)
	}

	metrics.BatchSubmitLatency.Observe(time.Since(start).Seconds())
	trk.Complete(status.Success)
}

// receiveOne reads and decodes one Response Header plus whatever payload
// command dictates.
func receiveOne(t transport.StreamTransport, command wire.Command) (tracker.Result, int, error) {
	var headerBuf [wire.ResponseHeaderSize]byte
	if err := t.RecvExact(headerBuf[:]); err != nil {
		return tracker.Result{}, 0, err
	}
	read := wire.ResponseHeaderSize

	resp := wire.DecodeResponseHeader(headerBuf[:])
	code := status.Code(resp.Status)
	if code != status.Success {
		return tracker.Result{Status: code}, read, nil
	}

	switch command {
	case wire.CommandInsert, wire.CommandDelete:
		return tracker.Result{Status: status.Success}, read, nil

	case wire.CommandGet:
		val := make([]byte, resp.ValueLen)
		if resp.ValueLen > 0 {
			if err := t.RecvExact(val); err != nil {
				return tracker.Result{}, read, err
			}
			read += len(val)
		}
		return tracker.Result{
			Status:  status.Success,
			Payload: tracker.Payload{Kind: tracker.PayloadBytes, Bytes: val},
		}, read, nil

	case wire.CommandAtomicIncDec:
		if resp.ValueLen != 8 {
			return tracker.Result{}, read, status.New(status.ProtocolError, "AtomicIncDec result length %d, want 8", resp.ValueLen)
		}
		var cbuf [8]byte
		if err := t.RecvExact(cbuf[:]); err != nil {
			return tracker.Result{}, read, err
		}
		read += 8
		return tracker.Result{
			Status:  status.Success,
			Payload: tracker.Payload{Kind: tracker.PayloadCounter, Counter: wire.Int64(cbuf[:])},
		}, read, nil

	case wire.CommandRangeQuery:
		entries, entryBytes, err := receiveRangeEntries(t, resp.ValueLen)
		read += entryBytes
		if err != nil {
			return tracker.Result{}, read, err
		}
		return tracker.Result{
			Status:  status.Success,
			Payload: tracker.Payload{Kind: tracker.PayloadRangeList, Range: entries},
		}, read, nil

	default:
		return tracker.Result{}, read, status.New(status.ProtocolError, "unexpected command %v in response stream", command)
	}
}

// receiveRangeEntries reads count RangeQuery result entries, each
// { key_len:u16, key, value_len:native-word, value }. The response header's
// value_len field is reinterpreted as this count, not a byte length.
func receiveRangeEntries(t transport.StreamTransport, count uint32) ([]tracker.RangeEntry, int, error) {
	entries := make([]tracker.RangeEntry, 0, count)
	read := 0

	for e := uint32(0); e < count; e++ {
		var keyLenBuf [2]byte
		if err := t.RecvExact(keyLenBuf[:]); err != nil {
			return nil, read, err
		}
		read += 2
		keyLen := wire.Uint16(keyLenBuf[:])

		key := make([]byte, keyLen)
		if keyLen > 0 {
			if err := t.RecvExact(key); err != nil {
				return nil, read, err
			}
			read += len(key)
		}

		valLenBuf := make([]byte, wire.NativeWordSize)
		if err := t.RecvExact(valLenBuf); err != nil {
			return nil, read, err
		}
		read += wire.NativeWordSize
		valLen := wire.NativeWord(valLenBuf)

		value := make([]byte, valLen)
		if valLen > 0 {
			if err := t.RecvExact(value); err != nil {
				return nil, read, err
			}
			read += len(value)
		}

		entries = append(entries, tracker.RangeEntry{Key: key, Value: value})
	}

	return entries, read, nil
}
