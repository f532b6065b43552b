// Package pipeline serializes a batch into one vectored transmission and
// runs the background reader that demultiplexes the response stream back
// into the batch's Tracker.
package pipeline

import (
	"sync"

	"github.com/hpkv-io/rioc/batch"
	"github.com/hpkv-io/rioc/metrics"
	"github.com/hpkv-io/rioc/status"
	"github.com/hpkv-io/rioc/tracker"
	"github.com/hpkv-io/rioc/transport"
	"github.com/hpkv-io/rioc/wire"
)

// Submit serializes b into a single vectored transmission on t and starts
// the background response receiver. On success it returns a Tracker in the
// IN_FLIGHT state; submission is atomic on failure: no Tracker is produced,
// and t is left marked invalid by the transport layer itself.
func Submit(t transport.StreamTransport, b *batch.Batch) (*tracker.Tracker, error) {
	if b.Len() < 1 || b.Len() > wire.MaxBatchOps {
		return nil, status.New(status.ParamError, "batch length %d out of range (1..%d)", b.Len(), wire.MaxBatchOps)
	}

	iovecs := buildIovecs(b)

	t.EnableCoalesce()
	err := t.SendvAll(iovecs)
	t.DisableCoalesce()
	if err != nil {
		return nil, err
	}
	metrics.BytesSent.Add(float64(totalBytes(iovecs)))

	trk := tracker.New(b)
	trk.MarkInFlight()

	var wg sync.WaitGroup
	wg.Add(1)
	trk.SetReceiverWaitGroup(&wg)
	go runReceiver(t, trk, &wg)

	return trk, nil
}

// buildIovecs lays the batch out as
// [BatchHeader, (OpHeader_i, Key_i, [Value_i])...], value present only
// when the op carries one.
func buildIovecs(b *batch.Batch) [][]byte {
	iovecs := make([][]byte, 0, 1+b.Len()*3)

	header := wire.BatchHeader{
		Magic:   wire.Magic,
		Version: wire.ProtocolVersion,
		Count:   uint16(b.Len()),
		Flags:   wire.FlagsClient,
	}
	headerBuf := make([]byte, wire.BatchHeaderSize)
	header.Encode(headerBuf)
	iovecs = append(iovecs, headerBuf)

	for i := 0; i < b.Len(); i++ {
		op := b.OpAt(i)
		opHeader := wire.OpHeader{
			Command:   op.Command,
			KeyLen:    uint16(len(op.Key)),
			ValueLen:  uint32(len(op.Value)),
			Timestamp: op.Timestamp,
		}
		opHeaderBuf := make([]byte, wire.OpHeaderSize)
		opHeader.Encode(opHeaderBuf)
		iovecs = append(iovecs, opHeaderBuf, op.Key)
		if len(op.Value) > 0 {
			iovecs = append(iovecs, op.Value)
		}
	}
	return iovecs
}

func totalBytes(bufs [][]byte) int {
	n := 0
	for _, b := range bufs {
		n += len(b)
	}
	return n
}
