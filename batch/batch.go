// Package batch accumulates up to wire.MaxBatchOps operations in a reusable
// container with co-located key/value storage, so a later vectored
// transmission can reference stable addresses without per-op allocation.
package batch

import (
	"github.com/hpkv-io/rioc/status"
	"github.com/hpkv-io/rioc/wire"
)

// cacheLine is the alignment granularity for value offsets within the
// batch-wide staging buffer.
const cacheLine = 64

// defaultValueBufCap is the initial capacity of the staging buffer; it
// grows (via append) like any Go slice if a batch needs more.
const defaultValueBufCap = 4096

// op is one accumulated operation. Keys are stored inline (copied at add
// time); values/upper-bound keys live in the batch-wide staging buffer at
// valueOff, sized valueLen.
type op struct {
	command   wire.Command
	key       [wire.MaxKeyLen]byte
	keyLen    uint16
	valueOff  int
	valueLen  uint32
	timestamp uint64
}

// Batch is an ordered list of operation requests, length 1..wire.MaxBatchOps.
// It is mutable only during assembly; the pipeline package treats it as
// read-only from submit until its Tracker is retired.
//
// A Batch is not safe for concurrent use.
type Batch struct {
	ops    []op
	values []byte
}

// New returns an empty Batch ready for assembly.
func New() *Batch {
	return &Batch{
		ops:    make([]op, 0, wire.MaxBatchOps),
		values: make([]byte, 0, defaultValueBufCap),
	}
}

// Len returns the number of operations currently in the batch.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Op is a read-only view of one accumulated operation, used by the
// pipeline package to build the wire transmission and by the response
// receiver to know how to decode each op's reply.
type Op struct {
	Command   wire.Command
	Key       []byte
	Value     []byte // nil if this op carries no value/upper-bound-key
	Timestamp uint64
}

// OpAt returns a view of the i-th operation. The returned Key/Value slices
// alias the Batch's internal storage and are valid only while the Batch is
// not reset or garbage collected.
func (b *Batch) OpAt(i int) Op {
	o := &b.ops[i]
	view := Op{
		Command:   o.command,
		Key:       o.key[:o.keyLen],
		Timestamp: o.timestamp,
	}
	if o.valueLen > 0 {
		view.Value = b.values[o.valueOff : o.valueOff+int(o.valueLen)]
	}
	return view
}

// reserveValue appends n zero bytes to the staging buffer at a
// cache-line-aligned offset and returns that offset. The returned region is
// then overwritten by the caller.
func (b *Batch) reserveValue(n int) int {
	pad := (cacheLine - len(b.values)%cacheLine) % cacheLine
	for i := 0; i < pad; i++ {
		b.values = append(b.values, 0)
	}
	off := len(b.values)
	b.values = append(b.values, make([]byte, n)...)
	return off
}

// canAdd enforces the batch-size invariant common to every add_* call.
func (b *Batch) canAdd() error {
	if len(b.ops) >= wire.MaxBatchOps {
		return status.New(status.ParamError, "batch already holds the maximum of %d operations", wire.MaxBatchOps)
	}
	return nil
}

func checkKeyLen(key []byte) error {
	if len(key) == 0 || len(key) > wire.MaxKeyLen {
		return status.New(status.ParamError, "key length %d out of range (1..%d)", len(key), wire.MaxKeyLen)
	}
	return nil
}

func (b *Batch) appendOp(command wire.Command, key, value []byte, ts uint64) {
	o := op{command: command, keyLen: uint16(len(key)), timestamp: ts}
	copy(o.key[:], key)
	if len(value) > 0 {
		o.valueOff = b.reserveValue(len(value))
		copy(b.values[o.valueOff:o.valueOff+len(value)], value)
		o.valueLen = uint32(len(value))
	}
	b.ops = append(b.ops, o)
}

// AddGet appends a Get operation. value_len is always 0 on the wire.
func (b *Batch) AddGet(key []byte) error {
	if err := b.canAdd(); err != nil {
		return err
	}
	if err := checkKeyLen(key); err != nil {
		return err
	}
	b.appendOp(wire.CommandGet, key, nil, 0)
	return nil
}

// AddInsert appends an Insert operation.
func (b *Batch) AddInsert(key, value []byte, ts uint64) error {
	if err := b.canAdd(); err != nil {
		return err
	}
	if err := checkKeyLen(key); err != nil {
		return err
	}
	if len(value) > wire.MaxValueLen {
		return status.New(status.ParamError, "value length %d exceeds maximum of %d", len(value), wire.MaxValueLen)
	}
	b.appendOp(wire.CommandInsert, key, value, ts)
	return nil
}

// AddDelete appends a Delete operation.
func (b *Batch) AddDelete(key []byte, ts uint64) error {
	if err := b.canAdd(); err != nil {
		return err
	}
	if err := checkKeyLen(key); err != nil {
		return err
	}
	b.appendOp(wire.CommandDelete, key, nil, ts)
	return nil
}

// AddRangeQuery appends a RangeQuery operation. The upper-bound key is
// stored in the value slot; timestamp is unused and sent as 0.
func (b *Batch) AddRangeQuery(startKey, endKey []byte) error {
	if err := b.canAdd(); err != nil {
		return err
	}
	if err := checkKeyLen(startKey); err != nil {
		return err
	}
	if err := checkKeyLen(endKey); err != nil {
		return err
	}
	b.appendOp(wire.CommandRangeQuery, startKey, endKey, 0)
	return nil
}

// AddAtomicIncDec appends an AtomicIncDec operation. delta is encoded as an
// 8-byte native-order signed integer occupying the value slot.
func (b *Batch) AddAtomicIncDec(key []byte, delta int64, ts uint64) error {
	if err := b.canAdd(); err != nil {
		return err
	}
	if err := checkKeyLen(key); err != nil {
		return err
	}
	var deltaBuf [8]byte
	wire.PutInt64(deltaBuf[:], delta)
	b.appendOp(wire.CommandAtomicIncDec, key, deltaBuf[:], ts)
	return nil
}
