// Package wire implements the exact on-wire framing for the key-value
// store's binary protocol: the fixed headers, their byte layout, and the
// constants that make a transmission recognizable to the server.
//
// All multi-byte integers are native byte order: this is a server-imposed
// wire compatibility constraint, not a choice made here, so the package
// uses encoding/binary.NativeEndian throughout rather than pinning
// Little/BigEndian.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Command identifies the kind of operation carried by an Op Header.
type Command uint16

// Commands, fixed by wire compatibility with the server.
const (
	CommandGet           Command = 1
	CommandInsert        Command = 2
	CommandDelete        Command = 3
	CommandBatch         Command = 5 // reserved: never sent directly
	CommandRangeQuery    Command = 6
	CommandAtomicIncDec  Command = 7
)

var commandName = map[Command]string{
	CommandGet:          "Get",
	CommandInsert:       "Insert",
	CommandDelete:       "Delete",
	CommandBatch:        "Batch",
	CommandRangeQuery:   "RangeQuery",
	CommandAtomicIncDec: "AtomicIncDec",
}

// String implements fmt.Stringer.
func (c Command) String() string {
	if s, ok := commandName[c]; ok {
		return s
	}
	return fmt.Sprintf("UnknownCommand(%d)", uint16(c))
}

// Protocol-fixed constants.
const (
	// Magic is the sentinel value 'R','O','I','C' the batch header always
	// begins with.
	Magic uint32 = 0x524F4943
	// ProtocolVersion is the only batch header version this client speaks.
	ProtocolVersion uint16 = 2

	// FlagPipeline marks a batch as processed without per-op ack boundaries.
	FlagPipeline uint32 = 0x2
	// FlagMore tells the server more pipelined work may follow.
	FlagMore uint32 = 0x4
	// FlagsClient is the fixed flag combination this client always sends.
	FlagsClient uint32 = FlagPipeline | FlagMore

	// MaxKeyLen is the maximum length, in bytes, of a key or a RangeQuery
	// upper-bound key.
	MaxKeyLen = 512
	// MaxValueLen is the maximum length, in bytes, of an Insert value.
	MaxValueLen = 100000
	// MaxBatchOps is the maximum number of operations in one Batch.
	MaxBatchOps = 128

	// NativeWordSize is the width, in bytes, of the "native machine word"
	// length field inside RangeQuery response entries. It is a wire
	// compatibility quirk pinned to the server, not a local choice; the
	// server this client was written against uses 8-byte words.
	NativeWordSize = 8

	// BatchHeaderSize is the encoded size of a Batch Header.
	BatchHeaderSize = 12
	// OpHeaderSize is the encoded size of an Op Header.
	OpHeaderSize = 16
	// ResponseHeaderSize is the encoded size of a Response Header.
	ResponseHeaderSize = 8
)

// BatchHeader precedes every batch transmission.
type BatchHeader struct {
	Magic   uint32
	Version uint16
	Count   uint16
	Flags   uint32
}

// Encode writes h into buf[:BatchHeaderSize]. buf must have length >= BatchHeaderSize.
func (h BatchHeader) Encode(buf []byte) {
	binary.NativeEndian.PutUint32(buf[0:4], h.Magic)
	binary.NativeEndian.PutUint16(buf[4:6], h.Version)
	binary.NativeEndian.PutUint16(buf[6:8], h.Count)
	binary.NativeEndian.PutUint32(buf[8:12], h.Flags)
}

// DecodeBatchHeader reads a BatchHeader from buf[:BatchHeaderSize].
func DecodeBatchHeader(buf []byte) BatchHeader {
	return BatchHeader{
		Magic:   binary.NativeEndian.Uint32(buf[0:4]),
		Version: binary.NativeEndian.Uint16(buf[4:6]),
		Count:   binary.NativeEndian.Uint16(buf[6:8]),
		Flags:   binary.NativeEndian.Uint32(buf[8:12]),
	}
}

// Valid reports whether the header carries the magic and version this
// client requires. DecodeBatchHeader does not call it; a caller that needs
// the check calls Valid on the decoded header.
func (h BatchHeader) Valid() bool {
	return h.Magic == Magic && h.Version == ProtocolVersion
}

// OpHeader precedes the key (and, if present, the value) of one operation
// within a batch transmission.
type OpHeader struct {
	Command   Command
	KeyLen    uint16
	ValueLen  uint32
	Timestamp uint64
}

// Encode writes h into buf[:OpHeaderSize].
func (h OpHeader) Encode(buf []byte) {
	binary.NativeEndian.PutUint16(buf[0:2], uint16(h.Command))
	binary.NativeEndian.PutUint16(buf[2:4], h.KeyLen)
	binary.NativeEndian.PutUint32(buf[4:8], h.ValueLen)
	binary.NativeEndian.PutUint64(buf[8:16], h.Timestamp)
}

// DecodeOpHeader reads an OpHeader from buf[:OpHeaderSize].
func DecodeOpHeader(buf []byte) OpHeader {
	return OpHeader{
		Command:   Command(binary.NativeEndian.Uint16(buf[0:2])),
		KeyLen:    binary.NativeEndian.Uint16(buf[2:4]),
		ValueLen:  binary.NativeEndian.Uint32(buf[4:8]),
		Timestamp: binary.NativeEndian.Uint64(buf[8:16]),
	}
}

// ResponseHeader precedes the payload (if any) of one response within a
// response stream segment.
type ResponseHeader struct {
	Status   int32
	ValueLen uint32
}

// Encode writes h into buf[:ResponseHeaderSize]. Used only by test fakes
// that stand in for the server.
func (h ResponseHeader) Encode(buf []byte) {
	binary.NativeEndian.PutUint32(buf[0:4], uint32(h.Status))
	binary.NativeEndian.PutUint32(buf[4:8], h.ValueLen)
}

// DecodeResponseHeader reads a ResponseHeader from buf[:ResponseHeaderSize].
func DecodeResponseHeader(buf []byte) ResponseHeader {
	return ResponseHeader{
		Status:   int32(binary.NativeEndian.Uint32(buf[0:4])),
		ValueLen: binary.NativeEndian.Uint32(buf[4:8]),
	}
}

// PutInt64 encodes v as an 8-byte native-order signed integer, as used for
// AtomicIncDec deltas and counter results.
func PutInt64(buf []byte, v int64) {
	binary.NativeEndian.PutUint64(buf, uint64(v))
}

// Int64 decodes an 8-byte native-order signed integer.
func Int64(buf []byte) int64 {
	return int64(binary.NativeEndian.Uint64(buf))
}

// PutNativeWord encodes v into a NativeWordSize-byte native-order field, as
// used for the inner value_len of RangeQuery response entries.
func PutNativeWord(buf []byte, v uint64) {
	binary.NativeEndian.PutUint64(buf[:NativeWordSize], v)
}

// NativeWord decodes a NativeWordSize-byte native-order field.
func NativeWord(buf []byte) uint64 {
	return binary.NativeEndian.Uint64(buf[:NativeWordSize])
}

// PutUint16 encodes v as a 2-byte native-order field, as used for the
// inner key_len of RangeQuery response entries.
func PutUint16(buf []byte, v uint16) {
	binary.NativeEndian.PutUint16(buf[:2], v)
}

// Uint16 decodes a 2-byte native-order field.
func Uint16(buf []byte) uint16 {
	return binary.NativeEndian.Uint16(buf[:2])
}
