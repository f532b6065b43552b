package wire

import (
	"testing"

	"github.com/go-test/deep"
)

func TestBatchHeaderRoundTrip(t *testing.T) {
	in := BatchHeader{Magic: Magic, Version: ProtocolVersion, Count: 7, Flags: FlagsClient}
	buf := make([]byte, BatchHeaderSize)
	in.Encode(buf)
	out := DecodeBatchHeader(buf)
	if diff := deep.Equal(in, out); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
	if !out.Valid() {
		t.Errorf("expected decoded header to be valid")
	}
}

func TestBatchHeaderSentinels(t *testing.T) {
	if Magic != 0x524F4943 {
		t.Errorf("Magic = %#x, want 0x524F4943", Magic)
	}
	if ProtocolVersion != 2 {
		t.Errorf("ProtocolVersion = %d, want 2", ProtocolVersion)
	}
	if FlagsClient != 0x6 {
		t.Errorf("FlagsClient = %#x, want 0x6", FlagsClient)
	}
}

func TestBatchHeaderInvalid(t *testing.T) {
	cases := []BatchHeader{
		{Magic: 0xdeadbeef, Version: ProtocolVersion},
		{Magic: Magic, Version: 99},
	}
	for _, h := range cases {
		if h.Valid() {
			t.Errorf("expected %+v to be invalid", h)
		}
	}
}

func TestOpHeaderRoundTrip(t *testing.T) {
	for _, kl := range []uint16{1, 512} {
		for _, vl := range []uint32{0, 1, 100000} {
			for _, cmd := range []Command{CommandGet, CommandInsert, CommandDelete, CommandRangeQuery, CommandAtomicIncDec} {
				in := OpHeader{Command: cmd, KeyLen: kl, ValueLen: vl, Timestamp: 123456789}
				buf := make([]byte, OpHeaderSize)
				in.Encode(buf)
				out := DecodeOpHeader(buf)
				if diff := deep.Equal(in, out); diff != nil {
					t.Errorf("cmd=%v key_len=%d value_len=%d: round trip mismatch: %v", cmd, kl, vl, diff)
				}
			}
		}
	}
}

func TestResponseHeaderRoundTrip(t *testing.T) {
	in := ResponseHeader{Status: -6, ValueLen: 42}
	buf := make([]byte, ResponseHeaderSize)
	in.Encode(buf)
	out := DecodeResponseHeader(buf)
	if diff := deep.Equal(in, out); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestInt64RoundTrip(t *testing.T) {
	deltas := []int64{-(1 << 62), -1, 0, 1, 1 << 62}
	for _, d := range deltas {
		buf := make([]byte, 8)
		PutInt64(buf, d)
		if got := Int64(buf); got != d {
			t.Errorf("Int64(PutInt64(%d)) = %d", d, got)
		}
	}
}

func TestCommandString(t *testing.T) {
	if CommandGet.String() != "Get" {
		t.Errorf("CommandGet.String() = %q", CommandGet.String())
	}
	if Command(99).String() == "" {
		t.Errorf("unknown command should still stringify")
	}
}
