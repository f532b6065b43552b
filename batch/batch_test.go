package batch

import (
	"bytes"
	"testing"

	"github.com/hpkv-io/rioc/wire"
)

func TestAddGetInsertDeleteRoundTrip(t *testing.T) {
	b := New()
	if err := b.AddInsert([]byte("a"), []byte("1"), 1000); err != nil {
		t.Fatalf("AddInsert: %v", err)
	}
	if err := b.AddGet([]byte("a")); err != nil {
		t.Fatalf("AddGet: %v", err)
	}
	if err := b.AddDelete([]byte("a"), 1001); err != nil {
		t.Fatalf("AddDelete: %v", err)
	}
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}

	insert := b.OpAt(0)
	if insert.Command != wire.CommandInsert || !bytes.Equal(insert.Key, []byte("a")) || !bytes.Equal(insert.Value, []byte("1")) || insert.Timestamp != 1000 {
		t.Errorf("unexpected insert view: %+v", insert)
	}
	get := b.OpAt(1)
	if get.Command != wire.CommandGet || get.Value != nil {
		t.Errorf("unexpected get view: %+v", get)
	}
	del := b.OpAt(2)
	if del.Command != wire.CommandDelete || del.Timestamp != 1001 {
		t.Errorf("unexpected delete view: %+v", del)
	}
}

func TestAddRangeQueryStoresUpperBoundAsValue(t *testing.T) {
	b := New()
	if err := b.AddRangeQuery([]byte("range_b"), []byte("range_d")); err != nil {
		t.Fatalf("AddRangeQuery: %v", err)
	}
	v := b.OpAt(0)
	if !bytes.Equal(v.Key, []byte("range_b")) || !bytes.Equal(v.Value, []byte("range_d")) {
		t.Errorf("unexpected range view: %+v", v)
	}
}

func TestAddAtomicIncDecEncodesDelta(t *testing.T) {
	deltas := []int64{-(1 << 62), -1, 0, 1, 1 << 62}
	for _, d := range deltas {
		b := New()
		if err := b.AddAtomicIncDec([]byte("c"), d, 42); err != nil {
			t.Fatalf("AddAtomicIncDec(%d): %v", d, err)
		}
		v := b.OpAt(0)
		if len(v.Value) != 8 {
			t.Fatalf("delta value length = %d, want 8", len(v.Value))
		}
		if got := wire.Int64(v.Value); got != d {
			t.Errorf("decoded delta = %d, want %d", got, d)
		}
	}
}

func TestOversizeKeyRejectedWithoutMutation(t *testing.T) {
	b := New()
	oversizeKey := bytes.Repeat([]byte{'k'}, wire.MaxKeyLen+1)
	if err := b.AddGet(oversizeKey); err == nil {
		t.Fatalf("expected ParamError for oversize key")
	}
	if b.Len() != 0 {
		t.Errorf("batch should be unchanged after a rejected add, Len() = %d", b.Len())
	}
}

func TestOversizeValueRejectedWithoutMutation(t *testing.T) {
	b := New()
	oversizeValue := bytes.Repeat([]byte{'v'}, wire.MaxValueLen+1)
	if err := b.AddInsert([]byte("k"), oversizeValue, 1); err == nil {
		t.Fatalf("expected ParamError for oversize value")
	}
	if b.Len() != 0 {
		t.Errorf("batch should be unchanged after a rejected add, Len() = %d", b.Len())
	}
}

func TestBatchSaturation(t *testing.T) {
	b := New()
	for i := 0; i < wire.MaxBatchOps; i++ {
		if err := b.AddGet([]byte("k")); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if err := b.AddGet([]byte("k")); err == nil {
		t.Fatalf("expected the %dth add to fail", wire.MaxBatchOps+1)
	}
	if b.Len() != wire.MaxBatchOps {
		t.Errorf("Len() = %d, want %d", b.Len(), wire.MaxBatchOps)
	}
}

func TestKeyAndValueAreCopied(t *testing.T) {
	b := New()
	key := []byte("mutable-key")
	value := []byte("mutable-value")
	if err := b.AddInsert(key, value, 1); err != nil {
		t.Fatalf("AddInsert: %v", err)
	}
	key[0] = 'X'
	value[0] = 'X'

	v := b.OpAt(0)
	if bytes.Equal(v.Key, key) || bytes.Equal(v.Value, value) {
		t.Errorf("batch storage should not alias caller-owned buffers")
	}
}
