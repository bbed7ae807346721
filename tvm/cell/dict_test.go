package cell

import (
	"bytes"
	"math/big"
	"testing"
)

func TestDictSetGetDelete(t *testing.T) {
	d := NewDict(64)

	for i := int64(0); i < 50; i++ {
		err := d.SetIntKey(big.NewInt(i), BeginCell().MustStoreUInt(uint64(i)*3, 32).EndCell())
		if err != nil {
			t.Fatal(err)
		}
	}

	if d.Size() != 50 {
		t.Fatalf("expected 50 entries, got %d", d.Size())
	}

	v := d.GetByIntKey(big.NewInt(17))
	if v == nil {
		t.Fatal("key 17 not found")
	}
	if got := v.BeginParse().MustLoadUInt(32); got != 51 {
		t.Fatalf("got %d, want 51", got)
	}

	key := BeginCell().MustStoreUInt(17, 64).EndCell()
	if err := d.Delete(key); err != nil {
		t.Fatal(err)
	}
	if d.GetByIntKey(big.NewInt(17)) != nil {
		t.Fatal("key 17 should be deleted")
	}
}

func TestDictSerializeRoundTrip(t *testing.T) {
	d := NewDict(16)

	vals := map[uint64]uint64{1: 100, 2: 200, 700: 777, 65535: 5}
	for k, v := range vals {
		err := d.Set(
			BeginCell().MustStoreUInt(k, 16).EndCell(),
			BeginCell().MustStoreUInt(v, 64).EndCell(),
		)
		if err != nil {
			t.Fatal(err)
		}
	}

	c, err := d.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	// reparse through boc to cover label codec end to end
	parsed, err := FromBOC(c.ToBOC())
	if err != nil {
		t.Fatal(err)
	}

	d2, err := parsed.BeginParse().ToDict(16)
	if err != nil {
		t.Fatal(err)
	}

	if d2.Size() != len(vals) {
		t.Fatalf("expected %d entries, got %d", len(vals), d2.Size())
	}

	for k, v := range vals {
		got := d2.Get(BeginCell().MustStoreUInt(k, 16).EndCell())
		if got == nil {
			t.Fatalf("key %d not found after round trip", k)
		}
		if gotV := got.BeginParse().MustLoadUInt(64); gotV != v {
			t.Fatalf("key %d: got %d, want %d", k, gotV, v)
		}
	}
}

func TestDictAll(t *testing.T) {
	d := NewDict(32)

	for i := uint64(0); i < 20; i++ {
		err := d.Set(
			BeginCell().MustStoreUInt(i, 32).EndCell(),
			BeginCell().MustStoreUInt(i, 8).EndCell(),
		)
		if err != nil {
			t.Fatal(err)
		}
	}

	seen := map[uint64]bool{}
	for _, kv := range d.All() {
		k := kv.Key.BeginParse().MustLoadUInt(32)
		v := kv.Value.BeginParse().MustLoadUInt(8)
		if k != v {
			t.Fatalf("key %d has value %d", k, v)
		}
		seen[k] = true
	}

	if len(seen) != 20 {
		t.Fatalf("expected 20 distinct keys, got %d", len(seen))
	}
}

func TestEmptyDictStoreLoad(t *testing.T) {
	c := BeginCell().MustStoreDict(nil).EndCell()

	d, err := c.BeginParse().LoadDict(256)
	if err != nil {
		t.Fatal(err)
	}
	if !d.IsEmpty() {
		t.Fatal("dict should be empty")
	}

	full := BeginCell().MustStoreDict(d).EndCell()
	if !bytes.Equal(full.Hash(), c.Hash()) {
		t.Fatal("empty dict store is not stable")
	}
}
