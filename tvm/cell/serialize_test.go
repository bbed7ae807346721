package cell

import (
	"bytes"
	"errors"
	"testing"
)

func testTree() *Cell {
	shared := BeginCell().MustStoreUInt(0xDEAD, 16).EndCell()

	return BeginCell().
		MustStoreUInt(777, 64).
		MustStoreRef(shared).
		MustStoreRef(BeginCell().
			MustStoreStringSnake("nested payload").
			MustStoreRef(shared).
			EndCell()).
		EndCell()
}

func TestBOCRoundTrip(t *testing.T) {
	c := testTree()

	for _, withCRC := range []bool{false, true} {
		boc := c.ToBOCWithFlags(withCRC)

		parsed, err := FromBOC(boc)
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(parsed.Hash(), c.Hash()) {
			t.Fatal("hash mismatch after round trip")
		}
	}
}

func TestBOCSerializeIdempotent(t *testing.T) {
	c := testTree()

	boc := c.ToBOC()
	parsed, err := FromBOC(boc)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(boc, parsed.ToBOC()) {
		t.Fatal("serialize(parse(boc)) differs from boc")
	}
}

func TestBOCMultiRoot(t *testing.T) {
	cc1 := BeginCell().MustStoreUInt(111, 22).EndCell()
	cc2 := BeginCell().MustStoreUInt(777, 256).EndCell()
	cc3 := BeginCell().MustStoreBinarySnake(make([]byte, 700)).EndCell()

	boc := ToBOCMultiRoot([]*Cell{cc1, cc2, cc3}, true)

	cells, err := FromBOCMultiRoot(boc)
	if err != nil {
		t.Fatal(err)
	}

	if len(cells) != 3 {
		t.Fatal("not 3 roots")
	}

	for i, want := range []*Cell{cc1, cc2, cc3} {
		if !bytes.Equal(cells[i].Hash(), want.Hash()) {
			t.Fatalf("incorrect %d cell", i)
		}
	}
}

func TestBOCCorruptedCRC(t *testing.T) {
	boc := testTree().ToBOCWithFlags(true)
	boc[len(boc)-1] ^= 0xFF

	if _, err := FromBOC(boc); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestBOCInvalidMagic(t *testing.T) {
	boc := testTree().ToBOC()
	boc[0] = 0x00

	if _, err := FromBOC(boc); !errors.Is(err, ErrInvalidBOC) {
		t.Fatalf("expected ErrInvalidBOC, got %v", err)
	}
}

func TestBOCTruncated(t *testing.T) {
	boc := testTree().ToBOC()

	for sz := 1; sz < len(boc); sz += 7 {
		if _, err := FromBOC(boc[:sz]); err == nil {
			t.Fatalf("expected error for truncated boc of %d bytes", sz)
		}
	}
}

func TestBOCTooDeepChain(t *testing.T) {
	// hand-built envelope: a chain longer than the depth limit cannot be
	// produced by the builder, only by untrusted bytes
	const n = 1100

	var payload bytes.Buffer
	for i := 0; i < n; i++ {
		if i < n-1 {
			// one ref to the next cell, no data
			payload.Write([]byte{1, 0, byte((i + 1) >> 8), byte(i + 1)})
		} else {
			payload.Write([]byte{0, 0})
		}
	}

	var boc bytes.Buffer
	boc.Write([]byte{0xB5, 0xEE, 0x9C, 0x72})
	boc.WriteByte(2) // no index, no crc, 2-byte cell counters
	boc.WriteByte(2) // 2-byte payload size
	boc.Write([]byte{byte(n >> 8), byte(n & 0xFF)}) // cells num
	boc.Write([]byte{0, 1})                  // roots num
	boc.Write([]byte{0, 0})                  // absent num
	boc.Write([]byte{byte(payload.Len() >> 8), byte(payload.Len())})
	boc.Write([]byte{0, 0}) // root index
	boc.Write(payload.Bytes())

	if _, err := FromBOC(boc.Bytes()); !errors.Is(err, ErrTooDeepCell) {
		t.Fatalf("expected ErrTooDeepCell, got %v", err)
	}
}

func TestBOCDedup(t *testing.T) {
	// the shared subtree must be stored once
	c := testTree()

	boc := c.ToBOC()

	withoutShared := BeginCell().
		MustStoreUInt(777, 64).
		MustStoreRef(BeginCell().MustStoreUInt(0xDEAD, 16).EndCell()).
		MustStoreRef(BeginCell().
			MustStoreStringSnake("nested payload").
			MustStoreRef(BeginCell().MustStoreUInt(0xBEEF, 16).EndCell()).
			EndCell()).
		EndCell().ToBOC()

	if len(boc) >= len(withoutShared) {
		t.Fatal("shared subtree does not seem to be deduplicated")
	}

	parsed, err := FromBOC(boc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(parsed.Hash(), c.Hash()) {
		t.Fatal("hash mismatch")
	}
}
