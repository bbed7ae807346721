package tlb

import (
	"bytes"
	"testing"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tvm/cell"
)

func testAddr(seed byte) *address.Address {
	data := make([]byte, 32)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return address.NewAddress(0x11, 0, data)
}

func TestInternalMessageRoundTrip(t *testing.T) {
	body := cell.BeginCell().MustStoreUInt(0, 32).MustStoreStringSnake("hello ton").EndCell()

	msg := &InternalMessage{
		IHRDisabled: true,
		Bounce:      true,
		SrcAddr:     testAddr(1),
		DstAddr:     testAddr(2),
		Amount:      MustFromTON("0.05"),
		CreatedLT:   12345,
		CreatedAt:   1700000000,
		Body:        body,
	}

	c, err := msg.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	var parsed InternalMessage
	if err = parsed.LoadFromCell(c.BeginParse()); err != nil {
		t.Fatal(err)
	}

	if !parsed.IHRDisabled || !parsed.Bounce || parsed.Bounced {
		t.Fatal("flags mismatch")
	}
	if !parsed.SrcAddr.Equals(msg.SrcAddr) || !parsed.DstAddr.Equals(msg.DstAddr) {
		t.Fatal("addresses mismatch")
	}
	if parsed.Amount.Nano().Cmp(msg.Amount.Nano()) != 0 {
		t.Fatal("amount mismatch")
	}
	if parsed.CreatedLT != msg.CreatedLT || parsed.CreatedAt != msg.CreatedAt {
		t.Fatal("lt/at mismatch")
	}
	if parsed.Comment() != "hello ton" {
		t.Fatalf("comment mismatch: %q", parsed.Comment())
	}
}

func TestExternalMessageRoundTrip(t *testing.T) {
	code := cell.BeginCell().MustStoreUInt(0xC0DE, 16).EndCell()
	data := cell.BeginCell().MustStoreUInt(0xDA7A, 16).EndCell()
	body := cell.BeginCell().MustStoreSlice(make([]byte, 64), 512).EndCell()

	msg := &ExternalMessage{
		DstAddr:   testAddr(3),
		StateInit: &StateInit{Code: code, Data: data},
		Body:      body,
	}

	c, err := msg.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	var parsed ExternalMessage
	if err = parsed.LoadFromCell(c.BeginParse()); err != nil {
		t.Fatal(err)
	}

	if !parsed.DstAddr.Equals(msg.DstAddr) {
		t.Fatal("dst mismatch")
	}
	if parsed.StateInit == nil || parsed.StateInit.Code == nil || parsed.StateInit.Data == nil {
		t.Fatal("state init lost")
	}
	if !bytes.Equal(parsed.StateInit.Code.Hash(), code.Hash()) {
		t.Fatal("code mismatch")
	}
	if !bytes.Equal(parsed.Body.Hash(), body.Hash()) {
		t.Fatal("body mismatch")
	}
}

func TestMessageBodyRefSpill(t *testing.T) {
	// body refs no longer fit next to the state init ref, so the body
	// itself must be stored as a ref and survive the round trip
	leaf := cell.BeginCell().MustStoreUInt(1, 8).EndCell()
	body := cell.BeginCell().
		MustStoreRef(leaf).
		MustStoreRef(leaf).
		MustStoreRef(leaf).
		MustStoreRef(leaf).
		EndCell()

	msg := &InternalMessage{
		IHRDisabled: true,
		Bounce:      true,
		SrcAddr:     testAddr(8),
		DstAddr:     testAddr(9),
		Amount:      MustFromTON("0.1"),
		StateInit:   &StateInit{Code: leaf, Data: leaf},
		Body:        body,
	}

	c, err := msg.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	var parsed InternalMessage
	if err = parsed.LoadFromCell(c.BeginParse()); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(parsed.Body.Hash(), body.Hash()) {
		t.Fatal("body mismatch")
	}
	if parsed.StateInit == nil || !bytes.Equal(parsed.StateInit.Code.Hash(), leaf.Hash()) {
		t.Fatal("state init mismatch")
	}
}

func TestMessageTypeDispatch(t *testing.T) {
	in := &InternalMessage{
		IHRDisabled: true,
		SrcAddr:     testAddr(4),
		DstAddr:     testAddr(5),
		Amount:      MustFromTON("1"),
	}

	c, err := in.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	var msg Message
	if err = msg.LoadFromCell(c.BeginParse()); err != nil {
		t.Fatal(err)
	}

	if msg.MsgType != MsgTypeInternal {
		t.Fatalf("expected internal, got %s", msg.MsgType)
	}
	if msg.AsInternal() == nil {
		t.Fatal("AsInternal returned nil")
	}

	ext := &ExternalMessage{DstAddr: testAddr(6), Body: cell.BeginCell().EndCell()}
	ec, err := ext.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	var msg2 Message
	if err = msg2.LoadFromCell(ec.BeginParse()); err != nil {
		t.Fatal(err)
	}
	if msg2.MsgType != MsgTypeExternalIn {
		t.Fatalf("expected external in, got %s", msg2.MsgType)
	}
}

func TestInternalMessageWrongTag(t *testing.T) {
	c, err := (&ExternalMessage{DstAddr: testAddr(7), Body: cell.BeginCell().EndCell()}).ToCell()
	if err != nil {
		t.Fatal(err)
	}

	var parsed InternalMessage
	if err = parsed.LoadFromCell(c.BeginParse()); err == nil {
		t.Fatal("expected tag error")
	}
}
