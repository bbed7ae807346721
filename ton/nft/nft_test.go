package nft

import (
	"bytes"
	"context"
	"math/big"
	"testing"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/tvm/cell"
)

type mockProvider struct {
	accounts map[string]*tlb.AccountState
	err      error
	sent     [][]byte
}

func (m *mockProvider) GetAccountState(_ context.Context, addr *address.Address) (*tlb.AccountState, error) {
	if m.err != nil {
		return nil, m.err
	}
	if acc, ok := m.accounts[addr.String()]; ok {
		return acc, nil
	}
	return &tlb.AccountState{}, nil
}

func (m *mockProvider) SendBoc(_ context.Context, boc []byte) error {
	m.sent = append(m.sent, boc)
	return nil
}

func testAddr(seed byte) *address.Address {
	data := make([]byte, 32)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return address.NewAddress(0x11, 0, data)
}

func TestItemTransferPayloadRoundTrip(t *testing.T) {
	fwd := cell.BeginCell().MustStoreUInt(0, 32).MustStoreStringSnake("gift").EndCell()

	p := TransferPayload{
		QueryID:             11,
		NewOwner:            testAddr(1),
		ResponseDestination: testAddr(2),
		ForwardAmount:       tlb.MustFromTON("0.05"),
		ForwardPayload:      fwd,
	}

	c, err := p.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	var parsed TransferPayload
	if err = parsed.LoadFromCell(c.BeginParse()); err != nil {
		t.Fatal(err)
	}

	if parsed.QueryID != 11 {
		t.Fatalf("query id %d", parsed.QueryID)
	}
	if !parsed.NewOwner.Equals(p.NewOwner) || !parsed.ResponseDestination.Equals(p.ResponseDestination) {
		t.Fatal("address mismatch")
	}
	if parsed.ForwardAmount.Nano().Cmp(p.ForwardAmount.Nano()) != 0 {
		t.Fatal("forward amount mismatch")
	}
	if !bytes.Equal(parsed.ForwardPayload.Hash(), fwd.Hash()) {
		t.Fatal("forward payload mismatch")
	}
}

func TestParseItemData(t *testing.T) {
	collection := testAddr(3)
	owner := testAddr(4)
	content := cell.BeginCell().MustStoreUInt(0x01, 8).MustStoreStringSnake("item.json").EndCell()

	full := cell.BeginCell().
		MustStoreUInt(5, 64).
		MustStoreAddr(collection).
		MustStoreAddr(owner).
		MustStoreRef(content).
		EndCell()

	item, err := ParseItemData(full)
	if err != nil {
		t.Fatal(err)
	}

	if !item.Initialized {
		t.Fatal("expected initialized item")
	}
	if item.Index != 5 || !item.CollectionAddress.Equals(collection) || !item.OwnerAddress.Equals(owner) {
		t.Fatal("field mismatch")
	}
	off, ok := item.Content.(*ContentOffchain)
	if !ok || off.URI != "item.json" {
		t.Fatalf("content %#v", item.Content)
	}

	// before the collection initializes it, data holds only index and collection
	fresh := cell.BeginCell().
		MustStoreUInt(9, 64).
		MustStoreAddr(collection).
		EndCell()

	item, err = ParseItemData(fresh)
	if err != nil {
		t.Fatal(err)
	}
	if item.Initialized || item.OwnerAddress != nil || item.Content != nil {
		t.Fatal("fresh item must not be initialized")
	}
	if item.Index != 9 {
		t.Fatalf("index %d", item.Index)
	}
}

func collectionDataCell(owner *address.Address, nextIndex uint64, itemCode *cell.Cell, withRoyalty bool) *cell.Cell {
	collectionContent := cell.BeginCell().MustStoreUInt(0x01, 8).MustStoreStringSnake("collection.json").EndCell()
	commonContent := cell.BeginCell().MustStoreStringSnake("https://ton.example/items/").EndCell()

	content := cell.BeginCell().
		MustStoreRef(collectionContent).
		MustStoreRef(commonContent).
		EndCell()

	b := cell.BeginCell().
		MustStoreAddr(owner).
		MustStoreUInt(nextIndex, 64).
		MustStoreRef(content).
		MustStoreRef(itemCode)

	if withRoyalty {
		royalty := cell.BeginCell().
			MustStoreUInt(5, 16).
			MustStoreUInt(100, 16).
			MustStoreAddr(owner).
			EndCell()
		b.MustStoreRef(royalty)
	}

	return b.EndCell()
}

func TestCollectionDataAndItemAddress(t *testing.T) {
	owner := testAddr(5)
	itemCode := cell.BeginCell().MustStoreUInt(0x17E3, 16).EndCell()
	collection := testAddr(6)

	api := &mockProvider{accounts: map[string]*tlb.AccountState{
		collection.String(): {
			Deployed: true,
			Data:     collectionDataCell(owner, 12, itemCode, true),
		},
	}}

	c := NewCollectionClient(api, collection)

	data, err := c.GetCollectionData(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !data.OwnerAddress.Equals(owner) {
		t.Fatal("owner mismatch")
	}
	if data.NextItemIndex.Uint64() != 12 {
		t.Fatalf("next index %d", data.NextItemIndex.Uint64())
	}
	off, ok := data.Content.(*ContentOffchain)
	if !ok || off.URI != "collection.json" {
		t.Fatalf("content %#v", data.Content)
	}
	if data.CommonContent == nil {
		t.Fatal("common content lost")
	}
	if data.RoyaltyParams == nil || data.RoyaltyParams.Factor != 5 || data.RoyaltyParams.Base != 100 {
		t.Fatal("royalty mismatch")
	}
	if !bytes.Equal(data.ItemCode.Hash(), itemCode.Hash()) {
		t.Fatal("item code mismatch")
	}

	addr, err := c.GetNFTAddressByIndex(context.Background(), big.NewInt(3))
	if err != nil {
		t.Fatal(err)
	}

	direct, err := ItemAddress(big.NewInt(3), collection, itemCode)
	if err != nil {
		t.Fatal(err)
	}
	if !addr.Equals(direct) {
		t.Fatal("derived item address mismatch")
	}

	other, err := ItemAddress(big.NewInt(4), collection, itemCode)
	if err != nil {
		t.Fatal(err)
	}
	if other.Equals(direct) {
		t.Fatal("different indexes derived the same address")
	}
}

func TestMintPayloads(t *testing.T) {
	old := randQueryID
	randQueryID = func() uint64 { return 55 }
	defer func() { randQueryID = old }()

	c := NewCollectionClient(&mockProvider{}, testAddr(7))
	owner := testAddr(8)

	body, err := c.BuildMintPayload(big.NewInt(2), owner, tlb.MustFromTON("0.05"), &ContentOffchain{URI: "2.json"})
	if err != nil {
		t.Fatal(err)
	}

	s := body.BeginParse()
	if op := s.MustLoadUInt(32); op != OpCollectionMint {
		t.Fatalf("op %x", op)
	}
	if qid := s.MustLoadUInt(64); qid != 55 {
		t.Fatalf("query id %d", qid)
	}
	if idx := s.MustLoadUInt(64); idx != 2 {
		t.Fatalf("index %d", idx)
	}
	if amt, err := s.LoadBigCoins(); err != nil || amt.Cmp(tlb.MustFromTON("0.05").Nano()) != 0 {
		t.Fatal("amount mismatch")
	}

	state := s.MustLoadRef()
	stateOwner, err := state.LoadAddr()
	if err != nil {
		t.Fatal(err)
	}
	if !stateOwner.Equals(owner) {
		t.Fatal("item owner mismatch")
	}
	// item content carries the bare uri, the collection prepends its common part
	con := state.MustLoadRef()
	if uri := con.MustLoadStringSnake(); uri != "2.json" {
		t.Fatalf("uri %q", uri)
	}

	if _, err = c.BuildMintEditablePayload(big.NewInt(3), owner, nil, tlb.MustFromTON("0.05"), &ContentOffchain{URI: "3.json"}); err == nil {
		t.Fatal("expected error without editor")
	}
}

func TestBatchMintPayload(t *testing.T) {
	old := randQueryID
	randQueryID = func() uint64 { return 56 }
	defer func() { randQueryID = old }()

	c := NewCollectionClient(&mockProvider{}, testAddr(9))

	items := []MintItem{
		{Index: big.NewInt(1), TonAmount: tlb.MustFromTON("0.05"), Owner: testAddr(10), Content: &ContentOffchain{URI: "1.json"}},
		{Index: big.NewInt(2), TonAmount: tlb.MustFromTON("0.06"), Owner: testAddr(11), Content: &ContentOffchain{URI: "2.json"}},
	}

	body, err := c.BuildBatchMintPayload(items)
	if err != nil {
		t.Fatal(err)
	}

	s := body.BeginParse()
	if op := s.MustLoadUInt(32); op != OpCollectionBatchMint {
		t.Fatalf("op %x", op)
	}
	s.MustLoadUInt(64)

	dict, err := s.MustLoadRef().ToDict(64)
	if err != nil {
		t.Fatal(err)
	}
	if dict.Size() != 2 {
		t.Fatalf("deploy list size %d", dict.Size())
	}

	entry := dict.GetByIntKey(big.NewInt(2))
	if entry == nil {
		t.Fatal("missing deploy entry for index 2")
	}

	es := entry.BeginParse()
	if amt, err := es.LoadBigCoins(); err != nil || amt.Cmp(tlb.MustFromTON("0.06").Nano()) != 0 {
		t.Fatal("entry amount mismatch")
	}

	state := es.MustLoadRef()
	stateOwner, err := state.LoadAddr()
	if err != nil {
		t.Fatal(err)
	}
	if !stateOwner.Equals(testAddr(11)) {
		t.Fatal("entry owner mismatch")
	}

	if _, err = c.BuildBatchMintPayload(nil); err == nil {
		t.Fatal("expected error for empty batch")
	}
}

func TestChangeOwnerPayload(t *testing.T) {
	c := NewCollectionClient(&mockProvider{}, testAddr(12))

	body, err := c.BuildChangeOwnerPayload(testAddr(13))
	if err != nil {
		t.Fatal(err)
	}

	s := body.BeginParse()
	if op := s.MustLoadUInt(32); op != OpCollectionChangeOwner {
		t.Fatalf("op %x", op)
	}
	s.MustLoadUInt(64)

	newOwner, err := s.LoadAddr()
	if err != nil {
		t.Fatal(err)
	}
	if !newOwner.Equals(testAddr(13)) {
		t.Fatal("new owner mismatch")
	}
}

func TestItemEditable(t *testing.T) {
	old := randQueryID
	randQueryID = func() uint64 { return 57 }
	defer func() { randQueryID = old }()

	collection := testAddr(14)
	owner := testAddr(15)
	editor := testAddr(16)
	item := testAddr(17)
	content := cell.BeginCell().MustStoreStringSnake("e.json").EndCell()

	data := cell.BeginCell().
		MustStoreUInt(1, 64).
		MustStoreAddr(collection).
		MustStoreAddr(owner).
		MustStoreRef(content).
		MustStoreAddr(editor).
		EndCell()

	api := &mockProvider{accounts: map[string]*tlb.AccountState{
		item.String(): {Deployed: true, Data: data},
	}}

	c := NewItemEditableClient(api, item)

	got, err := c.GetEditor(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equals(editor) {
		t.Fatal("editor mismatch")
	}

	body, err := c.BuildEditPayload(&ContentOffchain{URI: "new.json"})
	if err != nil {
		t.Fatal(err)
	}

	s := body.BeginParse()
	if op := s.MustLoadUInt(32); op != OpItemEdit {
		t.Fatalf("op %x", op)
	}
	if qid := s.MustLoadUInt(64); qid != 57 {
		t.Fatalf("query id %d", qid)
	}
	if uri := s.MustLoadRef().MustLoadStringSnake(); uri != "new.json" {
		t.Fatalf("uri %q", uri)
	}
}
