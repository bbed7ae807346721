package jetton

import (
	"context"
	"math/big"
	"testing"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/ton/nft"
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

func masterDataCell(supply string, admin *address.Address, uri string, walletCode *cell.Cell) *cell.Cell {
	content := cell.BeginCell().MustStoreUInt(0x01, 8).MustStoreStringSnake(uri).EndCell()

	return cell.BeginCell().
		MustStoreBigCoins(tlb.MustFromTON(supply).Nano()).
		MustStoreAddr(admin).
		MustStoreRef(content).
		MustStoreRef(walletCode).
		EndCell()
}

func TestGetJettonData(t *testing.T) {
	admin := testAddr(1)
	walletCode := cell.BeginCell().MustStoreUInt(0xC0DE, 16).EndCell()
	master := testAddr(2)

	api := &mockProvider{accounts: map[string]*tlb.AccountState{
		master.String(): {
			Deployed: true,
			Data:     masterDataCell("21000000", admin, "https://ton.example/meta.json", walletCode),
		},
	}}

	c := NewJettonMasterClient(api, master)

	data, err := c.GetJettonData(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if data.TotalSupply.Cmp(tlb.MustFromTON("21000000").Nano()) != 0 {
		t.Fatal("total supply mismatch")
	}
	if !data.AdminAddr.Equals(admin) {
		t.Fatal("admin mismatch")
	}

	off, ok := data.Content.(*nft.ContentOffchain)
	if !ok {
		t.Fatalf("content type %T", data.Content)
	}
	if off.URI != "https://ton.example/meta.json" {
		t.Fatalf("uri %q", off.URI)
	}
}

func TestGetJettonWalletDerivation(t *testing.T) {
	walletCode := cell.BeginCell().MustStoreUInt(0xC0DE, 16).EndCell()
	master := testAddr(3)
	owner := testAddr(4)

	api := &mockProvider{accounts: map[string]*tlb.AccountState{
		master.String(): {
			Deployed: true,
			Data:     masterDataCell("1", testAddr(1), "u", walletCode),
		},
	}}

	c := NewJettonMasterClient(api, master)

	w, err := c.GetJettonWallet(context.Background(), owner)
	if err != nil {
		t.Fatal(err)
	}

	direct, err := WalletAddress(owner, master, walletCode)
	if err != nil {
		t.Fatal(err)
	}
	if !w.Address().Equals(direct) {
		t.Fatal("derived wallet address mismatch")
	}

	other, err := WalletAddress(testAddr(5), master, walletCode)
	if err != nil {
		t.Fatal(err)
	}
	if other.Equals(direct) {
		t.Fatal("different owners derived the same wallet")
	}

	// wallets deploy lazily, missing account means zero balance
	balance, err := w.GetBalance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("balance %s, want 0", balance)
	}
}

func TestWalletDataParse(t *testing.T) {
	owner := testAddr(6)
	master := testAddr(7)
	code := cell.BeginCell().MustStoreUInt(0xC0DE, 16).EndCell()

	data := cell.BeginCell().
		MustStoreBigCoins(big.NewInt(500)).
		MustStoreAddr(owner).
		MustStoreAddr(master).
		MustStoreRef(code).
		EndCell()

	parsed, err := parseWalletData(data)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.Balance.Int64() != 500 {
		t.Fatalf("balance %s", parsed.Balance)
	}
	if !parsed.Owner.Equals(owner) || !parsed.Master.Equals(master) {
		t.Fatal("address mismatch")
	}
}

func TestTransferPayloadRoundTrip(t *testing.T) {
	small := cell.BeginCell().MustStoreUInt(0, 32).MustStoreStringSnake("memo").EndCell()
	big1023 := cell.BeginCell().MustStoreSlice(make([]byte, 127), 1016).EndCell()

	for _, fwd := range []*cell.Cell{nil, small, big1023} {
		p := TransferPayload{
			QueryID:             42,
			Amount:              tlb.MustFromTON("17.5"),
			Destination:         testAddr(8),
			ResponseDestination: testAddr(9),
			ForwardTONAmount:    tlb.MustFromTON("0.01"),
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

		if parsed.QueryID != 42 {
			t.Fatalf("query id %d", parsed.QueryID)
		}
		if parsed.Amount.Nano().Cmp(p.Amount.Nano()) != 0 {
			t.Fatal("amount mismatch")
		}
		if !parsed.Destination.Equals(p.Destination) || !parsed.ResponseDestination.Equals(p.ResponseDestination) {
			t.Fatal("address mismatch")
		}
		if parsed.ForwardTONAmount.Nano().Cmp(p.ForwardTONAmount.Nano()) != 0 {
			t.Fatal("forward amount mismatch")
		}
		if fwd != nil && string(parsed.ForwardPayload.Hash()) != string(fwd.Hash()) {
			t.Fatal("forward payload mismatch")
		}
	}
}

func TestBurnPayloadRoundTrip(t *testing.T) {
	p := BurnPayload{
		QueryID:             7,
		Amount:              tlb.MustFromTON("3"),
		ResponseDestination: testAddr(10),
		CustomPayload:       cell.BeginCell().MustStoreUInt(1, 8).EndCell(),
	}

	c, err := p.ToCell()
	if err != nil {
		t.Fatal(err)
	}

	var parsed BurnPayload
	if err = parsed.LoadFromCell(c.BeginParse()); err != nil {
		t.Fatal(err)
	}

	if parsed.QueryID != 7 || parsed.Amount.Nano().Cmp(p.Amount.Nano()) != 0 {
		t.Fatal("field mismatch")
	}
	if !parsed.ResponseDestination.Equals(p.ResponseDestination) {
		t.Fatal("response destination mismatch")
	}
	if parsed.CustomPayload == nil || string(parsed.CustomPayload.Hash()) != string(p.CustomPayload.Hash()) {
		t.Fatal("custom payload mismatch")
	}

	// transfer body must not parse as burn
	tc, err := TransferPayload{
		Amount:              tlb.MustFromTON("1"),
		Destination:         testAddr(1),
		ResponseDestination: testAddr(2),
		ForwardTONAmount:    tlb.MustFromTON("0"),
	}.ToCell()
	if err != nil {
		t.Fatal(err)
	}
	if err = parsed.LoadFromCell(tc.BeginParse()); err == nil {
		t.Fatal("expected op code mismatch")
	}
}

func TestBuildPayloadsUseRandomQueryID(t *testing.T) {
	old := randQueryID
	randQueryID = func() uint64 { return 777 }
	defer func() { randQueryID = old }()

	w := &WalletClient{addr: testAddr(11)}

	body, err := w.BuildTransferPayload(testAddr(12), tlb.MustFromTON("1"), tlb.MustFromTON("0"), nil)
	if err != nil {
		t.Fatal(err)
	}

	var p TransferPayload
	if err = p.LoadFromCell(body.BeginParse()); err != nil {
		t.Fatal(err)
	}
	if p.QueryID != 777 {
		t.Fatalf("query id %d", p.QueryID)
	}

	burn, err := w.BuildBurnPayload(tlb.MustFromTON("2"), testAddr(13))
	if err != nil {
		t.Fatal(err)
	}

	var bp BurnPayload
	if err = bp.LoadFromCell(burn.BeginParse()); err != nil {
		t.Fatal(err)
	}
	if bp.QueryID != 777 {
		t.Fatalf("burn query id %d", bp.QueryID)
	}
}
