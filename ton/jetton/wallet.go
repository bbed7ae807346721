package jetton

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/tvm/cell"
)

const (
	OpTransfer = 0x0f8a7ea5
	OpBurn     = 0x595f07bc
)

var randQueryID = func() uint64 {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return binary.LittleEndian.Uint64(buf)
}

// TransferPayload is the TEP-74 transfer body accepted by a jetton wallet.
type TransferPayload struct {
	QueryID             uint64
	Amount              tlb.Coins
	Destination         *address.Address
	ResponseDestination *address.Address
	CustomPayload       *cell.Cell
	ForwardTONAmount    tlb.Coins
	ForwardPayload      *cell.Cell
}

func (p TransferPayload) ToCell() (*cell.Cell, error) {
	fwd := p.ForwardPayload
	if fwd == nil {
		fwd = cell.BeginCell().EndCell()
	}

	b := cell.BeginCell().
		MustStoreUInt(OpTransfer, 32).
		MustStoreUInt(p.QueryID, 64).
		MustStoreBigCoins(p.Amount.Nano()).
		MustStoreAddr(p.Destination).
		MustStoreAddr(p.ResponseDestination).
		MustStoreMaybeRef(p.CustomPayload).
		MustStoreBigCoins(p.ForwardTONAmount.Nano())

	// either inline or ref, depending on remaining room
	if fwd.BitsSize() <= b.BitsLeft()-1 && int(fwd.RefsNum()) <= b.RefsLeft() {
		b.MustStoreBoolBit(false)
		if err := b.StoreBuilder(fwd.ToBuilder()); err != nil {
			return nil, fmt.Errorf("failed to store forward payload: %w", err)
		}
	} else {
		b.MustStoreBoolBit(true)
		b.MustStoreRef(fwd)
	}

	return b.EndCell(), nil
}

func (p *TransferPayload) LoadFromCell(s *cell.Slice) error {
	op, err := s.LoadUInt(32)
	if err != nil {
		return fmt.Errorf("failed to load op: %w", err)
	}
	if op != OpTransfer {
		return fmt.Errorf("unexpected op code %x", op)
	}

	if p.QueryID, err = s.LoadUInt(64); err != nil {
		return fmt.Errorf("failed to load query id: %w", err)
	}
	if err = p.Amount.LoadFromCell(s); err != nil {
		return fmt.Errorf("failed to load amount: %w", err)
	}
	if p.Destination, err = s.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load destination: %w", err)
	}
	if p.ResponseDestination, err = s.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load response destination: %w", err)
	}
	if p.CustomPayload, err = s.LoadMaybeRefCell(); err != nil {
		return fmt.Errorf("failed to load custom payload: %w", err)
	}
	if err = p.ForwardTONAmount.LoadFromCell(s); err != nil {
		return fmt.Errorf("failed to load forward ton amount: %w", err)
	}

	asRef, err := s.LoadBoolBit()
	if err != nil {
		return fmt.Errorf("failed to load forward payload either bit: %w", err)
	}
	if asRef {
		if p.ForwardPayload, err = s.LoadRefCell(); err != nil {
			return fmt.Errorf("failed to load forward payload ref: %w", err)
		}
	} else {
		if p.ForwardPayload, err = s.ToCell(); err != nil {
			return fmt.Errorf("failed to load inline forward payload: %w", err)
		}
	}

	return nil
}

// BurnPayload is the TEP-74 burn body.
type BurnPayload struct {
	QueryID             uint64
	Amount              tlb.Coins
	ResponseDestination *address.Address
	CustomPayload       *cell.Cell
}

func (p BurnPayload) ToCell() (*cell.Cell, error) {
	return cell.BeginCell().
		MustStoreUInt(OpBurn, 32).
		MustStoreUInt(p.QueryID, 64).
		MustStoreBigCoins(p.Amount.Nano()).
		MustStoreAddr(p.ResponseDestination).
		MustStoreMaybeRef(p.CustomPayload).
		EndCell(), nil
}

func (p *BurnPayload) LoadFromCell(s *cell.Slice) error {
	op, err := s.LoadUInt(32)
	if err != nil {
		return fmt.Errorf("failed to load op: %w", err)
	}
	if op != OpBurn {
		return fmt.Errorf("unexpected op code %x", op)
	}

	if p.QueryID, err = s.LoadUInt(64); err != nil {
		return fmt.Errorf("failed to load query id: %w", err)
	}
	if err = p.Amount.LoadFromCell(s); err != nil {
		return fmt.Errorf("failed to load amount: %w", err)
	}
	if p.ResponseDestination, err = s.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load response destination: %w", err)
	}
	if p.CustomPayload, err = s.LoadMaybeRefCell(); err != nil {
		return fmt.Errorf("failed to load custom payload: %w", err)
	}

	return nil
}

// WalletData is the jetton wallet state, the layout follows TEP-74:
// balance:Coins owner:MsgAddress master:MsgAddress wallet_code:^Cell
type WalletData struct {
	Balance    *big.Int
	Owner      *address.Address
	Master     *address.Address
	WalletCode *cell.Cell
}

type WalletClient struct {
	master *Client
	addr   *address.Address
}

func (c *WalletClient) Address() *address.Address {
	return c.addr
}

func (c *WalletClient) GetData(ctx context.Context) (*WalletData, error) {
	acc, err := c.master.api.GetAccountState(ctx, c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet account state: %w", err)
	}

	if !acc.Deployed || acc.Data == nil {
		// wallets are deployed lazily on first transfer
		return &WalletData{
			Balance: big.NewInt(0),
			Master:  c.master.addr,
		}, nil
	}

	return parseWalletData(acc.Data)
}

func (c *WalletClient) GetBalance(ctx context.Context) (*big.Int, error) {
	data, err := c.GetData(ctx)
	if err != nil {
		return nil, err
	}
	return data.Balance, nil
}

func parseWalletData(data *cell.Cell) (*WalletData, error) {
	s := data.BeginParse()

	balance, err := s.LoadBigCoins()
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}

	owner, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load owner address: %w", err)
	}

	master, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load master address: %w", err)
	}

	code, err := s.LoadRefCell()
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet code: %w", err)
	}

	return &WalletData{
		Balance:    balance,
		Owner:      owner,
		Master:     master,
		WalletCode: code,
	}, nil
}

func (c *WalletClient) BuildTransferPayload(to *address.Address, amountCoins, amountForwardTON tlb.Coins, payloadForward *cell.Cell) (*cell.Cell, error) {
	body, err := TransferPayload{
		QueryID:             randQueryID(),
		Amount:              amountCoins,
		Destination:         to,
		ResponseDestination: to,
		ForwardTONAmount:    amountForwardTON,
		ForwardPayload:      payloadForward,
	}.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer payload: %w", err)
	}

	return body, nil
}

func (c *WalletClient) BuildBurnPayload(amountCoins tlb.Coins, notifyAddr *address.Address) (*cell.Cell, error) {
	body, err := BurnPayload{
		QueryID:             randQueryID(),
		Amount:              amountCoins,
		ResponseDestination: notifyAddr,
	}.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build burn payload: %w", err)
	}

	return body, nil
}
