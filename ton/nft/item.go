package nft

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/tvm/cell"
)

const OpItemTransfer = 0x5fcc3d14

var randQueryID = func() uint64 {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return binary.LittleEndian.Uint64(buf)
}

// TransferPayload is the TEP-62 ownership transfer body.
type TransferPayload struct {
	QueryID             uint64
	NewOwner            *address.Address
	ResponseDestination *address.Address
	CustomPayload       *cell.Cell
	ForwardAmount       tlb.Coins
	ForwardPayload      *cell.Cell
}

func (p TransferPayload) ToCell() (*cell.Cell, error) {
	fwd := p.ForwardPayload
	if fwd == nil {
		fwd = cell.BeginCell().EndCell()
	}

	b := cell.BeginCell().
		MustStoreUInt(OpItemTransfer, 32).
		MustStoreUInt(p.QueryID, 64).
		MustStoreAddr(p.NewOwner).
		MustStoreAddr(p.ResponseDestination).
		MustStoreMaybeRef(p.CustomPayload).
		MustStoreBigCoins(p.ForwardAmount.Nano())

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
	if op != OpItemTransfer {
		return fmt.Errorf("unexpected op code %x", op)
	}

	if p.QueryID, err = s.LoadUInt(64); err != nil {
		return fmt.Errorf("failed to load query id: %w", err)
	}
	if p.NewOwner, err = s.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load new owner: %w", err)
	}
	if p.ResponseDestination, err = s.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load response destination: %w", err)
	}
	if p.CustomPayload, err = s.LoadMaybeRefCell(); err != nil {
		return fmt.Errorf("failed to load custom payload: %w", err)
	}
	if err = p.ForwardAmount.LoadFromCell(s); err != nil {
		return fmt.Errorf("failed to load forward amount: %w", err)
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

// ItemData is the state of a standard item contract:
// index:uint64 collection:MsgAddress [owner:MsgAddress content:^Cell]
// The bracketed tail appears once the item is initialized.
type ItemData struct {
	Initialized       bool
	Index             uint64
	CollectionAddress *address.Address
	OwnerAddress      *address.Address
	Content           ContentAny
}

type ItemClient struct {
	addr *address.Address
	api  ton.Provider
}

func NewItemClient(api ton.Provider, nftAddr *address.Address) *ItemClient {
	return &ItemClient{
		addr: nftAddr,
		api:  api,
	}
}

func (c *ItemClient) Address() *address.Address {
	return c.addr
}

func (c *ItemClient) GetNFTData(ctx context.Context) (*ItemData, error) {
	acc, err := c.api.GetAccountState(ctx, c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get item account state: %w", err)
	}

	if !acc.Deployed || acc.Data == nil {
		return nil, fmt.Errorf("nft item %s is not deployed", c.addr)
	}

	return ParseItemData(acc.Data)
}

func ParseItemData(data *cell.Cell) (*ItemData, error) {
	s := data.BeginParse()

	index, err := s.LoadUInt(64)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	collection, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load collection address: %w", err)
	}

	item := &ItemData{
		Index:             index,
		CollectionAddress: collection,
	}

	// not yet initialized by the collection
	if s.BitsLeft() < 2 {
		return item, nil
	}

	if item.OwnerAddress, err = s.LoadAddr(); err != nil {
		return nil, fmt.Errorf("failed to load owner address: %w", err)
	}
	item.Initialized = true

	if s.RefsNum() > 0 {
		content, err := s.LoadRef()
		if err != nil {
			return nil, fmt.Errorf("failed to load content ref: %w", err)
		}

		if item.Content, err = ContentFromSlice(content); err != nil {
			return nil, fmt.Errorf("failed to parse content: %w", err)
		}
	}

	return item, nil
}

func (c *ItemClient) BuildTransferPayload(newOwner *address.Address, amountForward tlb.Coins, payloadForward *cell.Cell) (*cell.Cell, error) {
	body, err := TransferPayload{
		QueryID:             randQueryID(),
		NewOwner:            newOwner,
		ResponseDestination: newOwner,
		ForwardAmount:       amountForward,
		ForwardPayload:      payloadForward,
	}.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer payload: %w", err)
	}

	return body, nil
}
