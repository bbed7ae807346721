package nft

import (
	"context"
	"fmt"
	"math/big"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/tvm/cell"
)

const (
	OpCollectionMint        = 0x00000001
	OpCollectionBatchMint   = 0x00000002
	OpCollectionChangeOwner = 0x00000003
)

// ItemMintPayload deploys a single item through the collection.
type ItemMintPayload struct {
	QueryID   uint64
	Index     *big.Int
	TonAmount tlb.Coins
	Content   *cell.Cell
}

func (p ItemMintPayload) ToCell() (*cell.Cell, error) {
	b := cell.BeginCell().
		MustStoreUInt(OpCollectionMint, 32).
		MustStoreUInt(p.QueryID, 64)

	if err := b.StoreBigUInt(p.Index, 64); err != nil {
		return nil, fmt.Errorf("failed to store index: %w", err)
	}

	return b.
		MustStoreBigCoins(p.TonAmount.Nano()).
		MustStoreRef(p.Content).
		EndCell(), nil
}

// CollectionChangeOwner reassigns the collection admin.
type CollectionChangeOwner struct {
	QueryID  uint64
	NewOwner *address.Address
}

func (p CollectionChangeOwner) ToCell() (*cell.Cell, error) {
	return cell.BeginCell().
		MustStoreUInt(OpCollectionChangeOwner, 32).
		MustStoreUInt(p.QueryID, 64).
		MustStoreAddr(p.NewOwner).
		EndCell(), nil
}

// MintItem is one entry of a batch deploy.
type MintItem struct {
	Index     *big.Int
	TonAmount tlb.Coins
	Owner     *address.Address
	Content   ContentAny
	Editor    *address.Address
}

// CollectionData is the collection contract state:
// owner:MsgAddress next_item_index:uint64 ^content ^item_code ^royalty
type CollectionData struct {
	OwnerAddress  *address.Address
	NextItemIndex *big.Int
	Content       ContentAny
	CommonContent *cell.Cell
	ItemCode      *cell.Cell
	RoyaltyParams *CollectionRoyaltyParams
}

type CollectionRoyaltyParams struct {
	Factor  uint16
	Base    uint16
	Address *address.Address
}

type CollectionClient struct {
	addr *address.Address
	api  ton.Provider
}

func NewCollectionClient(api ton.Provider, collectionAddr *address.Address) *CollectionClient {
	return &CollectionClient{
		addr: collectionAddr,
		api:  api,
	}
}

func (c *CollectionClient) Address() *address.Address {
	return c.addr
}

func (c *CollectionClient) GetCollectionData(ctx context.Context) (*CollectionData, error) {
	acc, err := c.api.GetAccountState(ctx, c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection account state: %w", err)
	}

	if !acc.Deployed || acc.Data == nil {
		return nil, fmt.Errorf("collection %s is not deployed", c.addr)
	}

	return ParseCollectionData(acc.Data)
}

func ParseCollectionData(data *cell.Cell) (*CollectionData, error) {
	s := data.BeginParse()

	owner, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load owner address: %w", err)
	}

	nextIndex, err := s.LoadBigUInt(64)
	if err != nil {
		return nil, fmt.Errorf("failed to load next item index: %w", err)
	}

	contentRef, err := s.LoadRef()
	if err != nil {
		return nil, fmt.Errorf("failed to load content ref: %w", err)
	}

	collectionContent, err := contentRef.LoadRef()
	if err != nil {
		return nil, fmt.Errorf("failed to load collection content ref: %w", err)
	}

	content, err := ContentFromSlice(collectionContent)
	if err != nil {
		return nil, fmt.Errorf("failed to parse collection content: %w", err)
	}

	var commonContent *cell.Cell
	if contentRef.RefsNum() > 0 {
		if commonContent, err = contentRef.LoadRefCell(); err != nil {
			return nil, fmt.Errorf("failed to load common content ref: %w", err)
		}
	}

	itemCode, err := s.LoadRefCell()
	if err != nil {
		return nil, fmt.Errorf("failed to load item code ref: %w", err)
	}

	res := &CollectionData{
		OwnerAddress:  owner,
		NextItemIndex: nextIndex,
		Content:       content,
		CommonContent: commonContent,
		ItemCode:      itemCode,
	}

	if s.RefsNum() > 0 {
		royalty, err := s.LoadRef()
		if err != nil {
			return nil, fmt.Errorf("failed to load royalty ref: %w", err)
		}

		if res.RoyaltyParams, err = parseRoyaltyParams(royalty); err != nil {
			return nil, err
		}
	}

	return res, nil
}

func parseRoyaltyParams(s *cell.Slice) (*CollectionRoyaltyParams, error) {
	factor, err := s.LoadUInt(16)
	if err != nil {
		return nil, fmt.Errorf("failed to load royalty factor: %w", err)
	}

	base, err := s.LoadUInt(16)
	if err != nil {
		return nil, fmt.Errorf("failed to load royalty base: %w", err)
	}

	addr, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load royalty address: %w", err)
	}

	return &CollectionRoyaltyParams{
		Factor:  uint16(factor),
		Base:    uint16(base),
		Address: addr,
	}, nil
}

// GetNFTAddressByIndex derives the item address from the collection's item
// code and the standard initial item data.
func (c *CollectionClient) GetNFTAddressByIndex(ctx context.Context, index *big.Int) (*address.Address, error) {
	data, err := c.GetCollectionData(ctx)
	if err != nil {
		return nil, err
	}

	return ItemAddress(index, c.addr, data.ItemCode)
}

// ItemAddress computes the deterministic item address from its index, the
// collection and the item code.
func ItemAddress(index *big.Int, collection *address.Address, itemCode *cell.Cell) (*address.Address, error) {
	b := cell.BeginCell()
	if err := b.StoreBigUInt(index, 64); err != nil {
		return nil, fmt.Errorf("failed to store index: %w", err)
	}
	b.MustStoreAddr(collection)

	state := &tlb.StateInit{
		Code: itemCode,
		Data: b.EndCell(),
	}

	stateCell, err := state.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build state init: %w", err)
	}

	return address.NewAddress(0, 0, stateCell.Hash()), nil
}

func itemContentCell(content ContentAny) (*cell.Cell, error) {
	// offchain item content is stored without the 0x01 prefix, deployed
	// collections concatenate it with their common content uri
	if off, ok := content.(*ContentOffchain); ok {
		return cell.BeginCell().MustStoreStringSnake(off.URI).EndCell(), nil
	}
	return content.ContentCell()
}

func packItemState(owner, editor *address.Address, content ContentAny) (*cell.Cell, error) {
	con, err := itemContentCell(content)
	if err != nil {
		return nil, err
	}

	b := cell.BeginCell().MustStoreAddr(owner).MustStoreRef(con)
	if editor != nil {
		b.MustStoreAddr(editor)
	}
	return b.EndCell(), nil
}

func (c *CollectionClient) BuildMintPayload(index *big.Int, owner *address.Address, amountForward tlb.Coins, content ContentAny) (*cell.Cell, error) {
	return c.buildMintPayload(index, owner, nil, amountForward, content)
}

// BuildMintEditablePayload mints an item that keeps a separate editor able
// to change the content later.
func (c *CollectionClient) BuildMintEditablePayload(index *big.Int, owner, editor *address.Address, amountForward tlb.Coins, content ContentAny) (*cell.Cell, error) {
	if editor == nil {
		return nil, fmt.Errorf("editor address is required")
	}
	return c.buildMintPayload(index, owner, editor, amountForward, content)
}

func (c *CollectionClient) buildMintPayload(index *big.Int, owner, editor *address.Address, amountForward tlb.Coins, content ContentAny) (*cell.Cell, error) {
	con, err := packItemState(owner, editor, content)
	if err != nil {
		return nil, err
	}

	body, err := ItemMintPayload{
		QueryID:   randQueryID(),
		Index:     index,
		TonAmount: amountForward,
		Content:   con,
	}.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build mint payload: %w", err)
	}

	return body, nil
}

// BuildBatchMintPayload deploys several items in one message. Every entry
// of the deploy dict is keyed by item index and carries the forward amount
// plus the initial item state.
func (c *CollectionClient) BuildBatchMintPayload(items []MintItem) (*cell.Cell, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("nothing to mint")
	}

	list := cell.NewDict(64)
	for i, item := range items {
		con, err := packItemState(item.Owner, item.Editor, item.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to pack item %d content: %w", i, err)
		}

		val := cell.BeginCell().
			MustStoreBigCoins(item.TonAmount.Nano()).
			MustStoreRef(con).
			EndCell()

		if err = list.SetIntKey(item.Index, val); err != nil {
			return nil, fmt.Errorf("failed to add item %d to deploy list: %w", i, err)
		}
	}

	listCell, err := list.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize deploy list: %w", err)
	}

	return cell.BeginCell().
		MustStoreUInt(OpCollectionBatchMint, 32).
		MustStoreUInt(randQueryID(), 64).
		MustStoreRef(listCell).
		EndCell(), nil
}

func (c *CollectionClient) BuildChangeOwnerPayload(newOwner *address.Address) (*cell.Cell, error) {
	body, err := CollectionChangeOwner{
		QueryID:  randQueryID(),
		NewOwner: newOwner,
	}.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build change owner payload: %w", err)
	}

	return body, nil
}
