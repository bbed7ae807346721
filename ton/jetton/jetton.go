package jetton

import (
	"context"
	"fmt"
	"math/big"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/ton/nft"
	"github.com/welaskez/tonutils/tvm/cell"
)

// Data is the jetton master state, the layout follows TEP-74:
// total_supply:Coins admin_address:MsgAddress content:^Cell wallet_code:^Cell
type Data struct {
	TotalSupply *big.Int
	AdminAddr   *address.Address
	Content     nft.ContentAny
	WalletCode  *cell.Cell
}

type Client struct {
	addr *address.Address
	api  ton.Provider
}

func NewJettonMasterClient(api ton.Provider, masterContractAddr *address.Address) *Client {
	return &Client{
		addr: masterContractAddr,
		api:  api,
	}
}

func (c *Client) Address() *address.Address {
	return c.addr
}

func (c *Client) GetJettonData(ctx context.Context) (*Data, error) {
	acc, err := c.api.GetAccountState(ctx, c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get master account state: %w", err)
	}

	if !acc.Deployed || acc.Data == nil {
		return nil, fmt.Errorf("jetton master %s is not deployed", c.addr)
	}

	return parseMasterData(acc.Data)
}

func parseMasterData(data *cell.Cell) (*Data, error) {
	s := data.BeginParse()

	supply, err := s.LoadBigCoins()
	if err != nil {
		return nil, fmt.Errorf("failed to load total supply: %w", err)
	}

	admin, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load admin address: %w", err)
	}

	contentCell, err := s.LoadRef()
	if err != nil {
		return nil, fmt.Errorf("failed to load content ref: %w", err)
	}

	content, err := nft.ContentFromSlice(contentCell)
	if err != nil {
		return nil, fmt.Errorf("failed to parse content: %w", err)
	}

	walletCode, err := s.LoadRefCell()
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet code ref: %w", err)
	}

	return &Data{
		TotalSupply: supply,
		AdminAddr:   admin,
		Content:     content,
		WalletCode:  walletCode,
	}, nil
}

// GetJettonWallet derives the jetton wallet bound to the owner. The address
// is the hash of the standard wallet state init, so no chain call beyond
// fetching the master's wallet code is needed.
func (c *Client) GetJettonWallet(ctx context.Context, ownerAddr *address.Address) (*WalletClient, error) {
	data, err := c.GetJettonData(ctx)
	if err != nil {
		return nil, err
	}

	addr, err := WalletAddress(ownerAddr, c.addr, data.WalletCode)
	if err != nil {
		return nil, fmt.Errorf("failed to derive wallet address: %w", err)
	}

	return &WalletClient{
		master: c,
		addr:   addr,
	}, nil
}

// WalletAddress computes the deterministic jetton wallet address from the
// standard initial data: zero balance, owner, master and the wallet code.
func WalletAddress(owner, master *address.Address, walletCode *cell.Cell) (*address.Address, error) {
	data := cell.BeginCell().
		MustStoreCoins(0).
		MustStoreAddr(owner).
		MustStoreAddr(master).
		MustStoreRef(walletCode).
		EndCell()

	state := &tlb.StateInit{
		Code: walletCode,
		Data: data,
	}

	stateCell, err := state.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build state init: %w", err)
	}

	return address.NewAddress(0, 0, stateCell.Hash()), nil
}
