package dns

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/ton/nft"
	"github.com/welaskez/tonutils/tvm/cell"
)

var ErrNoSuchRecord = fmt.Errorf("no such dns record")

// Domain is a resolved domain item. Records hold the raw record dict, the
// embedded client allows editing the item through its collection.
type Domain struct {
	Records *cell.Dictionary
	Owner   *address.Address

	*nft.ItemEditableClient
}

type Client struct {
	root *address.Address
	api  ton.Provider
}

func NewDNSClient(api ton.Provider, root *address.Address) *Client {
	return &Client{
		root: root,
		api:  api,
	}
}

// Resolve walks the domain name label by label starting from the root
// resolver, following next-resolver records for nested subdomains.
func (c *Client) Resolve(ctx context.Context, domain string) (*Domain, error) {
	chain := strings.Split(domain, ".")
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 { // reverse array
		chain[i], chain[j] = chain[j], chain[i]
	}
	return c.resolve(ctx, c.root, chain)
}

func (c *Client) resolve(ctx context.Context, resolver *address.Address, chain []string) (*Domain, error) {
	itemAddr, err := c.domainItemAddress(ctx, resolver, chain[0])
	if err != nil {
		return nil, err
	}

	d, err := c.GetDomain(ctx, itemAddr)
	if err != nil {
		return nil, err
	}

	if len(chain) == 1 {
		return d, nil
	}

	next := d.GetNextResolverRecord()
	if next == nil {
		return nil, fmt.Errorf("%w: no next resolver for %s", ErrNoSuchRecord, chain[0])
	}
	return c.resolve(ctx, next, chain[1:])
}

// domainItemAddress derives the item address the way the root collection
// deploys it: index is the hash of the domain label, initial data is
// index:uint256 collection:MsgAddress.
func (c *Client) domainItemAddress(ctx context.Context, resolver *address.Address, label string) (*address.Address, error) {
	acc, err := c.api.GetAccountState(ctx, resolver)
	if err != nil {
		return nil, fmt.Errorf("failed to get resolver account state: %w", err)
	}

	if !acc.Deployed || acc.Data == nil {
		return nil, fmt.Errorf("resolver %s is not deployed", resolver)
	}

	// resolver collection data: content:^Cell item_code:^Cell
	s := acc.Data.BeginParse()
	if _, err = s.LoadRef(); err != nil {
		return nil, fmt.Errorf("failed to skip collection content: %w", err)
	}

	itemCode, err := s.LoadRefCell()
	if err != nil {
		return nil, fmt.Errorf("failed to load item code: %w", err)
	}

	index := sha256.Sum256([]byte(label))

	data := cell.BeginCell().
		MustStoreSlice(index[:], 256).
		MustStoreAddr(resolver).
		EndCell()

	state := &tlb.StateInit{
		Code: itemCode,
		Data: data,
	}

	stateCell, err := state.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build item state init: %w", err)
	}

	return address.NewAddress(0, 0, stateCell.Hash()), nil
}

// GetDomain loads a known domain item and parses its record dict:
// index:uint256 collection:MsgAddress owner:MsgAddress records:(HashmapE 256 ^Cell)
func (c *Client) GetDomain(ctx context.Context, domainAddr *address.Address) (*Domain, error) {
	acc, err := c.api.GetAccountState(ctx, domainAddr)
	if err != nil {
		if errors.Is(err, ton.ErrAccountNotFound) {
			return nil, ErrNoSuchRecord
		}
		return nil, fmt.Errorf("failed to get domain account state: %w", err)
	}

	if !acc.Deployed || acc.Data == nil {
		return nil, ErrNoSuchRecord
	}

	s := acc.Data.BeginParse()

	if _, err = s.LoadSlice(256); err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	if _, err = s.LoadAddr(); err != nil {
		return nil, fmt.Errorf("failed to load collection address: %w", err)
	}

	owner, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load owner address: %w", err)
	}

	records, err := s.LoadDict(256)
	if err != nil {
		return nil, fmt.Errorf("failed to load records dict: %w", err)
	}

	return &Domain{
		Records:            records,
		Owner:              owner,
		ItemEditableClient: nft.NewItemEditableClient(c.api, domainAddr),
	}, nil
}
