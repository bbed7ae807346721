package nft

import (
	"context"
	"fmt"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/tvm/cell"
)

const OpItemEdit = 0x1a0b9d51

// ItemEditPayload replaces the content of an editable item.
type ItemEditPayload struct {
	QueryID uint64
	Content *cell.Cell
}

func (p ItemEditPayload) ToCell() (*cell.Cell, error) {
	return cell.BeginCell().
		MustStoreUInt(OpItemEdit, 32).
		MustStoreUInt(p.QueryID, 64).
		MustStoreRef(p.Content).
		EndCell(), nil
}

type ItemEditableClient struct {
	*ItemClient
}

func NewItemEditableClient(api ton.Provider, nftAddr *address.Address) *ItemEditableClient {
	return &ItemEditableClient{
		ItemClient: NewItemClient(api, nftAddr),
	}
}

// GetEditor reads the editor address stored after the regular item fields.
func (c *ItemEditableClient) GetEditor(ctx context.Context) (*address.Address, error) {
	acc, err := c.api.GetAccountState(ctx, c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get item account state: %w", err)
	}

	if !acc.Deployed || acc.Data == nil {
		return nil, fmt.Errorf("nft item %s is not deployed", c.addr)
	}

	s := acc.Data.BeginParse()
	if _, err = s.LoadUInt(64); err != nil {
		return nil, fmt.Errorf("failed to skip index: %w", err)
	}
	if _, err = s.LoadAddr(); err != nil {
		return nil, fmt.Errorf("failed to skip collection address: %w", err)
	}
	if _, err = s.LoadAddr(); err != nil {
		return nil, fmt.Errorf("failed to skip owner address: %w", err)
	}
	if _, err = s.LoadRef(); err != nil {
		return nil, fmt.Errorf("failed to skip content: %w", err)
	}

	editor, err := s.LoadAddr()
	if err != nil {
		return nil, fmt.Errorf("failed to load editor address: %w", err)
	}

	return editor, nil
}

func (c *ItemEditableClient) BuildEditPayload(content ContentAny) (*cell.Cell, error) {
	con, err := itemContentCell(content)
	if err != nil {
		return nil, err
	}

	body, err := ItemEditPayload{
		QueryID: randQueryID(),
		Content: con,
	}.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to build edit payload: %w", err)
	}

	return body, nil
}
