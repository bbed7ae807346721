package ton

import (
	"context"
	"errors"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
)

var ErrAccountNotFound = errors.New("account not found")

// Provider is the narrow boundary to the network. Everything the SDK
// builds is pure computation, a provider only fetches account state and
// broadcasts ready-made BOC bytes. Retries and backoff are the
// provider's business, never done here.
type Provider interface {
	GetAccountState(ctx context.Context, addr *address.Address) (*tlb.AccountState, error)
	SendBoc(ctx context.Context, boc []byte) error
}

// SendExternalMessage serializes the external message and pushes it
// through the provider.
func SendExternalMessage(ctx context.Context, provider Provider, msg *tlb.ExternalMessage) error {
	c, err := msg.ToCell()
	if err != nil {
		return err
	}
	return provider.SendBoc(ctx, c.ToBOC())
}
