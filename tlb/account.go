package tlb

import (
	"github.com/welaskez/tonutils/tvm/cell"
)

// AccountState is the view of an on-chain account a provider returns.
// Seqno and PublicKey are best effort, filled only when the provider
// knows how to read the account data layout.
type AccountState struct {
	Deployed  bool
	Balance   Coins
	LastTxLT  uint64
	Seqno     uint64
	PublicKey []byte

	Code *cell.Cell
	Data *cell.Cell
}
