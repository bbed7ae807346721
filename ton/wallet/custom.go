package wallet

import (
	"crypto/ed25519"

	"github.com/welaskez/tonutils/tlb"
)

// ConfigCustom plugs in wallet contracts that are not embedded here.
type ConfigCustom interface {
	GetStateInit(pubKey ed25519.PublicKey, subWallet uint32) (*tlb.StateInit, error)
	GetSpec(w *Wallet) RegularBuilder
}
