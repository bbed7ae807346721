package wallet

import (
	"context"
	"crypto/ed25519"
	"fmt"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/tvm/cell"
)

func AddressFromPubKey(key ed25519.PublicKey, ver VersionConfig, subwallet uint32) (*address.Address, error) {
	state, err := GetStateInit(key, ver, subwallet)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	stateCell, err := state.ToCell()
	if err != nil {
		return nil, fmt.Errorf("failed to get state cell: %w", err)
	}

	return address.NewAddress(0, 0, stateCell.Hash()), nil
}

// GetStateInit builds the initial code+data pair a fresh wallet of the
// given version deploys with.
func GetStateInit(pubKey ed25519.PublicKey, ver VersionConfig, subWallet uint32) (*tlb.StateInit, error) {
	switch v := ver.(type) {
	case ConfigV5R1Final:
		walletID := V5R1ID{
			NetworkGlobalID: v.NetworkGlobalID,
			WorkChain:       v.Workchain,
			SubwalletNumber: uint16(subWallet),
			WalletVersion:   0,
		}

		data := cell.BeginCell().
			MustStoreBoolBit(true). // sign allowed
			MustStoreUInt(0, 32).   // seqno
			MustStoreUInt(uint64(walletID.Serialized()), 32).
			MustStoreSlice(pubKey, 256).
			MustStoreDict(nil). // extensions
			EndCell()

		return &tlb.StateInit{Code: walletCode[V5R1Final], Data: data}, nil
	case ConfigHighloadV3:
		data := cell.BeginCell().
			MustStoreSlice(pubKey, 256).
			MustStoreUInt(uint64(subWallet), 32).
			MustStoreUInt(0, 66). // old queries, queries, last clean time
			MustStoreUInt(uint64(v.MessageTTL), 22).
			EndCell()

		return &tlb.StateInit{Code: walletCode[HighloadV3], Data: data}, nil
	case ConfigCustom:
		return v.GetStateInit(pubKey, subWallet)
	case Version:
		var data *cell.Cell
		switch v {
		case V3R1, V3R2:
			data = cell.BeginCell().
				MustStoreUInt(0, 32). // seqno
				MustStoreUInt(uint64(subWallet), 32).
				MustStoreSlice(pubKey, 256).
				EndCell()
		case V4R2:
			data = cell.BeginCell().
				MustStoreUInt(0, 32). // seqno
				MustStoreUInt(uint64(subWallet), 32).
				MustStoreSlice(pubKey, 256).
				MustStoreDict(nil). // plugins
				EndCell()
		case HighloadV2R2:
			data = cell.BeginCell().
				MustStoreUInt(uint64(subWallet), 32).
				MustStoreUInt(0, 64). // last cleaned
				MustStoreSlice(pubKey, 256).
				MustStoreDict(nil). // old queries
				EndCell()
		case PreprocessedV2:
			data = cell.BeginCell().
				MustStoreSlice(pubKey, 256).
				MustStoreUInt(0, 16). // seqno
				EndCell()
		default:
			return nil, ErrUnsupportedWalletVersion
		}

		return &tlb.StateInit{Code: walletCode[v], Data: data}, nil
	}

	return nil, ErrUnsupportedWalletVersion
}

// GetWalletVersion detects the version of a deployed account by its code
// hash. Unknown when the code is not one of the embedded wallets.
func GetWalletVersion(acc *tlb.AccountState) Version {
	if acc == nil || !acc.Deployed || acc.Code == nil {
		return Unknown
	}

	ver, ok := walletCodeHash[string(acc.Code.Hash())]
	if !ok {
		return Unknown
	}
	return ver
}

// ParseSeqnoFromData reads the sequence counter out of the persisted
// wallet data cell. Highload v2/v3 have no seqno, zero is returned.
func ParseSeqnoFromData(ver Version, data *cell.Cell) (uint32, error) {
	s := data.BeginParse()

	switch ver {
	case V3R1, V3R2, V4R2:
		seq, err := s.LoadUInt(32)
		if err != nil {
			return 0, fmt.Errorf("failed to load seqno: %w", err)
		}
		return uint32(seq), nil
	case V5R1Final:
		if _, err := s.LoadBoolBit(); err != nil {
			return 0, fmt.Errorf("failed to load sign allowed bit: %w", err)
		}
		seq, err := s.LoadUInt(32)
		if err != nil {
			return 0, fmt.Errorf("failed to load seqno: %w", err)
		}
		return uint32(seq), nil
	case PreprocessedV2:
		if _, err := s.LoadSlice(256); err != nil {
			return 0, fmt.Errorf("failed to skip public key: %w", err)
		}
		seq, err := s.LoadUInt(16)
		if err != nil {
			return 0, fmt.Errorf("failed to load seqno: %w", err)
		}
		return uint32(seq), nil
	case HighloadV2R2, HighloadV3:
		return 0, nil
	}

	return 0, ErrUnsupportedWalletVersion
}

// ParsePubKeyFromData reads the owner public key out of the persisted
// wallet data cell.
func ParsePubKeyFromData(ver Version, data *cell.Cell) (ed25519.PublicKey, error) {
	s := data.BeginParse()

	var skipBits uint
	switch ver {
	case V3R1, V3R2, V4R2:
		skipBits = 32 + 32 // seqno, subwallet
	case V5R1Final:
		skipBits = 1 + 32 + 32 // sign allowed, seqno, wallet id
	case HighloadV2R2:
		skipBits = 32 + 64 // subwallet, last cleaned
	case HighloadV3, PreprocessedV2:
		skipBits = 0
	default:
		return nil, ErrUnsupportedWalletVersion
	}

	if skipBits > 0 {
		if _, err := s.LoadSlice(skipBits); err != nil {
			return nil, fmt.Errorf("failed to skip data prefix: %w", err)
		}
	}

	key, err := s.LoadSlice(256)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}
	return key, nil
}

// GetPublicKey discovers the public key of a deployed wallet through the
// provider, detecting the wallet version by code hash.
func GetPublicKey(ctx context.Context, api ton.Provider, addr *address.Address) (ed25519.PublicKey, error) {
	acc, err := api.GetAccountState(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get account state: %w", err)
	}

	if len(acc.PublicKey) == ed25519.PublicKeySize {
		return ed25519.PublicKey(acc.PublicKey), nil
	}

	ver := GetWalletVersion(acc)
	if ver == Unknown {
		return nil, fmt.Errorf("cannot detect wallet version of %s: %w", addr, ErrUnsupportedWalletVersion)
	}

	if acc.Data == nil {
		return nil, fmt.Errorf("account %s has no data", addr)
	}
	return ParsePubKeyFromData(ver, acc.Data)
}
