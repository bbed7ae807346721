package wallet

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/tvm/cell"
)

type Version int

// Network IDs
const MainnetGlobalID = -239
const TestnetGlobalID = -3

const (
	V3R1           Version = 31
	V3R2           Version = 32
	V3                     = V3R2
	V4R2           Version = 42
	V5R1Final      Version = 52
	HighloadV2R2   Version = 122
	HighloadV3     Version = 300
	PreprocessedV2 Version = 250
	Unknown        Version = 0
)

// DefaultSubwallet is the default subwallet id hardcoded across the
// ecosystem for standard wallets.
const DefaultSubwallet = 698983191

const (
	CarryAllRemainingBalance       = 128
	CarryAllRemainingIncomingValue = 64
	DestroyAccountIfZero           = 32
	IgnoreErrors                   = 2
	PayGasSeparately               = 1
)

func (v Version) String() string {
	switch v {
	case HighloadV2R2:
		return "highload V2R2"
	case HighloadV3:
		return "highload V3"
	case PreprocessedV2:
		return "preprocessed V2"
	case Unknown:
		return "unknown"
	}

	if v/10 > 0 && v/10 < 10 {
		return fmt.Sprintf("V%dR%d", v/10, v%10)
	}
	return fmt.Sprintf("%d", v)
}

var (
	walletCodeHex = map[Version]string{
		V3R1: _V3R1CodeHex, V3R2: _V3R2CodeHex,
		V4R2:           _V4R2CodeHex,
		V5R1Final:      _V5R1FinalCodeHex,
		HighloadV2R2:   _HighloadV2R2CodeHex,
		HighloadV3:     _HighloadV3CodeHex,
		PreprocessedV2: _PreprocessedV2CodeHex,
	}
	walletCode     = map[Version]*cell.Cell{}
	walletCodeHash = map[string]Version{}
)

func init() {
	for ver, codeHex := range walletCodeHex {
		boc, err := hex.DecodeString(codeHex)
		if err != nil {
			panic(err)
		}
		code, err := cell.FromBOC(boc)
		if err != nil {
			panic(err)
		}
		walletCode[ver] = code
		walletCodeHash[string(code.Hash())] = ver
	}
}

// defining some funcs this way to mock for tests
var randUint32 = func() uint32 {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return binary.LittleEndian.Uint32(buf)
}

var timeNow = time.Now

var (
	ErrUnsupportedWalletVersion = errors.New("wallet version is not supported")
	ErrTooManyMessages          = errors.New("too many messages for this wallet version")
	ErrInvalidValidityWindow    = errors.New("validity window must end in the future")
	ErrSigningFailure           = errors.New("failed to sign message")
	ErrVariantMismatch          = errors.New("deployed contract code does not match wallet version")
	ErrQueryIDReused            = errors.New("query id was already used and is not expired yet")
	ErrNegativeAmount           = errors.New("message amount cannot be negative")
)

// VersionConfig is either a plain Version or a Config* struct for
// versions that need extra parameters.
type VersionConfig any

type Message struct {
	Mode            uint8
	InternalMessage *tlb.InternalMessage
}

// Signer produces a 64 byte ed25519 signature of the cell hash.
// It lets keys live outside the process, in an HSM or co-signing setup.
type Signer func(ctx context.Context, payload *cell.Cell) ([]byte, error)

type Wallet struct {
	api    ton.Provider
	key    ed25519.PrivateKey
	pubKey ed25519.PublicKey
	addr   *address.Address
	ver    VersionConfig

	// Can be used to operate multiple wallets with the same key and version.
	// use GetSubwallet if you need it.
	subwallet uint32

	// Stores a pointer to implementation of the version related functionality
	spec any

	signer Signer
}

type walletOption func(*Wallet)

func FromPrivateKey(api ton.Provider, key ed25519.PrivateKey, version VersionConfig) (*Wallet, error) {
	return newWallet(
		api,
		key.Public().(ed25519.PublicKey),
		version,
		withPrivateKey(key),
		withSigner(func(ctx context.Context, c *cell.Cell) ([]byte, error) {
			if c == nil {
				return nil, fmt.Errorf("cannot sign: cell is nil")
			}
			return c.Sign(key), nil
		}))
}

func FromSigner(api ton.Provider, publicKey ed25519.PublicKey, version VersionConfig, signer Signer) (*Wallet, error) {
	return newWallet(
		api,
		publicKey,
		version,
		withSigner(signer))
}

func newWallet(api ton.Provider, publicKey ed25519.PublicKey, version VersionConfig, options ...walletOption) (*Wallet, error) {
	var subwallet uint32 = DefaultSubwallet

	// default subwallet depends on wallet type
	switch version.(type) {
	case ConfigV5R1Final:
		subwallet = 0
	}

	addr, err := AddressFromPubKey(publicKey, version, subwallet)
	if err != nil {
		return nil, err
	}

	w := &Wallet{
		api:       api,
		addr:      addr,
		ver:       version,
		subwallet: subwallet,
		pubKey:    publicKey,
	}

	for _, opt := range options {
		opt(w)
	}

	w.spec, err = getSpec(w)
	if err != nil {
		return nil, err
	}

	return w, nil
}

func withPrivateKey(privateKey ed25519.PrivateKey) walletOption {
	return func(w *Wallet) {
		w.key = privateKey
	}
}

func withSigner(signer Signer) walletOption {
	return func(w *Wallet) {
		w.signer = signer
	}
}

func getSpec(w *Wallet) (any, error) {
	switch v := w.ver.(type) {
	case Version, ConfigV5R1Final:
		regular := SpecRegular{
			wallet:      w,
			messagesTTL: 60 * 3, // default ttl 3 min
		}
		seqno := SpecSeqno{seqnoFetcher: w.fetchSeqno}

		if x, ok := w.ver.(ConfigV5R1Final); ok {
			if x.NetworkGlobalID == 0 {
				return nil, fmt.Errorf("NetworkGlobalID should be set in V5 config")
			}
			return &SpecV5R1Final{SpecRegular: regular, SpecSeqno: seqno, config: x}, nil
		}

		switch v {
		case V3R1, V3R2:
			return &SpecV3{regular, seqno}, nil
		case V4R2:
			return &SpecV4R2{regular, seqno}, nil
		case HighloadV2R2:
			return &SpecHighloadV2R2{SpecRegular: regular, pendingQueries: map[uint32]int64{}}, nil
		case HighloadV3:
			return nil, fmt.Errorf("use ConfigHighloadV3 for highload v3 spec")
		case V5R1Final:
			return nil, fmt.Errorf("use ConfigV5R1Final for V5 spec")
		case PreprocessedV2:
			return &SpecPreprocessedV2{SpecRegular: regular, SpecSeqno: seqno}, nil
		}
	case ConfigHighloadV3:
		return &SpecHighloadV3{wallet: w, config: v}, nil
	case ConfigCustom:
		return v.GetSpec(w), nil
	}

	return nil, fmt.Errorf("cannot init spec: %w", ErrUnsupportedWalletVersion)
}

// Version returns the plain version tag behind the wallet config.
func (w *Wallet) Version() Version {
	switch v := w.ver.(type) {
	case Version:
		return v
	case ConfigV5R1Final:
		return V5R1Final
	case ConfigHighloadV3:
		return HighloadV3
	default:
		return Unknown
	}
}

func (w *Wallet) Address() *address.Address {
	return w.addr
}

// WalletAddress - returns standard non bounce address
func (w *Wallet) WalletAddress() *address.Address {
	return w.addr.Bounce(false)
}

func (w *Wallet) PrivateKey() ed25519.PrivateKey {
	return w.key
}

func (w *Wallet) PublicKey() ed25519.PublicKey {
	return w.pubKey
}

func (w *Wallet) GetSubwallet(subwallet uint32) (*Wallet, error) {
	addr, err := AddressFromPubKey(w.pubKey, w.ver, subwallet)
	if err != nil {
		return nil, err
	}

	sub := &Wallet{
		api:       w.api,
		key:       w.key,
		pubKey:    w.pubKey,
		addr:      addr,
		ver:       w.ver,
		subwallet: subwallet,
		signer:    w.signer,
	}

	sub.spec, err = getSpec(sub)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (w *Wallet) GetSubwalletID() uint32 {
	return w.subwallet
}

func (w *Wallet) GetSpec() any {
	return w.spec
}

func (w *Wallet) GetBalance(ctx context.Context) (tlb.Coins, error) {
	acc, err := w.api.GetAccountState(ctx, w.addr)
	if err != nil {
		if errors.Is(err, ton.ErrAccountNotFound) {
			return tlb.ZeroCoins, nil
		}
		return tlb.Coins{}, fmt.Errorf("failed to get account state: %w", err)
	}

	if !acc.Deployed {
		return tlb.ZeroCoins, nil
	}
	return acc.Balance, nil
}

// GetSeqno reads the current sequence number of the deployed wallet.
// Zero for a not yet deployed account.
func (w *Wallet) GetSeqno(ctx context.Context) (uint32, error) {
	return w.fetchSeqno(ctx, w.subwallet)
}

func (w *Wallet) fetchSeqno(ctx context.Context, _ uint32) (uint32, error) {
	acc, err := w.api.GetAccountState(ctx, w.addr)
	if err != nil {
		if errors.Is(err, ton.ErrAccountNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get account state: %w", err)
	}

	if !acc.Deployed || acc.Data == nil {
		return 0, nil
	}

	seq, err := ParseSeqnoFromData(w.Version(), acc.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to parse seqno from account data: %w", err)
	}
	return seq, nil
}

func (w *Wallet) signPayload(ctx context.Context, payload *cell.Cell) ([]byte, error) {
	if w.signer == nil {
		return nil, fmt.Errorf("%w: no signer attached", ErrSigningFailure)
	}

	sign, err := w.signer(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSigningFailure, err.Error())
	}
	if len(sign) != 64 {
		return nil, fmt.Errorf("%w: invalid signature size %d", ErrSigningFailure, len(sign))
	}
	return sign, nil
}

func validateMessages(spec Version, limit int, messages []*Message) error {
	if len(messages) == 0 {
		return errors.New("should have at least one message")
	}
	if len(messages) > limit {
		return fmt.Errorf("%w: max %d for %s", ErrTooManyMessages, limit, spec)
	}

	for i, message := range messages {
		if message.InternalMessage == nil {
			return fmt.Errorf("internal message %d cannot be nil", i)
		}
		if message.InternalMessage.Amount.Nano().Sign() < 0 {
			return fmt.Errorf("message %d: %w", i, ErrNegativeAmount)
		}
	}
	return nil
}

func (w *Wallet) BuildExternalMessage(ctx context.Context, message *Message) (*tlb.ExternalMessage, error) {
	return w.BuildExternalMessageForMany(ctx, []*Message{message})
}

func (w *Wallet) BuildExternalMessageForMany(ctx context.Context, messages []*Message) (*tlb.ExternalMessage, error) {
	initialized := false

	acc, err := w.api.GetAccountState(ctx, w.addr)
	switch {
	case err == nil:
		initialized = acc.Deployed
	case errors.Is(err, ton.ErrAccountNotFound):
	default:
		return nil, fmt.Errorf("failed to get account state: %w", err)
	}

	if initialized && acc.Code != nil {
		if ver, ok := walletCodeHash[string(acc.Code.Hash())]; ok && ver != w.Version() {
			return nil, fmt.Errorf("deployed code is %s: %w", ver, ErrVariantMismatch)
		}
	}

	return w.PrepareExternalMessageForMany(ctx, !initialized, messages)
}

// PrepareExternalMessageForMany - Prepares external message for wallet
// can be used directly for offline signing but custom fetchers should be defined in this case
func (w *Wallet) PrepareExternalMessageForMany(ctx context.Context, withStateInit bool, messages []*Message) (_ *tlb.ExternalMessage, err error) {
	var stateInit *tlb.StateInit
	if withStateInit {
		stateInit, err = GetStateInit(w.pubKey, w.ver, w.subwallet)
		if err != nil {
			return nil, fmt.Errorf("failed to get state init: %w", err)
		}
	}

	var msg *cell.Cell
	switch w.ver.(type) {
	case Version, ConfigV5R1Final:
		switch s := w.spec.(type) {
		case RegularBuilder:
			msg, err = s.BuildMessage(ctx, !withStateInit, messages)
			if err != nil {
				return nil, fmt.Errorf("build message err: %w", err)
			}
		case *SpecHighloadV2R2:
			msg, err = s.BuildMessage(ctx, randUint32(), messages)
			if err != nil {
				return nil, fmt.Errorf("build message err: %w", err)
			}
		default:
			return nil, fmt.Errorf("send is not yet supported: %w", ErrUnsupportedWalletVersion)
		}
	case ConfigHighloadV3:
		msg, err = w.spec.(*SpecHighloadV3).BuildMessage(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("build message err: %w", err)
		}
	case ConfigCustom:
		msg, err = w.spec.(RegularBuilder).BuildMessage(ctx, !withStateInit, messages)
		if err != nil {
			return nil, fmt.Errorf("build message err: %w", err)
		}
	default:
		return nil, fmt.Errorf("send is not yet supported: %w", ErrUnsupportedWalletVersion)
	}

	return &tlb.ExternalMessage{
		DstAddr:   w.addr,
		StateInit: stateInit,
		Body:      msg,
	}, nil
}

func (w *Wallet) BuildTransfer(to *address.Address, amount tlb.Coins, bounce bool, comment string) (_ *Message, err error) {
	var body *cell.Cell
	if comment != "" {
		body, err = CreateCommentCell(comment)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      bounce,
			DstAddr:     to,
			Amount:      amount,
			Body:        body,
		},
	}, nil
}

func (w *Wallet) BuildTransferEncrypted(ctx context.Context, to *address.Address, amount tlb.Coins, bounce bool, comment string) (_ *Message, err error) {
	var body *cell.Cell
	if comment != "" {
		key, err := GetPublicKey(ctx, w.api, to)
		if err != nil {
			return nil, fmt.Errorf("failed to get destination wallet public key: %w", err)
		}

		body, err = CreateEncryptedCommentCell(comment, w.WalletAddress(), w.key, key)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      bounce,
			DstAddr:     to,
			Amount:      amount,
			Body:        body,
		},
	}, nil
}

func (w *Wallet) Send(ctx context.Context, message *Message) error {
	return w.SendMany(ctx, []*Message{message})
}

func (w *Wallet) SendMany(ctx context.Context, messages []*Message) error {
	_, err := w.sendMany(ctx, messages)
	return err
}

// SendManyGetInMsgHash returns hash of external incoming message payload.
func (w *Wallet) SendManyGetInMsgHash(ctx context.Context, messages []*Message) ([]byte, error) {
	return w.sendMany(ctx, messages)
}

func (w *Wallet) sendMany(ctx context.Context, messages []*Message) (inMsgHash []byte, err error) {
	ext, err := w.BuildExternalMessageForMany(ctx, messages)
	if err != nil {
		return nil, err
	}

	if err = ton.SendExternalMessage(ctx, w.api, ext); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return ext.Body.Hash(), nil
}

// TransferNoBounce - can be used to transfer TON to not yet initialized contract/wallet
func (w *Wallet) TransferNoBounce(ctx context.Context, to *address.Address, amount tlb.Coins, comment string) error {
	return w.transfer(ctx, to, amount, comment, false)
}

// Transfer - safe transfer, in case of error on smart contract side, you will get coins back,
// cannot be used to transfer TON to not yet initialized contract/wallet
func (w *Wallet) Transfer(ctx context.Context, to *address.Address, amount tlb.Coins, comment string) error {
	return w.transfer(ctx, to, amount, comment, true)
}

// TransferWithEncryptedComment - same as Transfer but encrypts comment,
// fails when the destination key cannot be discovered.
func (w *Wallet) TransferWithEncryptedComment(ctx context.Context, to *address.Address, amount tlb.Coins, comment string) error {
	transfer, err := w.BuildTransferEncrypted(ctx, to, amount, true, comment)
	if err != nil {
		return err
	}
	return w.Send(ctx, transfer)
}

func (w *Wallet) transfer(ctx context.Context, to *address.Address, amount tlb.Coins, comment string, bounce bool) (err error) {
	transfer, err := w.BuildTransfer(to, amount, bounce, comment)
	if err != nil {
		return err
	}
	return w.Send(ctx, transfer)
}

// DeployContract deploys arbitrary code+data, address is derived from the
// state init hash.
func (w *Wallet) DeployContract(ctx context.Context, amount tlb.Coins, msgBody, contractCode, contractData *cell.Cell) (*address.Address, error) {
	state := &tlb.StateInit{
		Data: contractData,
		Code: contractCode,
	}

	stateCell, err := state.ToCell()
	if err != nil {
		return nil, err
	}

	addr := address.NewAddress(0, 0, stateCell.Hash())

	if err = w.Send(ctx, &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      false,
			DstAddr:     addr,
			Amount:      amount,
			Body:        msgBody,
			StateInit:   state,
		},
	}); err != nil {
		return nil, err
	}

	return addr, nil
}

func SimpleMessage(to *address.Address, amount tlb.Coins, payload *cell.Cell) *Message {
	return &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      true,
			DstAddr:     to,
			Amount:      amount,
			Body:        payload,
		},
	}
}

// SimpleMessageAutoBounce - will determine bounce flag from address
func SimpleMessageAutoBounce(to *address.Address, amount tlb.Coins, payload *cell.Cell) *Message {
	return &Message{
		Mode: PayGasSeparately + IgnoreErrors,
		InternalMessage: &tlb.InternalMessage{
			IHRDisabled: true,
			Bounce:      to.IsBounceable(),
			DstAddr:     to,
			Amount:      amount,
			Body:        payload,
		},
	}
}
