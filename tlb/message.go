package tlb

import (
	"errors"
	"fmt"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tvm/cell"
)

type MsgType string

const (
	MsgTypeInternal    MsgType = "INTERNAL"
	MsgTypeExternalIn  MsgType = "EXTERNAL_IN"
	MsgTypeExternalOut MsgType = "EXTERNAL_OUT"
)

type AnyMessage interface {
	Payload() *cell.Cell
	SenderAddr() *address.Address
	DestAddr() *address.Address
}

type Message struct {
	MsgType MsgType
	Msg     AnyMessage
}

// InternalMessage is an int_msg_info$0 message, sent between contracts
// on chain and carrying value.
type InternalMessage struct {
	IHRDisabled     bool
	Bounce          bool
	Bounced         bool
	SrcAddr         *address.Address
	DstAddr         *address.Address
	Amount          Coins
	ExtraCurrencies *cell.Dictionary
	IHRFee          Coins
	FwdFee          Coins
	CreatedLT       uint64
	CreatedAt       uint32

	StateInit *StateInit
	Body      *cell.Cell
}

// ExternalMessage is an ext_in_msg_info$10 message, how a signed wallet
// request enters the chain from outside.
type ExternalMessage struct {
	SrcAddr   *address.Address
	DstAddr   *address.Address
	ImportFee Coins

	StateInit *StateInit
	Body      *cell.Cell
}

type ExternalMessageOut struct {
	SrcAddr   *address.Address
	DstAddr   *address.Address
	CreatedLT uint64
	CreatedAt uint32

	StateInit *StateInit
	Body      *cell.Cell
}

func (m *InternalMessage) Payload() *cell.Cell {
	return m.Body
}

func (m *InternalMessage) SenderAddr() *address.Address {
	return m.SrcAddr
}

func (m *InternalMessage) DestAddr() *address.Address {
	return m.DstAddr
}

// Comment returns the text comment when body is a plain comment payload.
func (m *InternalMessage) Comment() string {
	if m.Body != nil {
		l := m.Body.BeginParse()
		if val, err := l.LoadUInt(32); err == nil && val == 0 {
			str, _ := l.LoadStringSnake()
			return str
		}
	}
	return ""
}

func (m *ExternalMessage) Payload() *cell.Cell {
	return m.Body
}

func (m *ExternalMessage) SenderAddr() *address.Address {
	return m.SrcAddr
}

func (m *ExternalMessage) DestAddr() *address.Address {
	return m.DstAddr
}

func (m *ExternalMessageOut) Payload() *cell.Cell {
	return m.Body
}

func (m *ExternalMessageOut) SenderAddr() *address.Address {
	return m.SrcAddr
}

func (m *ExternalMessageOut) DestAddr() *address.Address {
	return m.DstAddr
}

func (m *Message) LoadFromCell(loader *cell.Slice) error {
	dup := loader.Copy()

	isExternal, err := dup.LoadBoolBit()
	if err != nil {
		return fmt.Errorf("failed to load external flag: %w", err)
	}

	switch isExternal {
	case false:
		var intMsg InternalMessage
		if err = intMsg.LoadFromCell(loader); err != nil {
			return fmt.Errorf("failed to parse internal message: %w", err)
		}

		m.Msg = &intMsg
		m.MsgType = MsgTypeInternal
		return nil
	case true:
		isOut, err := dup.LoadBoolBit()
		if err != nil {
			return fmt.Errorf("failed to load external in/out flag: %w", err)
		}

		switch isOut {
		case true:
			var extMsg ExternalMessageOut
			if err = extMsg.LoadFromCell(loader); err != nil {
				return fmt.Errorf("failed to parse external out message: %w", err)
			}

			m.Msg = &extMsg
			m.MsgType = MsgTypeExternalOut
			return nil
		case false:
			var extMsg ExternalMessage
			if err = extMsg.LoadFromCell(loader); err != nil {
				return fmt.Errorf("failed to parse external in message: %w", err)
			}

			m.Msg = &extMsg
			m.MsgType = MsgTypeExternalIn
			return nil
		}
	}

	return errors.New("unknown message type")
}

func (m *Message) AsInternal() *InternalMessage {
	return m.Msg.(*InternalMessage)
}

func (m *Message) AsExternalIn() *ExternalMessage {
	return m.Msg.(*ExternalMessage)
}

func (m *Message) AsExternalOut() *ExternalMessageOut {
	return m.Msg.(*ExternalMessageOut)
}

func (m *Message) ToCell() (*cell.Cell, error) {
	switch m.MsgType {
	case MsgTypeInternal:
		return m.AsInternal().ToCell()
	case MsgTypeExternalIn:
		return m.AsExternalIn().ToCell()
	case MsgTypeExternalOut:
		return m.AsExternalOut().ToCell()
	default:
		return nil, errors.New("unknown message type")
	}
}

func appendInitStateAndBody(b *cell.Builder, stateInit *StateInit, body *cell.Cell) error {
	var err error
	if b.BitsLeft() < 3 {
		return fmt.Errorf("not enough storage to serialize state init and body")
	}

	b.MustStoreBoolBit(stateInit != nil)
	if stateInit != nil {
		stateCell, err := stateInit.ToCell()
		if err != nil {
			return fmt.Errorf("failed to serialize state init: %w", err)
		}

		if int(stateCell.BitsSize()) > int(b.BitsLeft())-2 || int(stateCell.RefsNum()) > int(b.RefsLeft())-1 {
			b.MustStoreBoolBit(true) // state as ref
			err = b.StoreRef(stateCell)
		} else {
			b.MustStoreBoolBit(false) // state as slice
			err = b.StoreBuilder(stateCell.ToBuilder())
		}
		if err != nil {
			return fmt.Errorf("failed to store message state init: %w", err)
		}
	}

	if body != nil {
		if int(body.BitsSize()) > int(b.BitsLeft())-1 || int(body.RefsNum()) > b.RefsLeft() {
			b.MustStoreBoolBit(true) // body as ref
			err = b.StoreRef(body)
		} else {
			b.MustStoreBoolBit(false) // body as slice
			err = b.StoreBuilder(body.ToBuilder())
		}
		if err != nil {
			return fmt.Errorf("failed to store message body: %w", err)
		}
	} else {
		b.MustStoreBoolBit(false)
	}

	return nil
}

func loadInitStateAndBody(loader *cell.Slice) (*StateInit, *cell.Cell, error) {
	var init *StateInit

	hasInit, err := loader.LoadBoolBit()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load state init bit: %w", err)
	}

	if hasInit {
		initAsRef, err := loader.LoadBoolBit()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load state init storage bit: %w", err)
		}

		initSlice := loader
		if initAsRef {
			if initSlice, err = loader.LoadRef(); err != nil {
				return nil, nil, fmt.Errorf("failed to load state init ref: %w", err)
			}
		}

		init = &StateInit{}
		if err = init.LoadFromCell(initSlice); err != nil {
			return nil, nil, fmt.Errorf("failed to parse state init: %w", err)
		}
	}

	bodyAsRef, err := loader.LoadBoolBit()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load body storage bit: %w", err)
	}

	var body *cell.Cell
	if bodyAsRef {
		if body, err = loader.LoadRefCell(); err != nil {
			return nil, nil, fmt.Errorf("failed to load body ref: %w", err)
		}
	} else {
		if body, err = loader.ToCell(); err != nil {
			return nil, nil, fmt.Errorf("failed to load inline body: %w", err)
		}
	}

	return init, body, nil
}

func (m *InternalMessage) LoadFromCell(loader *cell.Slice) error {
	tag, err := loader.LoadUInt(1)
	if err != nil {
		return fmt.Errorf("failed to load tag: %w", err)
	}
	if tag != 0 {
		return errors.New("not an internal message")
	}

	if m.IHRDisabled, err = loader.LoadBoolBit(); err != nil {
		return fmt.Errorf("failed to load ihr disabled bit: %w", err)
	}
	if m.Bounce, err = loader.LoadBoolBit(); err != nil {
		return fmt.Errorf("failed to load bounce bit: %w", err)
	}
	if m.Bounced, err = loader.LoadBoolBit(); err != nil {
		return fmt.Errorf("failed to load bounced bit: %w", err)
	}
	if m.SrcAddr, err = loader.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load src addr: %w", err)
	}
	if m.DstAddr, err = loader.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load dst addr: %w", err)
	}
	if err = m.Amount.LoadFromCell(loader); err != nil {
		return fmt.Errorf("failed to load amount: %w", err)
	}
	if m.ExtraCurrencies, err = loader.LoadDict(32); err != nil {
		return fmt.Errorf("failed to load extra currencies: %w", err)
	}
	if err = m.IHRFee.LoadFromCell(loader); err != nil {
		return fmt.Errorf("failed to load ihr fee: %w", err)
	}
	if err = m.FwdFee.LoadFromCell(loader); err != nil {
		return fmt.Errorf("failed to load fwd fee: %w", err)
	}
	if m.CreatedLT, err = loader.LoadUInt(64); err != nil {
		return fmt.Errorf("failed to load created lt: %w", err)
	}

	createdAt, err := loader.LoadUInt(32)
	if err != nil {
		return fmt.Errorf("failed to load created at: %w", err)
	}
	m.CreatedAt = uint32(createdAt)

	if m.StateInit, m.Body, err = loadInitStateAndBody(loader); err != nil {
		return err
	}

	return nil
}

func (m *InternalMessage) ToCell() (*cell.Cell, error) {
	b := cell.BeginCell()
	b.MustStoreUInt(0, 1) // identification of int msg
	b.MustStoreBoolBit(m.IHRDisabled)
	b.MustStoreBoolBit(m.Bounce)
	b.MustStoreBoolBit(m.Bounced)
	b.MustStoreAddr(m.SrcAddr)
	b.MustStoreAddr(m.DstAddr)
	b.MustStoreBigCoins(m.Amount.Nano())

	b.MustStoreDict(m.ExtraCurrencies)

	b.MustStoreBigCoins(m.IHRFee.Nano())
	b.MustStoreBigCoins(m.FwdFee.Nano())

	b.MustStoreUInt(m.CreatedLT, 64)
	b.MustStoreUInt(uint64(m.CreatedAt), 32)

	if err := appendInitStateAndBody(b, m.StateInit, m.Body); err != nil {
		return nil, err
	}

	return b.EndCell(), nil
}

func (m *InternalMessage) Dump() string {
	return fmt.Sprintf("Amount %s TON, Created at: %d, Created lt %d\nBounce: %t, Bounced %t, IHRDisabled %t\nSrcAddr: %s\nDstAddr: %s\nPayload: %s",
		m.Amount.String(), m.CreatedAt, m.CreatedLT, m.Bounce, m.Bounced, m.IHRDisabled, m.SrcAddr, m.DstAddr, m.Body.Dump())
}

func (m *ExternalMessage) LoadFromCell(loader *cell.Slice) error {
	tag, err := loader.LoadUInt(2)
	if err != nil {
		return fmt.Errorf("failed to load tag: %w", err)
	}
	if tag != 0b10 {
		return errors.New("not an external in message")
	}

	if m.SrcAddr, err = loader.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load src addr: %w", err)
	}
	if m.DstAddr, err = loader.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load dst addr: %w", err)
	}
	if err = m.ImportFee.LoadFromCell(loader); err != nil {
		return fmt.Errorf("failed to load import fee: %w", err)
	}

	if m.StateInit, m.Body, err = loadInitStateAndBody(loader); err != nil {
		return err
	}

	return nil
}

func (m *ExternalMessage) ToCell() (*cell.Cell, error) {
	builder := cell.BeginCell().MustStoreUInt(0b10, 2).
		MustStoreAddr(m.SrcAddr).
		MustStoreAddr(m.DstAddr).
		MustStoreBigCoins(m.ImportFee.Nano())

	if err := appendInitStateAndBody(builder, m.StateInit, m.Body); err != nil {
		return nil, err
	}

	return builder.EndCell(), nil
}

func (m *ExternalMessageOut) LoadFromCell(loader *cell.Slice) error {
	tag, err := loader.LoadUInt(2)
	if err != nil {
		return fmt.Errorf("failed to load tag: %w", err)
	}
	if tag != 0b11 {
		return errors.New("not an external out message")
	}

	if m.SrcAddr, err = loader.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load src addr: %w", err)
	}
	if m.DstAddr, err = loader.LoadAddr(); err != nil {
		return fmt.Errorf("failed to load dst addr: %w", err)
	}
	if m.CreatedLT, err = loader.LoadUInt(64); err != nil {
		return fmt.Errorf("failed to load created lt: %w", err)
	}

	createdAt, err := loader.LoadUInt(32)
	if err != nil {
		return fmt.Errorf("failed to load created at: %w", err)
	}
	m.CreatedAt = uint32(createdAt)

	if m.StateInit, m.Body, err = loadInitStateAndBody(loader); err != nil {
		return err
	}

	return nil
}

func (m *ExternalMessageOut) ToCell() (*cell.Cell, error) {
	builder := cell.BeginCell().MustStoreUInt(0b11, 2).
		MustStoreAddr(m.SrcAddr).
		MustStoreAddr(m.DstAddr).
		MustStoreUInt(m.CreatedLT, 64).
		MustStoreUInt(uint64(m.CreatedAt), 32)

	if err := appendInitStateAndBody(builder, m.StateInit, m.Body); err != nil {
		return nil, err
	}

	return builder.EndCell(), nil
}
