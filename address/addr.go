package address

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigurn/crc16"
)

type AddrType int

const (
	NoneAddress AddrType = 0
	ExtAddress  AddrType = 1
	StdAddress  AddrType = 2
	VarAddress  AddrType = 3
)

const (
	tagBounceable    = 0x11
	tagNonBounceable = 0x51
	flagTestnet      = 0x80
)

var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrWrongChecksum  = errors.New("invalid address checksum")
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Address is a workchain + account id pair. For the std type the account id
// is the 256-bit hash of the contract's initial state.
type Address struct {
	flags     flags
	addrType  AddrType
	workchain int32
	bitsLen   uint
	data      []byte
}

type flags struct {
	bounceable bool
	testnet    bool
}

func NewAddress(flagsByte byte, workchain byte, data []byte) *Address {
	return &Address{
		flags:     parseFlags(flagsByte),
		addrType:  StdAddress,
		workchain: int32(int8(workchain)),
		bitsLen:   256,
		data:      data,
	}
}

func NewAddressNone() *Address {
	return &Address{
		addrType: NoneAddress,
	}
}

func NewAddressExt(flagsByte byte, bitsLen uint, data []byte) *Address {
	return &Address{
		flags:    parseFlags(flagsByte),
		addrType: ExtAddress,
		bitsLen:  bitsLen,
		data:     data,
	}
}

func NewAddressVar(flagsByte byte, workchain int32, bitsLen uint, data []byte) *Address {
	return &Address{
		flags:     parseFlags(flagsByte),
		addrType:  VarAddress,
		workchain: workchain,
		bitsLen:   bitsLen,
		data:      data,
	}
}

func parseFlags(data byte) flags {
	return flags{
		bounceable: data&0x40 == 0, // tag 0x11 bounceable, 0x51 not
		testnet:    data&flagTestnet != 0,
	}
}

func MustParseAddr(addr string) *Address {
	a, err := ParseAddr(addr)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAddr parses user-friendly form, base64 std or url-safe,
// 36 bytes before encoding: tag, workchain, 32 byte account id, crc16.
func ParseAddr(addr string) (*Address, error) {
	if len(addr) != 48 {
		return nil, fmt.Errorf("%w: incorrect length %d", ErrInvalidAddress, len(addr))
	}

	var data []byte
	var err error
	if strings.ContainsAny(addr, "-_") {
		data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(addr, "="))
	} else {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(addr, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err.Error())
	}

	if len(data) != 36 {
		return nil, fmt.Errorf("%w: incorrect decoded length %d", ErrInvalidAddress, len(data))
	}

	checksum := binary.BigEndian.Uint16(data[34:])
	if crc16.Checksum(data[:34], crcTable) != checksum {
		return nil, ErrWrongChecksum
	}

	tag := data[0]
	switch tag &^ flagTestnet {
	case tagBounceable, tagNonBounceable:
	default:
		return nil, fmt.Errorf("%w: unknown tag 0x%02x", ErrInvalidAddress, tag)
	}

	return NewAddress(tag, data[1], data[2:34]), nil
}

func MustParseRawAddr(addr string) *Address {
	a, err := ParseRawAddr(addr)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseRawAddr parses "workchain:hex" form, e.g. "0:aabb...".
func ParseRawAddr(addr string) (*Address, error) {
	idx := strings.IndexByte(addr, ':')
	if idx < 0 {
		return nil, fmt.Errorf("%w: no workchain separator", ErrInvalidAddress)
	}

	wc, err := strconv.ParseInt(addr[:idx], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad workchain: %s", ErrInvalidAddress, err.Error())
	}

	data, err := hex.DecodeString(addr[idx+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: bad account id: %s", ErrInvalidAddress, err.Error())
	}
	if len(data) != 32 {
		return nil, fmt.Errorf("%w: incorrect account id length %d", ErrInvalidAddress, len(data))
	}

	return NewAddress(0, byte(wc), data), nil
}

func (a *Address) IsAddrNone() bool {
	return a == nil || a.addrType == NoneAddress
}

func (a *Address) Type() AddrType {
	return a.addrType
}

func (a *Address) Workchain() int32 {
	return a.workchain
}

func (a *Address) Data() []byte {
	return a.data
}

func (a *Address) BitsLen() uint {
	return a.bitsLen
}

func (a *Address) IsBounceable() bool {
	return a.flags.bounceable
}

func (a *Address) IsTestnetOnly() bool {
	return a.flags.testnet
}

// Bounce returns a copy with requested bounce flag, address itself is not modified.
func (a *Address) Bounce(bounce bool) *Address {
	x := a.Copy()
	x.flags.bounceable = bounce
	return x
}

// Testnet returns a copy with requested testnet-only flag.
func (a *Address) Testnet(testnet bool) *Address {
	x := a.Copy()
	x.flags.testnet = testnet
	return x
}

func (a *Address) Copy() *Address {
	return &Address{
		flags:     a.flags,
		addrType:  a.addrType,
		workchain: a.workchain,
		bitsLen:   a.bitsLen,
		data:      append([]byte{}, a.data...),
	}
}

func (a *Address) flagsByte() byte {
	tag := byte(tagNonBounceable)
	if a.flags.bounceable {
		tag = tagBounceable
	}
	if a.flags.testnet {
		tag |= flagTestnet
	}
	return tag
}

// String returns user-friendly url-safe base64 form.
func (a *Address) String() string {
	if a.IsAddrNone() {
		return "NONE"
	}
	if a.addrType != StdAddress {
		return a.StringRaw()
	}

	buf := make([]byte, 36)
	buf[0] = a.flagsByte()
	buf[1] = byte(a.workchain)
	copy(buf[2:34], a.data)
	binary.BigEndian.PutUint16(buf[34:], crc16.Checksum(buf[:34], crcTable))

	return base64.RawURLEncoding.EncodeToString(buf)
}

// StringStd is same as String but with std base64 alphabet.
func (a *Address) StringStd() string {
	s := a.String()
	s = strings.ReplaceAll(s, "-", "+")
	return strings.ReplaceAll(s, "_", "/")
}

func (a *Address) StringRaw() string {
	return fmt.Sprintf("%d:%s", a.workchain, hex.EncodeToString(a.data))
}

func (a *Address) Dump() string {
	return fmt.Sprintf("human-readable: %s raw: %s bounceable: %t testnet: %t",
		a.String(), a.StringRaw(), a.flags.bounceable, a.flags.testnet)
}

func (a *Address) Equals(b *Address) bool {
	if a.IsAddrNone() || b.IsAddrNone() {
		return a.IsAddrNone() && b.IsAddrNone()
	}
	if a.workchain != b.workchain || len(a.data) != len(b.data) {
		return false
	}
	for i := range a.data {
		if a.data[i] != b.data[i] {
			return false
		}
	}
	return true
}

func (a *Address) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.String())), nil
}

func (a *Address) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, err.Error())
	}

	var parsed *Address
	if strings.ContainsRune(str, ':') {
		parsed, err = ParseRawAddr(str)
	} else {
		parsed, err = ParseAddr(str)
	}
	if err != nil {
		return err
	}

	*a = *parsed
	return nil
}
