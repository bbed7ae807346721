package cell

import (
	"encoding/binary"
	"math/big"

	"github.com/welaskez/tonutils/address"
)

// Builder is the only mutable staging form of a cell,
// finalized with EndCell.
type Builder struct {
	bitsSz uint
	data   []byte

	refs []*Cell
}

func BeginCell() *Builder {
	return &Builder{}
}

func (b *Builder) MustStoreCoins(value uint64) *Builder {
	err := b.StoreCoins(value)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreCoins(value uint64) error {
	return b.StoreBigCoins(new(big.Int).SetUint64(value))
}

func (b *Builder) MustStoreBigCoins(value *big.Int) *Builder {
	err := b.StoreBigCoins(value)
	if err != nil {
		panic(err)
	}
	return b
}

// StoreBigCoins stores amount of nanocoins as VarUInteger 16,
// an economical variable-length encoding.
func (b *Builder) StoreBigCoins(value *big.Int) error {
	return b.StoreBigVarUInt(value, 16)
}

func (b *Builder) MustStoreVarUInt(value uint64, sz uint) *Builder {
	err := b.StoreVarUInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreVarUInt(value uint64, sz uint) error {
	return b.StoreBigVarUInt(new(big.Int).SetUint64(value), sz)
}

func (b *Builder) MustStoreBigVarUInt(value *big.Int, sz uint) *Builder {
	err := b.StoreBigVarUInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBigVarUInt(value *big.Int, sz uint) error {
	if value.Sign() < 0 {
		return ErrNegative
	}

	ln := uint((value.BitLen() + 7) >> 3)
	if ln >= sz {
		return ErrTooBigValue
	}

	lnBits := uint(big.NewInt(int64(sz - 1)).BitLen())
	if b.bitsSz+lnBits+(ln*8) > 1023 {
		return ErrNotFit1023
	}

	if err := b.StoreUInt(uint64(ln), lnBits); err != nil {
		return err
	}
	return b.StoreBigUInt(value, ln*8)
}

func (b *Builder) MustStoreUInt(value uint64, sz uint) *Builder {
	err := b.StoreUInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreUInt(value uint64, sz uint) error {
	if sz > 64 {
		return b.StoreBigUInt(new(big.Int).SetUint64(value), sz)
	}

	if sz < 64 && value >= 1<<sz {
		return ErrTooBigValue
	}

	value <<= 64 - sz
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)

	return b.StoreSlice(buf, sz)
}

func (b *Builder) MustStoreInt(value int64, sz uint) *Builder {
	err := b.StoreInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreInt(value int64, sz uint) error {
	return b.StoreBigInt(new(big.Int).SetInt64(value), sz)
}

func (b *Builder) MustStoreBoolBit(value bool) *Builder {
	err := b.StoreBoolBit(value)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBoolBit(value bool) error {
	var i uint64
	if value {
		i = 1
	}
	return b.StoreUInt(i, 1)
}

func (b *Builder) MustStoreBigUInt(value *big.Int, sz uint) *Builder {
	err := b.StoreBigUInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBigUInt(value *big.Int, sz uint) error {
	if value.BitLen() > 256 {
		return ErrTooBigValue
	}

	if value.Sign() == -1 {
		return ErrNegative
	}

	if sz > 256 {
		return ErrTooBigSize
	}

	if uint(value.BitLen()) > sz {
		return ErrTooBigValue
	}

	return b.storeBig(value, sz)
}

func (b *Builder) MustStoreBigInt(value *big.Int, sz uint) *Builder {
	err := b.StoreBigInt(value, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBigInt(value *big.Int, sz uint) error {
	if value.BitLen() > 256 {
		return ErrTooBigValue
	}

	if sz > 257 {
		return ErrTooBigSize
	}

	if value.Sign() >= 0 && uint(value.BitLen()) > sz {
		return ErrTooBigValue
	}
	if value.Sign() < 0 && uint(new(big.Int).Not(value).BitLen()) >= sz {
		return ErrTooBigValue
	}

	one := big.NewInt(1)

	if value.Sign() == -1 {
		// two's complement of given size
		i := new(big.Int).Lsh(one, sz)
		i = i.Sub(i, one)

		value = new(big.Int).Add(value, one)
		value = value.Add(value, i)
	}

	return b.storeBig(value, sz)
}

func (b *Builder) storeBig(value *big.Int, sz uint) error {
	bytes := value.Bytes()

	partByte := 0
	if sz%8 != 0 {
		partByte = 1
	}
	bytesToUse := (int(sz) / 8) + partByte

	if len(bytes) < bytesToUse {
		// add leading zeroes to fit requested size
		bytes = append(make([]byte, bytesToUse-len(bytes)), bytes...)
	}

	// align value to the left side of bytes when size is not a whole byte
	if offset := sz % 8; offset > 0 {
		add := byte(0)
		for i := len(bytes) - 1; i >= 0; i-- {
			toMove := bytes[i] & (0xFF << offset)
			bytes[i] <<= 8 - offset
			bytes[i] += add
			add = toMove >> offset
		}
	}

	return b.StoreSlice(bytes, sz)
}

func (b *Builder) MustStoreAddr(addr *address.Address) *Builder {
	err := b.StoreAddr(addr)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreAddr(addr *address.Address) error {
	if addr == nil || addr.IsAddrNone() {
		// addr_none$00
		return b.StoreUInt(0, 2)
	}

	switch addr.Type() {
	case address.ExtAddress:
		if b.bitsSz+2+9+addr.BitsLen() > 1023 {
			return ErrNotFit1023
		}

		// addr_extern$01
		if err := b.StoreUInt(0b01, 2); err != nil {
			return err
		}
		if err := b.StoreUInt(uint64(addr.BitsLen()), 9); err != nil {
			return err
		}
		return b.StoreSlice(addr.Data(), addr.BitsLen())
	case address.StdAddress:
		if b.bitsSz+2+1+8+256 > 1023 {
			return ErrNotFit1023
		}

		// addr_std$10, no anycast
		if err := b.StoreUInt(0b100, 3); err != nil {
			return err
		}
		if err := b.StoreUInt(uint64(uint8(addr.Workchain())), 8); err != nil {
			return err
		}
		return b.StoreSlice(addr.Data(), 256)
	case address.VarAddress:
		if b.bitsSz+2+1+9+32+addr.BitsLen() > 1023 {
			return ErrNotFit1023
		}

		// addr_var$11, no anycast
		if err := b.StoreUInt(0b110, 3); err != nil {
			return err
		}
		if err := b.StoreUInt(uint64(addr.BitsLen()), 9); err != nil {
			return err
		}
		if err := b.StoreInt(int64(addr.Workchain()), 32); err != nil {
			return err
		}
		return b.StoreSlice(addr.Data(), addr.BitsLen())
	}

	return ErrAddressTypeNotSupported
}

func (b *Builder) MustStoreStringSnake(str string) *Builder {
	err := b.StoreStringSnake(str)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) MustStoreBinarySnake(data []byte) *Builder {
	err := b.StoreBinarySnake(data)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreStringSnake(str string) error {
	return b.StoreBinarySnake([]byte(str))
}

// StoreBinarySnake stores data splitting it into a chain of cells
// when it does not fit into a single one.
func (b *Builder) StoreBinarySnake(data []byte) error {
	var f func(space int) (*Builder, error)
	f = func(space int) (*Builder, error) {
		if len(data) < space {
			space = len(data)
		}

		c := BeginCell()
		if err := c.StoreSlice(data, uint(space)*8); err != nil {
			return nil, err
		}

		data = data[space:]

		if len(data) > 0 {
			ref, err := f(127)
			if err != nil {
				return nil, err
			}

			if err = c.StoreRef(ref.EndCell()); err != nil {
				return nil, err
			}
		}

		return c, nil
	}

	snake, err := f(int(b.BitsLeft() / 8))
	if err != nil {
		return err
	}

	return b.StoreBuilder(snake)
}

func (b *Builder) MustStoreDict(dict *Dictionary) *Builder {
	err := b.StoreDict(dict)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreDict(dict *Dictionary) error {
	if dict == nil {
		return b.StoreMaybeRef(nil)
	}

	c, err := dict.ToCell()
	if err != nil {
		return err
	}
	return b.StoreMaybeRef(c)
}

func (b *Builder) MustStoreMaybeRef(ref *Cell) *Builder {
	err := b.StoreMaybeRef(ref)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreMaybeRef(ref *Cell) error {
	if ref == nil {
		return b.StoreUInt(0, 1)
	}

	// early checks to do 2 stores atomically
	if len(b.refs) >= 4 {
		return ErrTooMuchRefs
	}
	if b.bitsSz+1 > 1023 {
		return ErrNotFit1023
	}

	b.MustStoreUInt(1, 1).MustStoreRef(ref)
	return nil
}

func (b *Builder) MustStoreRef(ref *Cell) *Builder {
	err := b.StoreRef(ref)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreRef(ref *Cell) error {
	if len(b.refs) >= 4 {
		return ErrTooMuchRefs
	}

	if ref == nil {
		return ErrRefCannotBeNil
	}

	b.refs = append(b.refs, ref)

	return nil
}

func (b *Builder) MustStoreSlice(bytes []byte, sz uint) *Builder {
	err := b.StoreSlice(bytes, sz)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreSlice(bytes []byte, sz uint) error {
	if sz == 0 {
		return nil
	}

	oneMore := uint(0)
	if sz%8 > 0 {
		oneMore = 1
	}

	if uint(len(bytes)) < sz/8+oneMore {
		return ErrSmallSlice
	}

	if b.bitsSz+sz > 1023 {
		return ErrNotFit1023
	}

	leftSz := sz
	unusedBits := 8 - (b.bitsSz % 8)

	offset := 0
	for leftSz > 0 {
		bits := uint(8)
		if leftSz < 8 {
			bits = leftSz
		}
		leftSz -= bits

		// fill the partial byte first when previous store did not end on
		// a byte boundary
		if unusedBits != 8 {
			b.data[len(b.data)-1] += bytes[offset] >> (8 - unusedBits)
			if bits > unusedBits {
				b.data = append(b.data, bytes[offset]<<unusedBits)
			}
			offset++
			continue
		}

		// clear unused part of byte
		b.data = append(b.data, bytes[offset]&(0xFF<<(8-bits)))
		offset++
	}

	b.bitsSz += sz

	return nil
}

func (b *Builder) MustStoreBuilder(builder *Builder) *Builder {
	err := b.StoreBuilder(builder)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) StoreBuilder(builder *Builder) error {
	if len(b.refs)+len(builder.refs) > 4 {
		return ErrTooMuchRefs
	}

	if b.bitsSz+builder.bitsSz > 1023 {
		return ErrNotFit1023
	}

	b.refs = append(b.refs, builder.refs...)
	b.MustStoreSlice(builder.data, builder.bitsSz)

	return nil
}

func (b *Builder) RefsUsed() int {
	return len(b.refs)
}

func (b *Builder) BitsUsed() uint {
	return b.bitsSz
}

func (b *Builder) BitsLeft() uint {
	return 1023 - b.bitsSz
}

func (b *Builder) RefsLeft() int {
	return 4 - len(b.refs)
}

func (b *Builder) Copy() *Builder {
	data := append([]byte{}, b.data...)

	return &Builder{
		bitsSz: b.bitsSz,
		data:   data,
		refs:   append([]*Cell{}, b.refs...),
	}
}

// EndCell finalizes the builder to an immutable cell, computing content
// hashes. Panics with ErrTooDeepCell when resulting tree is deeper than 1023.
func (b *Builder) EndCell() *Cell {
	data := append([]byte{}, b.data...)

	c := &Cell{
		bitsSz: b.bitsSz,
		data:   data,
		refs:   append([]*Cell{}, b.refs...),
	}

	for _, ref := range c.refs {
		c.levelMask.Mask |= ref.levelMask.Mask
	}
	c.calculateHashes()

	return c
}
