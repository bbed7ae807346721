package cell

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
)

// Dictionary is the hashmap structure, a prefix tree with compressed
// edge labels keyed by fixed-size bit strings.
type Dictionary struct {
	storage map[string]*HashmapKV
	keySz   uint
}

type HashmapKV struct {
	Key   *Cell
	Value *Cell
}

func NewDict(keySz uint) *Dictionary {
	return &Dictionary{
		storage: map[string]*HashmapKV{},
		keySz:   keySz,
	}
}

func (c *Slice) LoadDict(keySz uint) (*Dictionary, error) {
	cl, err := c.LoadMaybeRefCell()
	if err != nil {
		return nil, fmt.Errorf("failed to load maybe ref for dict: %w", err)
	}

	d := NewDict(keySz)
	if cl == nil {
		return d, nil
	}

	if err = d.mapInner(keySz, keySz, cl.BeginParse(), BeginCell()); err != nil {
		return nil, err
	}

	return d, nil
}

func (c *Slice) MustLoadDict(keySz uint) *Dictionary {
	d, err := c.LoadDict(keySz)
	if err != nil {
		panic(err)
	}
	return d
}

// ToDict interprets the rest of the slice as a dict root node (no maybe bit).
func (c *Slice) ToDict(keySz uint) (*Dictionary, error) {
	d := NewDict(keySz)

	if err := d.mapInner(keySz, keySz, c, BeginCell()); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Dictionary) KeySize() uint {
	return d.keySz
}

func (d *Dictionary) Size() int {
	return len(d.storage)
}

func (d *Dictionary) IsEmpty() bool {
	return len(d.storage) == 0
}

func (d *Dictionary) Set(key, value *Cell) error {
	if key.BitsSize() != d.keySz {
		return fmt.Errorf("key size %d is not equal to dict key size %d", key.BitsSize(), d.keySz)
	}

	data, err := key.BeginParse().LoadSlice(d.keySz)
	if err != nil {
		return fmt.Errorf("failed to serialize key: %w", err)
	}

	id := hex.EncodeToString(data)
	if value == nil {
		delete(d.storage, id)
		return nil
	}

	d.storage[id] = &HashmapKV{
		Key:   key,
		Value: value,
	}
	return nil
}

func (d *Dictionary) SetIntKey(key *big.Int, value *Cell) error {
	k, err := intKeyCell(key, d.keySz)
	if err != nil {
		return err
	}
	return d.Set(k, value)
}

func (d *Dictionary) Delete(key *Cell) error {
	return d.Set(key, nil)
}

func (d *Dictionary) Get(key *Cell) *Cell {
	data, err := key.BeginParse().LoadSlice(d.keySz)
	if err != nil {
		return nil
	}

	v := d.storage[hex.EncodeToString(data)]
	if v == nil {
		return nil
	}

	return v.Value
}

func (d *Dictionary) GetByIntKey(key *big.Int) *Cell {
	k, err := intKeyCell(key, d.keySz)
	if err != nil {
		return nil
	}
	return d.Get(k)
}

func (d *Dictionary) All() []*HashmapKV {
	all := make([]*HashmapKV, 0, len(d.storage))
	for _, v := range d.storage {
		all = append(all, v)
	}

	return all
}

func intKeyCell(key *big.Int, sz uint) (*Cell, error) {
	b := BeginCell()
	if err := b.StoreBigInt(key, sz); err != nil {
		return nil, fmt.Errorf("failed to serialize int key: %w", err)
	}
	return b.EndCell(), nil
}

func (d *Dictionary) mapInner(keySz, leftKeySz uint, loader *Slice, keyPrefix *Builder) error {
	sz, keyPrefix, err := loadLabel(leftKeySz, loader, keyPrefix)
	if err != nil {
		return err
	}

	key := keyPrefix.EndCell().BeginParse()

	// until key size is not equal we go deeper
	if key.BitsLeft() < keySz {
		// 0 bit branch
		left, err := loader.LoadRef()
		if err != nil {
			return err
		}
		err = d.mapInner(keySz, leftKeySz-(1+sz), left, keyPrefix.Copy().MustStoreUInt(0, 1))
		if err != nil {
			return err
		}

		// 1 bit branch
		right, err := loader.LoadRef()
		if err != nil {
			return err
		}
		return d.mapInner(keySz, leftKeySz-(1+sz), right, keyPrefix.Copy().MustStoreUInt(1, 1))
	}

	keyCell := keyPrefix.EndCell()
	d.storage[hex.EncodeToString(keyCell.BeginParse().MustLoadSlice(keySz))] = &HashmapKV{
		Key:   keyCell,
		Value: loader.MustToCell(),
	}

	return nil
}

func loadLabel(sz uint, loader *Slice, key *Builder) (uint, *Builder, error) {
	first, err := loader.LoadUInt(1)
	if err != nil {
		return 0, nil, err
	}

	// hml_short$0
	if first == 0 {
		// unary length, ones terminated by zero
		ln := uint(0)
		for {
			bit, err := loader.LoadUInt(1)
			if err != nil {
				return 0, nil, err
			}

			if bit == 0 {
				break
			}
			ln++
		}

		keyBits, err := loader.LoadSlice(ln)
		if err != nil {
			return 0, nil, err
		}

		if err = key.StoreSlice(keyBits, ln); err != nil {
			return 0, nil, err
		}

		return ln, key, nil
	}

	second, err := loader.LoadUInt(1)
	if err != nil {
		return 0, nil, err
	}

	// hml_long$10
	if second == 0 {
		ln, err := loader.LoadUInt(lenBits(sz))
		if err != nil {
			return 0, nil, err
		}

		keyBits, err := loader.LoadSlice(uint(ln))
		if err != nil {
			return 0, nil, err
		}

		if err = key.StoreSlice(keyBits, uint(ln)); err != nil {
			return 0, nil, err
		}

		return uint(ln), key, nil
	}

	// hml_same$11
	bitType, err := loader.LoadUInt(1)
	if err != nil {
		return 0, nil, err
	}

	ln, err := loader.LoadUInt(lenBits(sz))
	if err != nil {
		return 0, nil, err
	}

	var toStore []byte
	if bitType == 1 {
		toStore = bytes.Repeat([]byte{0xFF}, 1+(int(ln)/8))
	} else {
		toStore = bytes.Repeat([]byte{0x00}, 1+(int(ln)/8))
	}

	if err = key.StoreSlice(toStore, uint(ln)); err != nil {
		return 0, nil, err
	}

	return uint(ln), key, nil
}

// lenBits is the width of the length field, ceil(log2(sz+1)).
func lenBits(sz uint) uint {
	return uint(big.NewInt(int64(sz)).BitLen())
}

func (d *Dictionary) MustToCell() *Cell {
	c, err := d.ToCell()
	if err != nil {
		panic(err)
	}
	return c
}

// ToCell serializes the dict to its root cell, nil when dict is empty.
func (d *Dictionary) ToCell() (*Cell, error) {
	if len(d.storage) == 0 {
		return nil, nil
	}

	type kv struct {
		key   string // bits as '0'/'1' chars
		value *Cell
	}

	list := make([]kv, 0, len(d.storage))
	for _, v := range d.storage {
		bits := v.Key.BeginParse().MustLoadSlice(d.keySz)

		var sk []byte
		for i := uint(0); i < d.keySz; i++ {
			if bits[i/8]&(0x80>>(i%8)) > 0 {
				sk = append(sk, '1')
			} else {
				sk = append(sk, '0')
			}
		}
		list = append(list, kv{key: string(sk), value: v.Value})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].key < list[j].key
	})

	var serialize func(keys []kv, from, left uint) (*Cell, error)
	serialize = func(keys []kv, from, left uint) (*Cell, error) {
		// longest common prefix of remaining key parts
		label := keys[0].key[from:]
		for _, k := range keys[1:] {
			part := k.key[from:]
			i := 0
			for i < len(label) && i < len(part) && label[i] == part[i] {
				i++
			}
			label = label[:i]
		}

		b := BeginCell()
		if err := storeLabel(b, label, left); err != nil {
			return nil, fmt.Errorf("failed to store label: %w", err)
		}

		if uint(len(label)) == left {
			// leaf, value is stored inline
			if err := b.StoreBuilder(keys[0].value.ToBuilder()); err != nil {
				return nil, fmt.Errorf("failed to store leaf value: %w", err)
			}
			return b.EndCell(), nil
		}

		split := from + uint(len(label))
		var zeros, ones []kv
		for _, k := range keys {
			if k.key[split] == '0' {
				zeros = append(zeros, k)
			} else {
				ones = append(ones, k)
			}
		}

		childLeft := left - uint(len(label)) - 1
		zc, err := serialize(zeros, split+1, childLeft)
		if err != nil {
			return nil, err
		}
		oc, err := serialize(ones, split+1, childLeft)
		if err != nil {
			return nil, err
		}

		if err = b.StoreRef(zc); err != nil {
			return nil, err
		}
		if err = b.StoreRef(oc); err != nil {
			return nil, err
		}

		return b.EndCell(), nil
	}

	return serialize(list, 0, d.keySz)
}

// storeLabel writes edge label choosing the shortest of the
// hml_short/hml_long/hml_same encodings.
func storeLabel(b *Builder, label string, sz uint) error {
	n := uint(len(label))

	same := n > 0
	for i := 1; i < len(label); i++ {
		if label[i] != label[0] {
			same = false
			break
		}
	}

	costShort := 1 + (n + 1) + n
	costLong := 2 + lenBits(sz) + n
	costSame := uint(1 << 30)
	if same {
		costSame = 3 + lenBits(sz)
	}

	switch {
	case costSame < costShort && costSame < costLong:
		// hml_same$11
		if err := b.StoreUInt(0b11, 2); err != nil {
			return err
		}
		bit := uint64(0)
		if label[0] == '1' {
			bit = 1
		}
		if err := b.StoreUInt(bit, 1); err != nil {
			return err
		}
		return b.StoreUInt(uint64(n), lenBits(sz))
	case costShort <= costLong:
		// hml_short$0, unary length
		if err := b.StoreUInt(0, 1); err != nil {
			return err
		}
		for i := uint(0); i < n; i++ {
			if err := b.StoreUInt(1, 1); err != nil {
				return err
			}
		}
		if err := b.StoreUInt(0, 1); err != nil {
			return err
		}
		return storeLabelBits(b, label)
	default:
		// hml_long$10
		if err := b.StoreUInt(0b10, 2); err != nil {
			return err
		}
		if err := b.StoreUInt(uint64(n), lenBits(sz)); err != nil {
			return err
		}
		return storeLabelBits(b, label)
	}
}

func storeLabelBits(b *Builder, label string) error {
	for i := 0; i < len(label); i++ {
		bit := uint64(0)
		if label[i] == '1' {
			bit = 1
		}
		if err := b.StoreUInt(bit, 1); err != nil {
			return err
		}
	}
	return nil
}
