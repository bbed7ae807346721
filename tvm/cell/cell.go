package cell

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

const maxDepth = 1024

// Type of a cell, everything except ordinary is an exotic cell,
// their payloads carry network-defined proof structures.
type Type uint8

const (
	OrdinaryCellType     Type = 0xFF
	PrunedCellType       Type = 0x01
	LibraryCellType      Type = 0x02
	MerkleProofCellType  Type = 0x03
	MerkleUpdateCellType Type = 0x04
	UnknownCellType      Type = 0x00
)

// Cell is an immutable node of the bag-of-cells tree, up to 1023 data bits
// and up to 4 references to other cells. Content hashes and depths for each
// significant level are computed once on finalization and cached.
type Cell struct {
	special   bool
	levelMask LevelMask
	bitsSz    uint
	data      []byte

	hashes      []byte
	depthLevels []uint16

	refs []*Cell
}

func (c *Cell) copy() *Cell {
	data := append([]byte{}, c.data...)

	refs := make([]*Cell, len(c.refs))
	for i, ref := range c.refs {
		refs[i] = ref.copy()
	}

	x := &Cell{
		special:   c.special,
		levelMask: c.levelMask,
		bitsSz:    c.bitsSz,
		data:      data,
		refs:      refs,
	}
	x.calculateHashes()
	return x
}

func (c *Cell) BeginParse() *Slice {
	// copy data to not corrupt cell on read
	data := append([]byte{}, c.data...)

	return &Slice{
		special:   c.special,
		levelMask: c.levelMask,
		bitsSz:    c.bitsSz,
		data:      data,
		refs:      c.refs,
	}
}

func (c *Cell) ToBuilder() *Builder {
	data := append([]byte{}, c.data...)

	return &Builder{
		bitsSz: c.bitsSz,
		data:   data,
		refs:   c.refs,
	}
}

func (c *Cell) BitsSize() uint {
	return c.bitsSz
}

func (c *Cell) RefsNum() uint {
	return uint(len(c.refs))
}

func (c *Cell) MustPeekRef(i int) *Cell {
	return c.refs[i]
}

func (c *Cell) PeekRef(i int) (*Cell, error) {
	if i >= len(c.refs) {
		return nil, ErrNoMoreRefs
	}
	return c.refs[i], nil
}

func (c *Cell) IsSpecial() bool {
	return c.special
}

func (c *Cell) GetType() Type {
	if !c.special {
		return OrdinaryCellType
	}
	if c.bitsSz < 8 {
		return UnknownCellType
	}

	switch Type(c.data[0]) {
	case PrunedCellType:
		if c.bitsSz >= 288 {
			msk := LevelMask{c.data[1]}
			lvl := msk.GetLevel()
			if lvl > 0 && lvl <= 3 &&
				c.bitsSz >= 16+(256+16)*uint(msk.Apply(lvl-1).getHashIndex()+1) {
				return PrunedCellType
			}
		}
	case MerkleProofCellType:
		if len(c.refs) == 1 && c.bitsSz == 280 {
			return MerkleProofCellType
		}
	case MerkleUpdateCellType:
		if len(c.refs) == 2 && c.bitsSz == 552 {
			return MerkleUpdateCellType
		}
	case LibraryCellType:
		if c.bitsSz == 8+256 {
			return LibraryCellType
		}
	}
	return UnknownCellType
}

func (c *Cell) Dump(limitLength ...int) string {
	var lim = (1024 << 20) * 16
	if len(limitLength) > 0 {
		lim = limitLength[0]
	}
	return c.dump(0, false, lim)
}

func (c *Cell) DumpBits(limitLength ...int) string {
	var lim = (1024 << 20) * 16
	if len(limitLength) > 0 {
		lim = limitLength[0]
	}
	return c.dump(0, true, lim)
}

func (c *Cell) dump(deep int, bin bool, limitLength int) string {
	sz, data, _ := c.BeginParse().RestBits()

	var val string
	if bin {
		for _, n := range data {
			val += fmt.Sprintf("%08b", n)
		}
		if sz%8 != 0 {
			val = val[:uint(len(val))-(8-(sz%8))]
		}
	} else {
		val = strings.ToUpper(hex.EncodeToString(data))
		if sz%8 <= 4 && sz%8 > 0 {
			// fift hex tag for not full byte
			val = val[:len(val)-1] + "_"
		}
	}

	str := strings.Repeat("  ", deep) + fmt.Sprint(sz) + "[" + val + "]"
	if c.levelMask.GetLevel() > 0 {
		str += fmt.Sprintf("{%d}", c.levelMask.GetLevel())
	}
	if c.special {
		str += "*"
	}
	if len(c.refs) > 0 {
		str += " -> {"
		for i, ref := range c.refs {
			str += "\n" + ref.dump(deep+1, bin, limitLength)
			if i == len(c.refs)-1 {
				str += "\n"
			} else {
				str += ","
			}

			if len(str) > limitLength {
				break
			}
		}
		str += strings.Repeat("  ", deep)
		str += "}"
	}

	if len(str) > limitLength {
		str = str[:limitLength]
	}

	return str
}

// Hash returns content hash of the cell on a given level,
// when level is not passed - the highest one.
func (c *Cell) Hash(level ...int) []byte {
	if len(level) > 0 {
		return c.getHash(level[0])
	}
	return c.getHash(3)
}

func (c *Cell) Depth(level ...int) uint16 {
	if len(level) > 0 {
		return c.getDepth(level[0])
	}
	return c.getDepth(3)
}

func (c *Cell) Sign(key ed25519.PrivateKey) []byte {
	return ed25519.Sign(key, c.Hash())
}

func (c *Cell) Verify(key ed25519.PublicKey, signature []byte) bool {
	return ed25519.Verify(key, c.Hash(), signature)
}

func (c *Cell) getHash(level int) []byte {
	hashIndex := c.levelMask.Apply(level).getHashIndex()

	if c.GetType() == PrunedCellType {
		prunedHashIndex := c.levelMask.getHashIndex()
		if hashIndex != prunedHashIndex {
			// pruned branch carries hashes of the subtree it replaces
			return c.data[2+(hashIndex*32) : 2+((hashIndex+1)*32)]
		}
		hashIndex = 0
	}

	return c.hashes[hashIndex*32 : (hashIndex+1)*32]
}

func (c *Cell) getDepth(level int) uint16 {
	hashIndex := c.levelMask.Apply(level).getHashIndex()

	if c.GetType() == PrunedCellType {
		prunedHashIndex := c.levelMask.getHashIndex()
		if hashIndex != prunedHashIndex {
			off := 2 + 32*prunedHashIndex + hashIndex*2
			return binary.BigEndian.Uint16(c.data[off:])
		}
		hashIndex = 0
	}

	return c.depthLevels[hashIndex]
}

func (c *Cell) descriptors(lvl LevelMask) (byte, byte) {
	// calc size
	ceilBytes := c.bitsSz / 8
	if c.bitsSz%8 != 0 {
		ceilBytes++
	}
	ln := ceilBytes + c.bitsSz/8

	specBit := byte(0)
	if c.special {
		specBit = 8
	}

	return byte(len(c.refs)) + specBit + lvl.Mask*32, byte(ln)
}

// calculateHashes fills per-level hash and depth caches. Hash of a cell is
// sha256 over its descriptor bytes, padded payload (or lower-level hash for
// higher levels), then each child's depth and hash. Panics with
// ErrTooDeepCell when the tree exceeds the network depth limit.
func (c *Cell) calculateHashes() {
	totalHashCount := c.levelMask.getHashIndex() + 1
	c.hashes = make([]byte, 32*totalHashCount)
	c.depthLevels = make([]uint16, totalHashCount)

	hashCount := totalHashCount
	typ := c.GetType()
	if typ == PrunedCellType {
		hashCount = 1
	}

	hashIndexOffset := totalHashCount - hashCount
	hashIndex := 0
	level := c.levelMask.GetLevel()
	for levelIndex := 0; levelIndex <= level; levelIndex++ {
		if !c.levelMask.IsSignificant(levelIndex) {
			continue
		}

		if hashIndex < hashIndexOffset {
			hashIndex++
			continue
		}

		dsc := make([]byte, 2)
		dsc[0], dsc[1] = c.descriptors(c.levelMask.Apply(levelIndex))

		hash := sha256.New()
		hash.Write(dsc)

		if hashIndex == hashIndexOffset {
			if levelIndex != 0 && typ != PrunedCellType {
				panic("invalid cell")
			}

			data := c.BeginParse().MustLoadSlice(c.bitsSz)

			unusedBits := 8 - (c.bitsSz % 8)
			if unusedBits != 8 {
				// set bit at the end if not whole byte was used
				data[len(data)-1] += 1 << (unusedBits - 1)
			}
			hash.Write(data)
		} else {
			if levelIndex == 0 || typ == PrunedCellType {
				panic("invalid cell")
			}
			off := hashIndex - hashIndexOffset - 1
			hash.Write(c.hashes[off*32 : (off+1)*32])
		}

		var depth uint16
		for _, ref := range c.refs {
			var childDepth uint16
			if typ == MerkleProofCellType || typ == MerkleUpdateCellType {
				// merkle cells unwrap one level of their children
				childDepth = ref.getDepth(levelIndex + 1)
			} else {
				childDepth = ref.getDepth(levelIndex)
			}

			depthBytes := make([]byte, 2)
			binary.BigEndian.PutUint16(depthBytes, childDepth)
			hash.Write(depthBytes)

			if childDepth > depth {
				depth = childDepth
			}
		}

		if len(c.refs) > 0 {
			depth++
			if depth >= maxDepth {
				panic(ErrTooDeepCell)
			}
		}

		for _, ref := range c.refs {
			if typ == MerkleProofCellType || typ == MerkleUpdateCellType {
				hash.Write(ref.getHash(levelIndex + 1))
			} else {
				hash.Write(ref.getHash(levelIndex))
			}
		}

		off := hashIndex - hashIndexOffset
		c.depthLevels[off] = depth
		copy(c.hashes[off*32:(off+1)*32], hash.Sum(nil))
		hashIndex++
	}
}
