package cell

import (
	"encoding/binary"
	"hash/crc32"
	"math"

	"github.com/welaskez/tonutils/tvm/boc"
)

// ToBOC serializes the cell tree to the standard bag-of-cells envelope,
// CRC32-C protected.
func (c *Cell) ToBOC() []byte {
	return c.ToBOCWithFlags(true)
}

func (c *Cell) ToBOCWithFlags(withCRC bool) []byte {
	return ToBOCMultiRoot([]*Cell{c}, withCRC)
}

// ToBOCMultiRoot serializes a forest of cells sharing one deduplicated index.
func ToBOCMultiRoot(roots []*Cell, withCRC bool) []byte {
	if len(roots) == 0 {
		return nil
	}

	sortedCells, index := flattenIndex(roots)

	// bytes needed to store index of any cell
	cellSizeBits := math.Log2(float64(len(sortedCells)) + 1)
	cellSizeBytes := byte(math.Ceil(cellSizeBits / 8))

	var payload []byte
	for i := 0; i < len(sortedCells); i++ {
		payload = append(payload, sortedCells[i].cell.serialize(uint(cellSizeBytes), index)...)
	}

	// bytes needed to store size of payload
	sizeBits := math.Log2(float64(len(payload)) + 1)
	sizeBytes := byte(math.Ceil(sizeBits / 8))

	flags := boc.Flags{HasCRC32C: withCRC}

	var data []byte
	data = append(data, boc.Magic...)
	data = append(data, flags.ToByte(int(cellSizeBytes)))
	data = append(data, sizeBytes)

	data = append(data, dynamicIntBytes(uint64(len(sortedCells)), uint(cellSizeBytes))...)
	data = append(data, dynamicIntBytes(uint64(len(roots)), uint(cellSizeBytes))...)

	// absent cells
	data = append(data, dynamicIntBytes(0, uint(cellSizeBytes))...)

	data = append(data, dynamicIntBytes(uint64(len(payload)), uint(sizeBytes))...)

	for _, root := range roots {
		data = append(data, dynamicIntBytes(index[string(root.Hash())].index, uint(cellSizeBytes))...)
	}

	data = append(data, payload...)

	if withCRC {
		checksum := make([]byte, 4)
		binary.LittleEndian.PutUint32(checksum, crc32.Checksum(data, crc32.MakeTable(crc32.Castagnoli)))

		data = append(data, checksum...)
	}

	return data
}

func (c *Cell) serialize(refIndexSzBytes uint, index map[string]*idxItem) []byte {
	body := c.BeginParse().MustLoadSlice(c.bitsSz)

	unusedBits := 8 - (c.bitsSz % 8)
	if unusedBits != 8 {
		// set bit at the end if not whole byte was used
		body[len(body)-1] += 1 << (unusedBits - 1)
	}

	d1, d2 := c.descriptors(c.levelMask)

	data := make([]byte, 0, 2+len(body)+len(c.refs)*int(refIndexSzBytes))
	data = append(data, d1, d2)
	data = append(data, body...)

	for _, ref := range c.refs {
		data = append(data, dynamicIntBytes(index[string(ref.Hash())].index, refIndexSzBytes)...)
	}

	return data
}

func dynamicIntBytes(val uint64, sz uint) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, val)

	return data[8-sz:]
}
