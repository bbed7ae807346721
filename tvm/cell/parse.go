package cell

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/welaskez/tonutils/tvm/boc"
)

// FromBOC parses a single-root bag of cells.
func FromBOC(data []byte) (*Cell, error) {
	cells, err := FromBOCMultiRoot(data)
	if err != nil {
		return nil, err
	}

	return cells[0], nil
}

// FromBOCMultiRoot parses a bag of cells envelope and rebuilds every root
// with hashes and depths recalculated from scratch.
func FromBOCMultiRoot(data []byte) (roots []*Cell, err error) {
	// hash recalculation enforces the depth limit by panic, a crafted
	// boc must fail with an error instead
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && errors.Is(e, ErrTooDeepCell) {
				roots, err = nil, fmt.Errorf("%w: %w", ErrInvalidBOC, ErrTooDeepCell)
				return
			}
			panic(r)
		}
	}()

	if len(data) < 10 {
		return nil, ErrNotEnoughData(len(data), 10)
	}

	r := newReader(data)

	if !bytes.Equal(r.MustReadBytes(4), boc.Magic) {
		return nil, fmt.Errorf("%w: invalid magic", ErrInvalidBOC)
	}

	flags, cellNumSizeBytes := boc.ParseFlags(r.MustReadByte())
	dataSizeBytes := int(r.MustReadByte())

	if cellNumSizeBytes > 8 || dataSizeBytes > 8 {
		return nil, fmt.Errorf("%w: invalid size integers widths", ErrInvalidBOC)
	}

	cellsNumBytes, err := r.ReadBytes(cellNumSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read cells num: %w", err)
	}
	cellsNum := dynInt(cellsNumBytes)

	rootsNumBytes, err := r.ReadBytes(cellNumSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read roots num: %w", err)
	}
	rootsNum := dynInt(rootsNumBytes)

	if rootsNum == 0 || rootsNum > cellsNum {
		return nil, fmt.Errorf("%w: invalid roots num", ErrInvalidBOC)
	}

	// complete BOCs have no absent cells
	absentBytes, err := r.ReadBytes(cellNumSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read absent num: %w", err)
	}
	if dynInt(absentBytes) != 0 {
		return nil, fmt.Errorf("%w: absent cells are not supported", ErrInvalidBOC)
	}

	dataLenBytes, err := r.ReadBytes(dataSizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read data len: %w", err)
	}
	dataLen := dynInt(dataLenBytes)

	rootIndexes := make([]int, rootsNum)
	for i := 0; i < rootsNum; i++ {
		idxBytes, err := r.ReadBytes(cellNumSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to read root index: %w", err)
		}

		rootIndexes[i] = dynInt(idxBytes)
		if rootIndexes[i] >= cellsNum {
			return nil, fmt.Errorf("%w: root index out of range", ErrInvalidBOC)
		}
	}

	if flags.HasCacheBits && !flags.HasIndex {
		return nil, fmt.Errorf("%w: cache flag cannot be set without index flag", ErrInvalidBOC)
	}

	if flags.HasIndex {
		// we recalculate offsets ourselves, skip the stored index
		if _, err = r.ReadBytes(cellsNum * dataSizeBytes); err != nil {
			return nil, fmt.Errorf("failed to read index table: %w", err)
		}
	}

	payload, err := r.ReadBytes(dataLen)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	if flags.HasCRC32C {
		crcBytes, err := r.ReadBytes(4)
		if err != nil {
			return nil, fmt.Errorf("failed to read checksum: %w", err)
		}

		checksum := crc32.Checksum(data[:len(data)-r.LeftLen()-4], crc32.MakeTable(crc32.Castagnoli))
		if binary.LittleEndian.Uint32(crcBytes) != checksum {
			return nil, ErrChecksumMismatch
		}
	}

	cells, err := parseCells(rootIndexes, cellsNum, cellNumSizeBytes, payload)
	if err != nil {
		return nil, err
	}

	return cells, nil
}

type rawCell struct {
	special   bool
	levelMask LevelMask
	bitsSz    uint
	data      []byte
	refsIdx   []int
}

func parseCells(rootIndexes []int, cellsNum, refSzBytes int, payload []byte) ([]*Cell, error) {
	r := newReader(payload)

	rawCells := make([]rawCell, cellsNum)
	for i := 0; i < cellsNum; i++ {
		flags, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read cell descriptor: %w", err)
		}

		refsNum := int(flags & 0b111)
		if refsNum > 4 {
			return nil, fmt.Errorf("%w: too many refs in cell", ErrInvalidBOC)
		}

		special := flags&0b1000 != 0
		levelMask := LevelMask{flags >> 5}

		ln, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("failed to read cell size descriptor: %w", err)
		}

		oneMore := int(ln % 2)
		sz := int(ln/2) + oneMore

		data, err := r.ReadBytes(sz)
		if err != nil {
			return nil, fmt.Errorf("failed to read cell data: %w", err)
		}

		bitsSz := uint(ln) * 4
		if oneMore != 0 {
			// last 4 means incomplete byte, find the padding marker bit
			for y := uint(0); y < 8; y++ {
				if data[sz-1]&(1<<y) > 0 {
					bitsSz += 3 - y
					break
				}
			}
		}

		refsIdx := make([]int, refsNum)
		for y := 0; y < refsNum; y++ {
			idxBytes, err := r.ReadBytes(refSzBytes)
			if err != nil {
				return nil, fmt.Errorf("failed to read ref index: %w", err)
			}

			id := dynInt(idxBytes)
			if id >= cellsNum {
				return nil, fmt.Errorf("%w: ref index out of range", ErrInvalidBOC)
			}
			if id <= i {
				return nil, fmt.Errorf("%w: reference to index which is behind parent cell", ErrInvalidBOC)
			}
			refsIdx[y] = id
		}

		cp := make([]byte, len(data))
		copy(cp, data)

		rawCells[i] = rawCell{
			special:   special,
			levelMask: levelMask,
			bitsSz:    bitsSz,
			data:      cp,
			refsIdx:   refsIdx,
		}
	}

	// refs only point forward, so children are always built first
	cells := make([]*Cell, cellsNum)
	for i := cellsNum - 1; i >= 0; i-- {
		rc := rawCells[i]

		refs := make([]*Cell, len(rc.refsIdx))
		for y, id := range rc.refsIdx {
			refs[y] = cells[id]
		}

		c := &Cell{
			special:   rc.special,
			levelMask: rc.levelMask,
			bitsSz:    rc.bitsSz,
			data:      rc.data,
			refs:      refs,
		}

		if err := validateParsed(c); err != nil {
			return nil, err
		}
		c.calculateHashes()

		cells[i] = c
	}

	roots := make([]*Cell, len(rootIndexes))
	for i, idx := range rootIndexes {
		roots[i] = cells[idx]
	}

	return roots, nil
}

func validateParsed(c *Cell) error {
	if !c.special {
		mask := LevelMask{}
		for _, ref := range c.refs {
			mask = LevelMask{mask.Mask | ref.levelMask.Mask}
		}
		if c.levelMask != mask {
			return fmt.Errorf("%w: ordinary cell level mask mismatch", ErrInvalidBOC)
		}
		return nil
	}

	typ := c.GetType()
	if typ == UnknownCellType {
		return fmt.Errorf("%w: unknown exotic cell type", ErrInvalidBOC)
	}

	switch typ {
	case PrunedCellType:
		if c.levelMask.Mask != c.data[1] {
			return fmt.Errorf("%w: pruned branch level mask mismatch", ErrInvalidBOC)
		}
	case MerkleProofCellType:
		if c.levelMask.Mask != c.refs[0].levelMask.Mask>>1 {
			return fmt.Errorf("%w: merkle proof level mask mismatch", ErrInvalidBOC)
		}
	case MerkleUpdateCellType:
		if c.levelMask.Mask != (c.refs[0].levelMask.Mask|c.refs[1].levelMask.Mask)>>1 {
			return fmt.Errorf("%w: merkle update level mask mismatch", ErrInvalidBOC)
		}
	case LibraryCellType:
		if c.levelMask.Mask != 0 {
			return fmt.Errorf("%w: library cell level mask must be zero", ErrInvalidBOC)
		}
	}

	return nil
}

func dynInt(data []byte) int {
	tmp := make([]byte, 8)
	copy(tmp[8-len(data):], data)

	return int(binary.BigEndian.Uint64(tmp))
}
