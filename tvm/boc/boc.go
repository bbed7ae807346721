package boc

import (
	"github.com/welaskez/tonutils/utils"
)

// Magic is the serialized_boc#b5ee9c72 tag every standard-profile
// bag of cells starts with.
var Magic = []byte{0xB5, 0xEE, 0x9C, 0x72}

type Flags struct {
	HasIndex     bool
	HasCRC32C    bool
	HasCacheBits bool
}

// ParseFlags splits the header flags byte into option bits and the
// byte width used for cell counters.
func ParseFlags(data byte) (Flags, int) {
	return Flags{
		HasIndex:     utils.HasBit(data, 7),
		HasCRC32C:    utils.HasBit(data, 6),
		HasCacheBits: utils.HasBit(data, 5),
	}, int(data & 0b111)
}

func (f Flags) ToByte(cellNumSizeBytes int) byte {
	var b byte
	if f.HasIndex {
		utils.SetBit(&b, 7)
	}
	if f.HasCRC32C {
		utils.SetBit(&b, 6)
	}
	if f.HasCacheBits {
		utils.SetBit(&b, 5)
	}
	return b | byte(cellNumSizeBytes)
}
