package cell

import (
	"encoding/binary"
	"testing"
)

func buildProof(body *Cell) *Cell {
	data := make([]byte, 35)
	data[0] = byte(MerkleProofCellType)
	copy(data[1:33], body.Hash(0))
	binary.BigEndian.PutUint16(data[33:], body.Depth(0))

	p := &Cell{
		special:   true,
		levelMask: LevelMask{body.levelMask.Mask >> 1},
		bitsSz:    280,
		data:      data,
		refs:      []*Cell{body},
	}
	p.calculateHashes()
	return p
}

func TestCheckProof(t *testing.T) {
	body := BeginCell().
		MustStoreUInt(0xAABB, 16).
		MustStoreRef(BeginCell().MustStoreUInt(5, 8).EndCell()).
		EndCell()

	proof := buildProof(body)

	if err := CheckProof(proof, body.Hash(0)); err != nil {
		t.Fatal(err)
	}

	unwrapped, err := UnwrapProof(proof, body.Hash(0))
	if err != nil {
		t.Fatal(err)
	}
	if unwrapped.BeginParse().MustLoadUInt(16) != 0xAABB {
		t.Fatal("unexpected proof body")
	}
}

func TestCheckProofWrongHash(t *testing.T) {
	body := BeginCell().MustStoreUInt(1, 8).EndCell()
	proof := buildProof(body)

	wrong := make([]byte, 32)
	if err := CheckProof(proof, wrong); err == nil {
		t.Fatal("expected error for wrong hash")
	}
}

func TestCheckProofNotExotic(t *testing.T) {
	body := BeginCell().MustStoreUInt(1, 8).EndCell()
	ordinary := BeginCell().MustStoreRef(body).EndCell()

	if err := CheckProof(ordinary, body.Hash(0)); err == nil {
		t.Fatal("expected error for ordinary cell")
	}
}

func TestProofSurvivesBOC(t *testing.T) {
	body := BeginCell().MustStoreUInt(0xCC, 8).EndCell()
	proof := buildProof(body)

	parsed, err := FromBOC(proof.ToBOC())
	if err != nil {
		t.Fatal(err)
	}

	if err = CheckProof(parsed, body.Hash(0)); err != nil {
		t.Fatal(err)
	}
}
