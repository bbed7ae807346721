package cell

import (
	"bytes"
	"fmt"
)

// CheckProof verifies that proof is a merkle proof cell committing to the
// given body hash.
func CheckProof(proof *Cell, hash []byte) error {
	_, err := UnwrapProof(proof, hash)
	return err
}

// UnwrapProof does the same check but also returns the proof body.
func UnwrapProof(proof *Cell, hash []byte) (*Cell, error) {
	if proof.GetType() != MerkleProofCellType {
		return nil, fmt.Errorf("not a merkle proof cell")
	}

	if !bytes.Equal(hash, proof.data[1:33]) {
		return nil, fmt.Errorf("incorrect proof hash")
	}

	// committed hash must match level 0 hash of the body
	if !bytes.Equal(hash, proof.refs[0].Hash(0)) {
		return nil, fmt.Errorf("proof hash not matches body hash")
	}

	return proof.refs[0], nil
}
