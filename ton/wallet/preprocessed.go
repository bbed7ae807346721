package wallet

import (
	"context"
	"fmt"

	"github.com/welaskez/tonutils/tvm/cell"
)

const _PreprocessedV2CodeHex = "B5EE9C7201010101003D000076FF00DDD40120F90001D0D33FD30FD74CED44D0D3FFD70B0F20A4830FA90822C8CBFFCB0FC9ED5444301046BAF2A1F823BEF2A2F910F2A3F800ED55"

// SpecPreprocessedV2 is the gas-optimized wallet whose body is checked
// by the contract only at action phase. Its payload is a plain cell the
// caller can sign out of process, see BuildUnsignedPayload and
// AttachSignature.
type SpecPreprocessedV2 struct {
	SpecRegular
	SpecSeqno
}

func (s *SpecPreprocessedV2) BuildMessage(ctx context.Context, _ bool, messages []*Message) (_ *cell.Cell, err error) {
	payload, err := s.BuildUnsignedPayload(ctx, messages)
	if err != nil {
		return nil, err
	}

	sign, err := s.wallet.signPayload(ctx, payload)
	if err != nil {
		return nil, err
	}

	return s.AttachSignature(payload, sign)
}

// BuildUnsignedPayload produces the cell whose hash must be signed.
// valid_until(64) | seqno(16) | ^actions
func (s *SpecPreprocessedV2) BuildUnsignedPayload(ctx context.Context, messages []*Message) (_ *cell.Cell, err error) {
	if err = validateMessages(PreprocessedV2, 255, messages); err != nil {
		return nil, err
	}
	if s.messagesTTL == 0 {
		return nil, ErrInvalidValidityWindow
	}

	seq, err := s.seqnoFetcher(ctx, s.wallet.subwallet)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seqno: %w", err)
	}

	actions, err := packOutActions(messages)
	if err != nil {
		return nil, fmt.Errorf("failed to pack actions: %w", err)
	}

	return cell.BeginCell().
		MustStoreUInt(uint64(s.expireAt()), 64).
		MustStoreUInt(uint64(seq), 16).
		MustStoreRef(actions).
		EndCell(), nil
}

// AttachSignature wraps an externally produced signature and the payload
// into the final message body.
func (s *SpecPreprocessedV2) AttachSignature(payload *cell.Cell, signature []byte) (*cell.Cell, error) {
	if len(signature) != 64 {
		return nil, fmt.Errorf("%w: invalid signature size %d", ErrSigningFailure, len(signature))
	}

	return cell.BeginCell().
		MustStoreSlice(signature, 512).
		MustStoreRef(payload).
		EndCell(), nil
}

func packOutActions(messages []*Message) (*cell.Cell, error) {
	var list = cell.BeginCell().EndCell()
	for i, message := range messages {
		outMsg, err := message.InternalMessage.ToCell()
		if err != nil {
			return nil, fmt.Errorf("failed to convert internal message %d to cell: %w", i, err)
		}

		msg := cell.BeginCell().MustStoreUInt(0x0ec3c86d, 32).
			MustStoreUInt(uint64(message.Mode), 8).
			MustStoreRef(outMsg)

		list = cell.BeginCell().MustStoreRef(list).MustStoreBuilder(msg).EndCell()
	}

	return list, nil
}
