package wallet

import (
	"context"
	"time"

	"github.com/welaskez/tonutils/tvm/cell"
)

type RegularBuilder interface {
	BuildMessage(ctx context.Context, isInitialized bool, messages []*Message) (*cell.Cell, error)
}

type SpecRegular struct {
	wallet *Wallet

	// TTL of the messages that were sent from this wallet.
	// In normal cases it is not needed, as I know it can only
	// expire transaction if it not confirms too long.
	// use SetMessagesTTL if you want to change.
	messagesTTL uint32
}

func (s *SpecRegular) SetMessagesTTL(ttl uint32) {
	s.messagesTTL = ttl
}

// expireAt computes the validity deadline. TTL of zero would produce a
// deadline in the past and is rejected by the spec builders.
func (s *SpecRegular) expireAt() int64 {
	return timeNow().Add(time.Duration(s.messagesTTL) * time.Second).UTC().Unix()
}

type SpecSeqno struct {
	// Instead of reading contract state,
	// this function wil be used (if not nil) to get seqno for new transaction.
	// You may use it to set seqno according to your own logic,
	// for example for additional idempotency,
	// if build message is not enough, or for additional security
	seqnoFetcher func(ctx context.Context, subWallet uint32) (uint32, error)
}

func (s *SpecSeqno) SetSeqnoFetcher(fetcher func(ctx context.Context, subWallet uint32) (uint32, error)) {
	s.seqnoFetcher = fetcher
}

type SpecQuery struct {
	// Instead of generating random query id with message ttl,
	// this function wil be used (if not nil) to get query id for new transaction.
	// You may use it to set query id according to your own logic,
	// for example for additional idempotency,
	// if build message is not enough, or for additional security
	customQueryIDFetcher func(ctx context.Context, subWalletId uint32) (ttl uint32, randPart uint32, err error)
}

func (s *SpecQuery) SetCustomQueryIDFetcher(fetcher func() (ttl uint32, randPart uint32)) {
	s.customQueryIDFetcher = func(ctx context.Context, subWalletId uint32) (uint32, uint32, error) {
		ttl, randPart := fetcher()
		return ttl, randPart, nil
	}
}
