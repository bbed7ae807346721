package cell

import (
	"errors"
	"fmt"
)

var (
	ErrTooBigValue  = errors.New("too big value")
	ErrNegative     = errors.New("value should be non negative")
	ErrRefCannotBeNil = errors.New("ref cannot be nil")
	ErrSmallSlice   = errors.New("too small slice for this size")
	ErrTooBigSize   = errors.New("too big size")
	ErrTooMuchRefs  = errors.New("too much refs")
	ErrNotFit1023   = errors.New("cell data size should fit into 1023 bits")
	ErrNoMoreRefs   = errors.New("no more refs exists")
	ErrTooDeepCell  = errors.New("too deep cell, depth should fit into 1023")
	ErrAddressTypeNotSupported = errors.New("address type is not supported")

	ErrInvalidBOC       = errors.New("invalid boc")
	ErrChecksumMismatch = errors.New("boc checksum not matches")
	ErrNoSuchKeyInDict  = errors.New("no such key in dict")
)

var ErrNotEnoughData = func(has, need int) error {
	return fmt.Errorf("not enough data in reader, need %d, has %d", need, has)
}
