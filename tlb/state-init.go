package tlb

import (
	"fmt"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tvm/cell"
)

type TickTock struct {
	Tick bool
	Tock bool
}

// StateInit is the deploy payload of a contract, its code and initial data.
// Account address is the hash of this structure.
type StateInit struct {
	Depth    *uint64
	TickTock *TickTock
	Code     *cell.Cell
	Data     *cell.Cell
	Lib      *cell.Dictionary
}

func (s StateInit) ToCell() (*cell.Cell, error) {
	b := cell.BeginCell()

	if s.Depth != nil {
		b.MustStoreBoolBit(true)
		if err := b.StoreUInt(*s.Depth, 5); err != nil {
			return nil, fmt.Errorf("failed to store split depth: %w", err)
		}
	} else {
		b.MustStoreBoolBit(false)
	}

	if s.TickTock != nil {
		b.MustStoreBoolBit(true)
		b.MustStoreBoolBit(s.TickTock.Tick)
		b.MustStoreBoolBit(s.TickTock.Tock)
	} else {
		b.MustStoreBoolBit(false)
	}

	if err := b.StoreMaybeRef(s.Code); err != nil {
		return nil, fmt.Errorf("failed to store code: %w", err)
	}
	if err := b.StoreMaybeRef(s.Data); err != nil {
		return nil, fmt.Errorf("failed to store data: %w", err)
	}
	if err := b.StoreDict(s.Lib); err != nil {
		return nil, fmt.Errorf("failed to store lib dict: %w", err)
	}

	return b.EndCell(), nil
}

func (s *StateInit) LoadFromCell(loader *cell.Slice) error {
	hasDepth, err := loader.LoadBoolBit()
	if err != nil {
		return fmt.Errorf("failed to load split depth bit: %w", err)
	}
	if hasDepth {
		depth, err := loader.LoadUInt(5)
		if err != nil {
			return fmt.Errorf("failed to load split depth: %w", err)
		}
		s.Depth = &depth
	}

	hasTickTock, err := loader.LoadBoolBit()
	if err != nil {
		return fmt.Errorf("failed to load tick tock bit: %w", err)
	}
	if hasTickTock {
		tt := &TickTock{}
		if tt.Tick, err = loader.LoadBoolBit(); err != nil {
			return fmt.Errorf("failed to load tick: %w", err)
		}
		if tt.Tock, err = loader.LoadBoolBit(); err != nil {
			return fmt.Errorf("failed to load tock: %w", err)
		}
		s.TickTock = tt
	}

	if s.Code, err = loader.LoadMaybeRefCell(); err != nil {
		return fmt.Errorf("failed to load code: %w", err)
	}
	if s.Data, err = loader.LoadMaybeRefCell(); err != nil {
		return fmt.Errorf("failed to load data: %w", err)
	}
	if s.Lib, err = loader.LoadDict(256); err != nil {
		return fmt.Errorf("failed to load lib dict: %w", err)
	}

	return nil
}

func (s StateInit) CalcAddress(workchain int) *address.Address {
	c, _ := s.ToCell()
	return address.NewAddress(0, byte(workchain), c.Hash())
}
