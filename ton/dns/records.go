package dns

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tvm/cell"
)

const OpChangeRecord = 0x4eb1f0f9

const (
	_CategoryNextResolver = 0xba93
	_CategoryContractAddr = 0x9fd3
	_CategoryADNLSite     = 0xad01
	_CategoryStorageSite  = 0x7473
)

var randomizer = func() uint64 {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return binary.LittleEndian.Uint64(buf)
}

func recordKey(name string) *cell.Cell {
	h := sha256.New()
	h.Write([]byte(name))
	return cell.BeginCell().MustStoreSlice(h.Sum(nil), 256).EndCell()
}

// BuildSetRecordPayload updates one record of a domain item. A nil value
// deletes the record.
func BuildSetRecordPayload(name string, value *cell.Cell) *cell.Cell {
	b := cell.BeginCell().
		MustStoreUInt(OpChangeRecord, 32).
		MustStoreUInt(randomizer(), 64).
		MustStoreBuilder(recordKey(name).ToBuilder())

	if value != nil {
		b.MustStoreRef(value)
	}
	return b.EndCell()
}

func BuildDeleteRecordPayload(name string) *cell.Cell {
	return BuildSetRecordPayload(name, nil)
}

func BuildSetWalletRecordPayload(addr *address.Address) *cell.Cell {
	value := cell.BeginCell().
		MustStoreUInt(_CategoryContractAddr, 16).
		MustStoreAddr(addr).
		MustStoreUInt(0, 8). // flags
		EndCell()

	return BuildSetRecordPayload("wallet", value)
}

// BuildSetSiteRecordPayload points the "site" record at an ADNL address.
func BuildSetSiteRecordPayload(adnlAddr []byte) (*cell.Cell, error) {
	if len(adnlAddr) != 32 {
		return nil, fmt.Errorf("adnl address must be 32 bytes, got %d", len(adnlAddr))
	}

	value := cell.BeginCell().
		MustStoreUInt(_CategoryADNLSite, 16).
		MustStoreSlice(adnlAddr, 256).
		MustStoreUInt(0, 8). // flags
		EndCell()

	return BuildSetRecordPayload("site", value), nil
}

// BuildSetStorageSiteRecordPayload points the "site" record at a TON
// Storage bag.
func BuildSetStorageSiteRecordPayload(bagID []byte) (*cell.Cell, error) {
	if len(bagID) != 32 {
		return nil, fmt.Errorf("bag id must be 32 bytes, got %d", len(bagID))
	}

	value := cell.BeginCell().
		MustStoreUInt(_CategoryStorageSite, 16).
		MustStoreSlice(bagID, 256).
		EndCell()

	return BuildSetRecordPayload("site", value), nil
}

func BuildSetNextResolverRecordPayload(resolver *address.Address) *cell.Cell {
	value := cell.BeginCell().
		MustStoreUInt(_CategoryNextResolver, 16).
		MustStoreAddr(resolver).
		EndCell()

	return BuildSetRecordPayload("dns_next_resolver", value)
}

// GetRecord returns the raw value cell of a record or nil when not set.
func (d *Domain) GetRecord(name string) *cell.Cell {
	if d.Records == nil {
		return nil
	}
	return d.Records.Get(recordKey(name))
}

func (d *Domain) GetWalletRecord() *address.Address {
	rec := d.GetRecord("wallet")
	if rec == nil {
		return nil
	}

	p, err := rec.BeginParse().LoadRef()
	if err != nil {
		return nil
	}

	category, err := p.LoadUInt(16)
	if err != nil || category != _CategoryContractAddr {
		return nil
	}

	addr, err := p.LoadAddr()
	if err != nil {
		return nil
	}
	return addr
}

// GetSiteRecord returns the 32-byte site id and whether it is a TON
// Storage bag instead of an ADNL address.
func (d *Domain) GetSiteRecord() (_ []byte, inStorage bool) {
	rec := d.GetRecord("site")
	if rec == nil {
		return nil, false
	}

	p, err := rec.BeginParse().LoadRef()
	if err != nil {
		return nil, false
	}

	category, err := p.LoadUInt(16)
	if err != nil {
		return nil, false
	}

	switch category {
	case _CategoryADNLSite, _CategoryStorageSite:
		id, err := p.LoadSlice(256)
		if err != nil {
			return nil, false
		}
		return id, category == _CategoryStorageSite
	}
	return nil, false
}

func (d *Domain) GetNextResolverRecord() *address.Address {
	rec := d.GetRecord("dns_next_resolver")
	if rec == nil {
		return nil
	}

	p, err := rec.BeginParse().LoadRef()
	if err != nil {
		return nil
	}

	category, err := p.LoadUInt(16)
	if err != nil || category != _CategoryNextResolver {
		return nil
	}

	addr, err := p.LoadAddr()
	if err != nil {
		return nil
	}
	return addr
}
