package nft

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/welaskez/tonutils/tvm/cell"
)

// ContentAny is any TEP-64 token content representation.
type ContentAny interface {
	ContentCell() (*cell.Cell, error)
}

type ContentOffchain struct {
	URI string
}

type ContentOnchain struct {
	Name        string
	Description string
	Image       string
	ImageData   []byte
	attributes  *cell.Dictionary
}

// ContentSemichain keeps the onchain attributes and mirrors the uri offchain.
type ContentSemichain struct {
	ContentOffchain
	ContentOnchain
}

func ContentFromCell(c *cell.Cell) (ContentAny, error) {
	return ContentFromSlice(c.BeginParse())
}

func ContentFromSlice(s *cell.Slice) (ContentAny, error) {
	if s.BitsLeft() < 8 {
		if s.RefsNum() == 0 {
			return nil, errors.New("invalid content")
		}
		s = s.MustLoadRef()
	}

	typ, err := s.LoadUInt(8)
	if err != nil {
		return nil, fmt.Errorf("failed to load content type: %w", err)
	}

	switch t := uint8(typ); t {
	case 0x00:
		dict, err := s.LoadDict(256)
		if err != nil {
			return nil, fmt.Errorf("failed to load onchain attributes dict: %w", err)
		}

		uri := string(getOnchainVal(dict, "uri"))

		on := ContentOnchain{
			Name:        string(getOnchainVal(dict, "name")),
			Description: string(getOnchainVal(dict, "description")),
			Image:       string(getOnchainVal(dict, "image")),
			ImageData:   getOnchainVal(dict, "image_data"),
			attributes:  dict,
		}

		if uri != "" {
			return &ContentSemichain{
				ContentOffchain: ContentOffchain{URI: uri},
				ContentOnchain:  on,
			}, nil
		}
		return &on, nil
	case 0x01:
		str, err := s.LoadStringSnake()
		if err != nil {
			return nil, fmt.Errorf("failed to load offchain uri: %w", err)
		}
		return &ContentOffchain{URI: str}, nil
	default:
		// some deployed tokens skip the offchain prefix, treat the first
		// byte as part of the uri
		str, err := s.LoadStringSnake()
		if err != nil {
			return nil, fmt.Errorf("failed to load offchain uri: %w", err)
		}
		return &ContentOffchain{URI: string(t) + str}, nil
	}
}

func attributeKey(name string) *cell.Cell {
	h := sha256.New()
	h.Write([]byte(name))
	return cell.BeginCell().MustStoreSlice(h.Sum(nil), 256).EndCell()
}

func getOnchainVal(dict *cell.Dictionary, key string) []byte {
	val := dict.Get(attributeKey(key))
	if val == nil {
		return nil
	}

	v, err := val.BeginParse().LoadRef()
	if err != nil {
		return nil
	}

	typ, err := v.LoadUInt(8)
	if err != nil {
		return nil
	}

	switch typ {
	case 0x00:
		data, _ := v.LoadBinarySnake()
		return data
	default:
		// chunked layout is not supported
		return nil
	}
}

func setOnchainVal(dict *cell.Dictionary, key string, val []byte) error {
	v := cell.BeginCell().MustStoreUInt(0x00, 8)
	if err := v.StoreBinarySnake(val); err != nil {
		return err
	}

	return dict.Set(attributeKey(key), cell.BeginCell().MustStoreRef(v.EndCell()).EndCell())
}

func (c *ContentOffchain) ContentCell() (*cell.Cell, error) {
	return cell.BeginCell().MustStoreUInt(0x01, 8).MustStoreStringSnake(c.URI).EndCell(), nil
}

func (c *ContentSemichain) ContentCell() (*cell.Cell, error) {
	if c.attributes == nil {
		c.attributes = cell.NewDict(256)
	}

	if c.URI != "" && getOnchainVal(c.attributes, "uri") == nil {
		if err := setOnchainVal(c.attributes, "uri", []byte(c.URI)); err != nil {
			return nil, err
		}
	}

	return c.ContentOnchain.ContentCell()
}

func (c *ContentOnchain) SetAttribute(name, value string) error {
	return c.SetAttributeBinary(name, []byte(value))
}

func (c *ContentOnchain) SetAttributeBinary(name string, value []byte) error {
	if c.attributes == nil {
		c.attributes = cell.NewDict(256)
	}

	if err := setOnchainVal(c.attributes, name, value); err != nil {
		return fmt.Errorf("failed to set attribute: %w", err)
	}
	return nil
}

func (c *ContentOnchain) GetAttribute(name string) string {
	return string(c.GetAttributeBinary(name))
}

func (c *ContentOnchain) GetAttributeBinary(name string) []byte {
	if c.attributes == nil {
		return nil
	}
	return getOnchainVal(c.attributes, name)
}

func (c *ContentOnchain) ContentCell() (*cell.Cell, error) {
	if c.attributes == nil {
		c.attributes = cell.NewDict(256)
	}

	if len(c.Name) > 0 {
		if err := setOnchainVal(c.attributes, "name", []byte(c.Name)); err != nil {
			return nil, fmt.Errorf("failed to store name: %w", err)
		}
	}
	if len(c.Description) > 0 {
		if err := setOnchainVal(c.attributes, "description", []byte(c.Description)); err != nil {
			return nil, fmt.Errorf("failed to store description: %w", err)
		}
	}
	if len(c.Image) > 0 {
		if err := setOnchainVal(c.attributes, "image", []byte(c.Image)); err != nil {
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
	}
	if len(c.ImageData) > 0 {
		if err := setOnchainVal(c.attributes, "image_data", c.ImageData); err != nil {
			return nil, fmt.Errorf("failed to store image_data: %w", err)
		}
	}

	return cell.BeginCell().MustStoreUInt(0x00, 8).MustStoreDict(c.attributes).EndCell(), nil
}
