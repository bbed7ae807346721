package address

import (
	"bytes"
	"fmt"
	"testing"
)

func testData(seed byte) []byte {
	data := make([]byte, 32)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return data
}

func TestAddressStringParseLaw(t *testing.T) {
	tests := []struct {
		name      string
		flags     byte
		workchain byte
	}{
		{"bounceable wc0", tagBounceable, 0},
		{"masterchain", tagBounceable, 0xFF},
		{"testnet", tagBounceable | flagTestnet, 0},
		{"non bounceable", tagNonBounceable, 0},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAddress(tt.flags, tt.workchain, testData(byte(i)))

			parsed, err := ParseAddr(a.String())
			if err != nil {
				t.Fatal(err)
			}

			if !parsed.Equals(a) {
				t.Fatalf("parse(%s) != original", a.String())
			}
			if parsed.IsTestnetOnly() != a.IsTestnetOnly() {
				t.Fatal("testnet flag lost")
			}
			if parsed.IsBounceable() != a.IsBounceable() {
				t.Fatal("bounceable flag lost")
			}
			if !bytes.Equal(parsed.Data(), a.Data()) {
				t.Fatal("data lost")
			}
		})
	}
}

func TestAddressChecksumCorruption(t *testing.T) {
	a := NewAddress(tagBounceable, 0, testData(7))
	str := a.String()

	for i := 0; i < len(str); i++ {
		corrupted := []byte(str)
		if corrupted[i] == 'A' {
			corrupted[i] = 'B'
		} else {
			corrupted[i] = 'A'
		}

		if _, err := ParseAddr(string(corrupted)); err == nil {
			t.Fatalf("corruption at position %d was not detected", i)
		}
	}
}

func TestAddressRawParse(t *testing.T) {
	a := NewAddress(tagBounceable, 0, testData(3))

	raw := a.StringRaw()
	parsed, err := ParseRawAddr(raw)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.Workchain() != a.Workchain() {
		t.Fatal("workchain mismatch")
	}
	if !bytes.Equal(parsed.Data(), a.Data()) {
		t.Fatal("data mismatch")
	}

	if _, err = ParseRawAddr("not-an-address"); err == nil {
		t.Fatal("expected error")
	}
	if _, err = ParseRawAddr(fmt.Sprintf("0:%x", []byte{1, 2, 3})); err == nil {
		t.Fatal("expected error for short data")
	}
}

func TestAddressBounceTestnetCopy(t *testing.T) {
	a := NewAddress(tagBounceable, 0, testData(9))

	b := a.Bounce(false).Testnet(true)
	if b.IsBounceable() || !b.IsTestnetOnly() {
		t.Fatal("flags not applied")
	}

	if a.String() == b.String() {
		t.Fatal("flags must change the representation")
	}

	parsed := MustParseAddr(b.String())
	if !parsed.Equals(b) {
		t.Fatal("flagged address does not round trip")
	}
}

func TestAddressNone(t *testing.T) {
	n := NewAddressNone()
	if !n.IsAddrNone() {
		t.Fatal("expected addr none")
	}
	if n.Type() != NoneAddress {
		t.Fatal("wrong type")
	}
}
