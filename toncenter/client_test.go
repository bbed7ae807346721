package toncenter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/tvm/cell"
)

func testAddr() *address.Address {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}
	return address.NewAddress(0x11, 0, data)
}

func wrap(t *testing.T, result any) []byte {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(map[string]any{"ok": true, "result": json.RawMessage(raw)})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestGetAccountState(t *testing.T) {
	code := cell.BeginCell().MustStoreUInt(0xC0DE, 16).EndCell()
	data := cell.BeginCell().MustStoreUInt(7, 32).EndCell()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getAddressInformation" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-Key"); got != "test-key" {
			t.Fatalf("api key header %q", got)
		}
		if got := r.URL.Query().Get("address"); got != testAddr().String() {
			t.Fatalf("address %q", got)
		}

		w.Write(wrap(t, map[string]any{
			"balance": "1500000000",
			"code":    base64.StdEncoding.EncodeToString(code.ToBOC()),
			"data":    base64.StdEncoding.EncodeToString(data.ToBOC()),
			"state":   "active",
			"last_transaction_id": map[string]string{
				"lt":   "45671234000003",
				"hash": "aGFzaA==",
			},
		}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithAPIKey("test-key"))

	acc, err := c.GetAccountState(context.Background(), testAddr())
	if err != nil {
		t.Fatal(err)
	}

	if !acc.Deployed {
		t.Fatal("expected deployed account")
	}
	if acc.Balance.String() != "1.5" {
		t.Fatalf("balance %s", acc.Balance.String())
	}
	if acc.LastTxLT != 45671234000003 {
		t.Fatalf("last tx lt %d", acc.LastTxLT)
	}
	if acc.Code == nil || string(acc.Code.Hash()) != string(code.Hash()) {
		t.Fatal("code mismatch")
	}
	if acc.Data == nil || string(acc.Data.Hash()) != string(data.Hash()) {
		t.Fatal("data mismatch")
	}
}

func TestGetAccountStateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(wrap(t, map[string]any{"balance": "0", "state": "nonexist"}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	_, err := c.GetAccountState(context.Background(), testAddr())
	if !errors.Is(err, ton.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "rate limit", "code": 429})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	_, err := c.GetAccountState(context.Background(), testAddr())
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestSendBoc(t *testing.T) {
	boc := cell.BeginCell().MustStoreUInt(0xF00D, 16).EndCell().ToBOC()

	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/sendBoc" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	if err := c.SendBoc(context.Background(), boc); err != nil {
		t.Fatal(err)
	}

	if gotBody["boc"] != base64.StdEncoding.EncodeToString(boc) {
		t.Fatal("boc payload mismatch")
	}
}
