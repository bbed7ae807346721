package tonapi

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
		data[i] = byte(i) * 2
	}
	return address.NewAddress(0x11, 0, data)
}

func TestGetAccountState(t *testing.T) {
	code := cell.BeginCell().MustStoreUInt(0xC0DE, 16).EndCell()
	data := cell.BeginCell().MustStoreUInt(3, 32).EndCell()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/account" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("address"); got != testAddr().String() {
			t.Fatalf("address %q", got)
		}

		json.NewEncoder(w).Encode(map[string]string{
			"balance":             "2000000000",
			"code":                base64.StdEncoding.EncodeToString(code.ToBOC()),
			"data":                base64.StdEncoding.EncodeToString(data.ToBOC()),
			"status":              "active",
			"last_transaction_lt": "777",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	acc, err := c.GetAccountState(context.Background(), testAddr())
	if err != nil {
		t.Fatal(err)
	}

	if !acc.Deployed {
		t.Fatal("expected deployed account")
	}
	if acc.Balance.String() != "2" {
		t.Fatalf("balance %s", acc.Balance.String())
	}
	if acc.LastTxLT != 777 {
		t.Fatalf("last tx lt %d", acc.LastTxLT)
	}
	if acc.Code == nil || string(acc.Code.Hash()) != string(code.Hash()) {
		t.Fatal("code mismatch")
	}
	if acc.Data == nil || string(acc.Data.Hash()) != string(data.Hash()) {
		t.Fatal("data mismatch")
	}
}

func TestGetAccountStateUninit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"balance": "100",
			"status":  "uninit",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)

	acc, err := c.GetAccountState(context.Background(), testAddr())
	if err != nil {
		t.Fatal(err)
	}
	if acc.Deployed {
		t.Fatal("uninit account reported as deployed")
	}
	if acc.Code != nil || acc.Data != nil {
		t.Fatal("unexpected state cells")
	}
}

func TestGetAccountStateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "nonexist"})
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
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithAPIKey("wrong"))

	_, err := c.GetAccountState(context.Background(), testAddr())
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestSendBoc(t *testing.T) {
	boc := cell.BeginCell().MustStoreUInt(0xF00D, 16).EndCell().ToBOC()

	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/message" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(`{"message_hash":"x"}`))
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
