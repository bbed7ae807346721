package tonapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"time"

	"github.com/welaskez/tonutils/address"
	"github.com/welaskez/tonutils/tlb"
	"github.com/welaskez/tonutils/ton"
	"github.com/welaskez/tonutils/tvm/cell"
)

const DefaultBaseURL = "https://toncenter.com/api/v3"

// Client talks to an indexer style v3 HTTP API and satisfies ton.Provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type accountResponse struct {
	Balance           string `json:"balance"`
	Code              string `json:"code"`
	Data              string `json:"data"`
	Status            string `json:"status"`
	LastTransactionLT string `json:"last_transaction_lt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *Client) GetAccountState(ctx context.Context, addr *address.Address) (*tlb.AccountState, error) {
	query := url.Values{"address": {addr.String()}}

	var acc accountResponse
	if err := c.get(ctx, "/account", query, &acc); err != nil {
		return nil, err
	}

	switch acc.Status {
	case "nonexist", "":
		return nil, ton.ErrAccountNotFound
	}

	balance, ok := new(big.Int).SetString(acc.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("malformed balance %q", acc.Balance)
	}

	state := &tlb.AccountState{
		Deployed: acc.Status == "active",
		Balance:  tlb.FromNanoTON(balance),
	}

	if acc.LastTransactionLT != "" {
		lt, ok := new(big.Int).SetString(acc.LastTransactionLT, 10)
		if !ok {
			return nil, fmt.Errorf("malformed last transaction lt %q", acc.LastTransactionLT)
		}
		state.LastTxLT = lt.Uint64()
	}

	var err error
	if state.Code, err = parseBOCField(acc.Code); err != nil {
		return nil, fmt.Errorf("failed to parse account code: %w", err)
	}
	if state.Data, err = parseBOCField(acc.Data); err != nil {
		return nil, fmt.Errorf("failed to parse account data: %w", err)
	}

	return state, nil
}

func (c *Client) SendBoc(ctx context.Context, boc []byte) error {
	body := map[string]string{
		"boc": base64.StdEncoding.EncodeToString(boc),
	}
	return c.post(ctx, "/message", body)
}

func parseBOCField(b64 string) (*cell.Cell, error) {
	if b64 == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("bad base64: %w", err)
	}
	return cell.FromBOC(data)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, result any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("api error %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("api error %d", resp.StatusCode)
	}

	if result != nil {
		if err = json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
