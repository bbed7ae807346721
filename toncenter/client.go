package toncenter

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

const DefaultBaseURL = "https://toncenter.com/api/v2"

// Client talks to a toncenter v2 compatible HTTP API and satisfies
// ton.Provider.
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

type apiResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
	Code   int             `json:"code"`
}

type addressInformation struct {
	Balance           string `json:"balance"`
	Code              string `json:"code"`
	Data              string `json:"data"`
	State             string `json:"state"`
	LastTransactionID struct {
		LT   string `json:"lt"`
		Hash string `json:"hash"`
	} `json:"last_transaction_id"`
}

func (c *Client) GetAccountState(ctx context.Context, addr *address.Address) (*tlb.AccountState, error) {
	query := url.Values{"address": {addr.String()}}

	var info addressInformation
	if err := c.get(ctx, "/getAddressInformation", query, &info); err != nil {
		return nil, err
	}

	switch info.State {
	case "nonexist", "":
		return nil, ton.ErrAccountNotFound
	}

	balance, ok := new(big.Int).SetString(info.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("malformed balance %q", info.Balance)
	}

	state := &tlb.AccountState{
		Deployed: info.State == "active",
		Balance:  tlb.FromNanoTON(balance),
	}

	if info.LastTransactionID.LT != "" {
		lt, ok := new(big.Int).SetString(info.LastTransactionID.LT, 10)
		if !ok {
			return nil, fmt.Errorf("malformed last transaction lt %q", info.LastTransactionID.LT)
		}
		state.LastTxLT = lt.Uint64()
	}

	var err error
	if state.Code, err = parseBOCField(info.Code); err != nil {
		return nil, fmt.Errorf("failed to parse account code: %w", err)
	}
	if state.Data, err = parseBOCField(info.Data); err != nil {
		return nil, fmt.Errorf("failed to parse account data: %w", err)
	}

	return state, nil
}

func (c *Client) SendBoc(ctx context.Context, boc []byte) error {
	body := map[string]string{
		"boc": base64.StdEncoding.EncodeToString(boc),
	}
	return c.post(ctx, "/sendBoc", body, nil)
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

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, result)
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

	var wrapped apiResponse
	if err = json.Unmarshal(data, &wrapped); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !wrapped.OK {
		return fmt.Errorf("api error %d: %s", wrapped.Code, wrapped.Error)
	}

	if result != nil {
		if err = json.Unmarshal(wrapped.Result, result); err != nil {
			return fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return nil
}
