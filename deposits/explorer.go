package deposits

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lcc-go/utils"
)

// Client talks to a mempool.space-compatible block explorer API. One client
// per currency; the base URL decides which chain it watches.
type Client struct {
	base string
	http *http.Client
}

// NewClient builds an explorer client for a base URL like
// "https://mempool.space/api".
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// TxStatus is the confirmation state of a transaction.
type TxStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
}

// TxVout is one output of a transaction. Value is in base units (sats).
type TxVout struct {
	ScriptpubkeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"`
}

// Tx is a transaction touching a watched address.
type Tx struct {
	Txid   string   `json:"txid"`
	Status TxStatus `json:"status"`
	Vout   []TxVout `json:"vout"`
}

// AddressTxs fetches the transactions for an address, newest first.
func (c *Client) AddressTxs(ctx context.Context, address string) ([]Tx, error) {
	var txs []Tx
	if err := c.getJSON(ctx, "/address/"+address+"/txs", &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// TipHeight fetches the current chain tip height.
func (c *Client) TipHeight(ctx context.Context) (int64, error) {
	body, err := c.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}
	height, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad tip height %q", utils.ErrExternalService, string(body))
	}
	return height, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to decode explorer response: %v", utils.ErrExternalService, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build explorer request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: explorer returned %d for %s", utils.ErrExternalService, resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrExternalService, err)
	}
	return body, nil
}
