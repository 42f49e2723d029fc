// Package chain provides Ethereum JSON-RPC interaction for the earning
// backend: treasury liquidity, transfer broadcast, and receipt polling.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrConfirmationTimeout means the receipt did not arrive within the bounded
// wait. The transfer may still land; callers must not assume failure.
var ErrConfirmationTimeout = errors.New("confirmation timeout")

// ErrTransferReverted means the transaction was mined but reverted.
var ErrTransferReverted = errors.New("transfer reverted on-chain")

// Client provides Ethereum JSON-RPC client functionality.
type Client struct {
	rpcURL       string
	httpClient   *http.Client
	chainID      uint64
	pollInterval time.Duration
}

// Config holds client configuration.
type Config struct {
	RPCURL       string
	ChainID      uint64 // MainNet: 1
	Timeout      time.Duration
	PollInterval time.Duration
}

// NewClient creates a new Ethereum JSON-RPC client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	poll := cfg.PollInterval
	if poll == 0 {
		poll = 5 * time.Second
	}
	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = 1
	}

	return &Client{
		rpcURL:       cfg.RPCURL,
		httpClient:   &http.Client{Timeout: timeout},
		chainID:      chainID,
		pollInterval: poll,
	}, nil
}

// ChainID returns the configured network id.
func (c *Client) ChainID() uint64 { return c.chainID }

// Call makes an RPC call to the Ethereum node.
func (c *Client) Call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// BlockNumber returns the current block height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}

	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return 0, err
	}
	return parseHexUint(hex)
}

// Balance returns the latest ETH balance of an address.
func (c *Client) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	result, err := c.Call(ctx, "eth_getBalance", []any{address, "latest"})
	if err != nil {
		return decimal.Zero, err
	}

	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return decimal.Zero, err
	}
	wei, err := parseHexBig(hex)
	if err != nil {
		return decimal.Zero, err
	}
	return weiToETH(wei), nil
}

// GasPrice returns the node's suggested gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	result, err := c.Call(ctx, "eth_gasPrice", nil)
	if err != nil {
		return nil, err
	}

	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return nil, err
	}
	return parseHexBig(hex)
}

// TransactionCount returns the next nonce for an address.
func (c *Client) TransactionCount(ctx context.Context, address string) (uint64, error) {
	result, err := c.Call(ctx, "eth_getTransactionCount", []any{address, "pending"})
	if err != nil {
		return 0, err
	}

	var hex string
	if err := json.Unmarshal(result, &hex); err != nil {
		return 0, err
	}
	return parseHexUint(hex)
}

// SendRawTransaction broadcasts a pre-signed transaction and returns its hash.
func (c *Client) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	result, err := c.Call(ctx, "eth_sendRawTransaction", []any{rawTx})
	if err != nil {
		return "", err
	}

	var hash string
	if err := json.Unmarshal(result, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// SendTransaction asks the node to sign and broadcast a transaction from an
// account it manages, returning the hash.
func (c *Client) SendTransaction(ctx context.Context, tx map[string]any) (string, error) {
	result, err := c.Call(ctx, "eth_sendTransaction", []any{tx})
	if err != nil {
		return "", err
	}

	var hash string
	if err := json.Unmarshal(result, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// TransactionReceipt returns the receipt for a transaction, or nil while the
// transaction is still pending.
func (c *Client) TransactionReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	result, err := c.Call(ctx, "eth_getTransactionReceipt", []any{txHash})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var receipt Receipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// AwaitReceipt polls for a receipt until timeout. RPC errors during polling
// are retried; only the deadline ends the wait. The underlying transfer is
// never cancelled.
func (c *Client) AwaitReceipt(ctx context.Context, txHash string, timeout time.Duration) (*Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%w: %s", ErrConfirmationTimeout, txHash)
		case <-ticker.C:
		}
	}
}
