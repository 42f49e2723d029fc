package chain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      int             `json:"id"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Receipt is the subset of an Ethereum transaction receipt the settlement
// flow needs.
type Receipt struct {
	TransactionHash   string `json:"transactionHash"`
	BlockNumber       string `json:"blockNumber"`
	Status            string `json:"status"`
	GasUsed           string `json:"gasUsed"`
	EffectiveGasPrice string `json:"effectiveGasPrice"`
}

// Succeeded reports whether the transaction executed without reverting.
func (r *Receipt) Succeeded() bool {
	v, err := parseHexUint(r.Status)
	return err == nil && v == 1
}

// Confirmation is the settled view of a transfer.
type Confirmation struct {
	TxHash      string
	BlockNumber uint64
	FeePaid     decimal.Decimal
}

const weiPerETH = 18

// weiToETH converts a wei quantity to a decimal ETH amount.
func weiToETH(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -weiPerETH)
}

// ethToWei converts a decimal ETH amount to wei, truncating below 1 wei.
func ethToWei(eth decimal.Decimal) *big.Int {
	return eth.Shift(weiPerETH).BigInt()
}

func parseHexUint(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return 0, fmt.Errorf("empty hex quantity")
	}
	var v uint64
	if _, err := fmt.Sscanf(trimmed, "%x", &v); err != nil {
		return 0, fmt.Errorf("parse hex quantity %q: %w", s, err)
	}
	return v, nil
}

func parseHexBig(s string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("empty hex quantity")
	}
	v, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("parse hex quantity %q", s)
	}
	return v, nil
}

func hexUint(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

func hexBig(v *big.Int) string {
	return "0x" + v.Text(16)
}
