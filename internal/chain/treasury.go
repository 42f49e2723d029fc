package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jluxury929-hash/earning-backend/pkg/logger"
)

const transferGasLimit = 21000

// TransferTx is an unsigned value transfer handed to a Signer.
type TransferTx struct {
	To          string
	ValueWei    *big.Int
	Gas         uint64
	GasPriceWei *big.Int
	Nonce       uint64
	ChainID     uint64
}

// Signer produces a raw signed transaction for broadcast. Key handling stays
// outside this package.
type Signer interface {
	Address() string
	SignTransfer(ctx context.Context, tx TransferTx) (string, error)
}

// Treasury adapts the RPC client into the settlement-facing surface: address
// validation, liquidity, transfer submission, and confirmation waits. With no
// Signer configured, transfers are signed node-side via eth_sendTransaction
// (node- or KMS-managed treasury account).
type Treasury struct {
	client  *Client
	address string
	signer  Signer
	log     *logger.Logger
}

// TreasuryOption customises a Treasury.
type TreasuryOption func(*Treasury)

// WithSigner routes transfers through a local signer and raw broadcast.
func WithSigner(s Signer) TreasuryOption {
	return func(t *Treasury) {
		t.signer = s
		if s != nil {
			t.address = s.Address()
		}
	}
}

// NewTreasury creates a treasury adapter for the given custodial address.
func NewTreasury(client *Client, address string, log *logger.Logger, opts ...TreasuryOption) (*Treasury, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client required")
	}
	if log == nil {
		log = logger.NewDefault("treasury")
	}
	t := &Treasury{client: client, address: address, log: log}
	for _, opt := range opts {
		opt(t)
	}
	if _, err := ValidateAddress(t.address); err != nil {
		return nil, fmt.Errorf("treasury address: %w", err)
	}
	return t, nil
}

// Address returns the custodial treasury address.
func (t *Treasury) Address() string { return t.address }

// ValidateAddress checks a recipient address and returns its checksum form.
func (t *Treasury) ValidateAddress(addr string) (string, error) {
	return ValidateAddress(addr)
}

// Liquidity returns the treasury's current ETH balance.
func (t *Treasury) Liquidity(ctx context.Context) (decimal.Decimal, error) {
	return t.client.Balance(ctx, t.address)
}

// SubmitTransfer broadcasts a transfer of amount ETH to the recipient and
// returns the transaction hash. Gas settings follow the original backend:
// 21000 gas at 1.1x the suggested price.
func (t *Treasury) SubmitTransfer(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	gasPrice, err := t.client.GasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("gas price: %w", err)
	}
	gasPrice.Mul(gasPrice, big.NewInt(11))
	gasPrice.Div(gasPrice, big.NewInt(10))

	valueWei := ethToWei(amount)

	if t.signer == nil {
		hash, err := t.client.SendTransaction(ctx, map[string]any{
			"from":     t.address,
			"to":       to,
			"value":    hexBig(valueWei),
			"gas":      hexUint(transferGasLimit),
			"gasPrice": hexBig(gasPrice),
		})
		if err != nil {
			return "", fmt.Errorf("send transaction: %w", err)
		}
		t.log.WithField("tx_hash", hash).WithField("to", to).Info("transfer broadcast")
		return hash, nil
	}

	nonce, err := t.client.TransactionCount(ctx, t.address)
	if err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	rawTx, err := t.signer.SignTransfer(ctx, TransferTx{
		To:          to,
		ValueWei:    valueWei,
		Gas:         transferGasLimit,
		GasPriceWei: gasPrice,
		Nonce:       nonce,
		ChainID:     t.client.ChainID(),
	})
	if err != nil {
		return "", fmt.Errorf("sign transfer: %w", err)
	}
	hash, err := t.client.SendRawTransaction(ctx, rawTx)
	if err != nil {
		return "", fmt.Errorf("broadcast: %w", err)
	}
	t.log.WithField("tx_hash", hash).WithField("to", to).Info("transfer broadcast")
	return hash, nil
}

// AwaitConfirmation waits for the transfer's receipt within timeout. It
// returns ErrTransferReverted for an on-chain failure and
// ErrConfirmationTimeout when no receipt arrives in time.
func (t *Treasury) AwaitConfirmation(ctx context.Context, txHash string, timeout time.Duration) (Confirmation, error) {
	receipt, err := t.client.AwaitReceipt(ctx, txHash, timeout)
	if err != nil {
		return Confirmation{}, err
	}
	if !receipt.Succeeded() {
		return Confirmation{}, fmt.Errorf("%w: %s", ErrTransferReverted, txHash)
	}

	block, err := parseHexUint(receipt.BlockNumber)
	if err != nil {
		return Confirmation{}, fmt.Errorf("receipt block number: %w", err)
	}

	fee := decimal.Zero
	gasUsed, gerr := parseHexBig(receipt.GasUsed)
	gasPrice, perr := parseHexBig(receipt.EffectiveGasPrice)
	if gerr == nil && perr == nil {
		fee = weiToETH(new(big.Int).Mul(gasUsed, gasPrice))
	}

	return Confirmation{
		TxHash:      receipt.TransactionHash,
		BlockNumber: block,
		FeePaid:     fee,
	}, nil
}
