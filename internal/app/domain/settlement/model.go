// Package settlement defines the claim settlement domain model.
package settlement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the confirmation state of a settled claim.
type Status string

const (
	// StatusConfirmed means the transfer landed on-chain; credit stays debited.
	StatusConfirmed Status = "confirmed"
	// StatusPending means the transfer was broadcast but confirmation never
	// arrived in time; credit stays debited until reconciled out of band.
	StatusPending Status = "pending"
	// StatusFailed means the claim terminated without a settled transfer and
	// any debited credit was restored.
	StatusFailed Status = "failed"
)

// Outcome records the result of one claim attempt. It is immutable once the
// claim reaches a terminal confirmation status.
type Outcome struct {
	ClaimID      string          `json:"claim_id"`
	Address      string          `json:"address"`
	Amount       decimal.Decimal `json:"amount"`
	TxHash       string          `json:"tx_hash,omitempty"`
	BlockNumber  uint64          `json:"block_number,omitempty"`
	FeePaid      decimal.Decimal `json:"fee_paid"`
	Status       Status          `json:"status"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
