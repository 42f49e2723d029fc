// Package credit defines the ledger's domain model.
package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one identity's accumulated claimable credit. Address keeps the
// first-seen casing; the store indexes entries by the canonical key.
type Entry struct {
	Address   string          `json:"address"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
