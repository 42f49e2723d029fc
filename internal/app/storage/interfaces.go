// Package storage declares the persistence interfaces consumed by the
// application services.
package storage

import (
	"context"

	"github.com/jluxury929-hash/earning-backend/internal/app/domain/credit"
)

// CreditStore persists per-identity credit entries. Keys are canonical
// (lower-cased) identities; entries retain the first-seen display casing.
// Stores are safe for concurrent use but provide no cross-call atomicity;
// the ledger service serializes mutations per identity.
type CreditStore interface {
	GetEntry(ctx context.Context, key string) (credit.Entry, bool, error)
	PutEntry(ctx context.Context, key string, entry credit.Entry) error
	ListEntries(ctx context.Context) ([]credit.Entry, error)
}
