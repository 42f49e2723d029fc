// Package ledger owns all credit balance mutation. Credit and TryDebit for
// the same identity are serialized under a per-identity lock; distinct
// identities proceed in parallel.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jluxury929-hash/earning-backend/internal/app/domain/credit"
	"github.com/jluxury929-hash/earning-backend/internal/app/identity"
	"github.com/jluxury929-hash/earning-backend/internal/app/storage"
	"github.com/jluxury929-hash/earning-backend/pkg/logger"
)

// InsufficientBalanceError reports a debit that exceeds the current balance.
// Have is the exact balance at the time of the check; the balance is left
// untouched.
type InsufficientBalanceError struct {
	Address string
	Have    decimal.Decimal
	Need    decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: need %s, have %s", e.Need, e.Have)
}

// Service implements the credit ledger over a CreditStore.
type Service struct {
	store storage.CreditStore
	log   *logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a ledger service.
func New(store storage.CreditStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{
		store: store,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding one identity's balance.
func (s *Service) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Credit adds amount to an identity's balance, creating the entry on first
// use. Lookup is case-insensitive; the first-seen casing becomes the entry's
// display address.
func (s *Service) Credit(ctx context.Context, rawIdentity string, amount decimal.Decimal) (decimal.Decimal, error) {
	addr, err := identity.Canonicalize(rawIdentity)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("credit amount must be positive, got %s", amount)
	}

	key := identity.Key(addr)
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	entry, ok, err := s.store.GetEntry(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	now := time.Now().UTC()
	if !ok {
		entry = credit.Entry{Address: addr, Balance: decimal.Zero, CreatedAt: now}
	}
	entry.Balance = entry.Balance.Add(amount)
	entry.UpdatedAt = now

	if err := s.store.PutEntry(ctx, key, entry); err != nil {
		return decimal.Zero, err
	}

	s.log.WithField("address", entry.Address).
		WithField("amount", amount.String()).
		WithField("balance", entry.Balance.String()).
		Info("credit recorded")
	return entry.Balance, nil
}

// BalanceOf returns the identity's current balance; unknown identities have a
// zero balance rather than an error.
func (s *Service) BalanceOf(ctx context.Context, rawIdentity string) (decimal.Decimal, error) {
	addr, err := identity.Canonicalize(rawIdentity)
	if err != nil {
		return decimal.Zero, err
	}

	entry, ok, err := s.store.GetEntry(ctx, identity.Key(addr))
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return entry.Balance, nil
}

// TryDebit atomically checks balance >= amount and decrements in the same
// critical section. Two concurrent debits against one identity can never
// both observe sufficient balance before either decrements.
func (s *Service) TryDebit(ctx context.Context, rawIdentity string, amount decimal.Decimal) (decimal.Decimal, error) {
	addr, err := identity.Canonicalize(rawIdentity)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("debit amount must be positive, got %s", amount)
	}

	key := identity.Key(addr)
	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	entry, ok, err := s.store.GetEntry(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		entry = credit.Entry{Address: addr, Balance: decimal.Zero}
	}
	if entry.Balance.LessThan(amount) {
		return entry.Balance, &InsufficientBalanceError{Address: entry.Address, Have: entry.Balance, Need: amount}
	}

	entry.Balance = entry.Balance.Sub(amount)
	entry.UpdatedAt = time.Now().UTC()
	if err := s.store.PutEntry(ctx, key, entry); err != nil {
		return decimal.Zero, err
	}

	s.log.WithField("address", entry.Address).
		WithField("amount", amount.String()).
		WithField("balance", entry.Balance.String()).
		Info("debit recorded")
	return entry.Balance, nil
}

// Entries returns a snapshot of all ledger entries.
func (s *Service) Entries(ctx context.Context) ([]credit.Entry, error) {
	return s.store.ListEntries(ctx)
}

// Totals returns the number of tracked identities and the sum of all
// balances, for health reporting.
func (s *Service) Totals(ctx context.Context) (int, decimal.Decimal, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return 0, decimal.Zero, err
	}
	sum := decimal.Zero
	for _, entry := range entries {
		sum = sum.Add(entry.Balance)
	}
	return len(entries), sum, nil
}
