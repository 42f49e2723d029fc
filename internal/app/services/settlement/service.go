// Package settlement orchestrates claims: it reserves credit from the
// ledger, delegates the fund transfer to the chain client, and reconciles
// ledger state against the transfer outcome.
package settlement

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	domain "github.com/jluxury929-hash/earning-backend/internal/app/domain/settlement"
	"github.com/jluxury929-hash/earning-backend/internal/app/identity"
	ledgersvc "github.com/jluxury929-hash/earning-backend/internal/app/services/ledger"
	"github.com/jluxury929-hash/earning-backend/internal/chain"
	"github.com/jluxury929-hash/earning-backend/pkg/logger"
)

// TreasuryClient is the chain-side capability the coordinator settles
// against. Implemented by chain.Treasury; stubbed in tests.
type TreasuryClient interface {
	ValidateAddress(addr string) (string, error)
	Liquidity(ctx context.Context) (decimal.Decimal, error)
	SubmitTransfer(ctx context.Context, to string, amount decimal.Decimal) (string, error)
	AwaitConfirmation(ctx context.Context, txHash string, timeout time.Duration) (chain.Confirmation, error)
}

// Config tunes the coordinator.
type Config struct {
	// SafetyMargin is liquidity the treasury must hold beyond the claimed
	// amount, covering the settlement's own transaction fee.
	SafetyMargin decimal.Decimal
	// ConfirmationTimeout bounds the wait for an on-chain receipt.
	ConfirmationTimeout time.Duration
}

// Service runs the claim state machine. A per-identity in-flight marker is
// held from reservation until the claim reaches a terminal state, so a second
// claim can never reserve against a balance that is about to be restored.
type Service struct {
	ledger   *ledgersvc.Service
	treasury TreasuryClient
	cfg      Config
	log      *logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	outcomes map[string]domain.Outcome
}

// New constructs a settlement coordinator. treasury may be nil, in which case
// every claim fails with KindTreasuryUnavailable.
func New(ledger *ledgersvc.Service, treasury TreasuryClient, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("settlement")
	}
	if cfg.SafetyMargin.IsZero() {
		cfg.SafetyMargin = decimal.RequireFromString("0.002")
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 2 * time.Minute
	}
	return &Service{
		ledger:   ledger,
		treasury: treasury,
		cfg:      cfg,
		log:      log,
		inFlight: make(map[string]struct{}),
		outcomes: make(map[string]domain.Outcome),
	}
}

// InFlight reports whether a claim for the identity is between reservation
// and terminal state.
func (s *Service) InFlight(rawIdentity string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inFlight[identity.Key(rawIdentity)]
	return ok
}

// LastOutcome returns the most recent claim outcome recorded for an identity.
func (s *Service) LastOutcome(rawIdentity string) (domain.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.outcomes[identity.Key(rawIdentity)]
	return outcome, ok
}

// Claim converts credit into a real fund transfer. On success the returned
// outcome is Confirmed and the debit is final. Failure paths restore the
// debit except after a confirmation timeout, where the transfer may still
// land and the claim is left pending for out-of-band reconciliation.
func (s *Service) Claim(ctx context.Context, rawWallet string, amount decimal.Decimal) (domain.Outcome, error) {
	if amount.Sign() <= 0 {
		return domain.Outcome{}, newError(KindInvalidFormat, nil, "amount must be positive, got %s", amount)
	}
	addr, err := identity.Canonicalize(rawWallet)
	if err != nil {
		return domain.Outcome{}, newError(KindInvalidFormat, err, "invalid wallet address")
	}
	if s.treasury == nil {
		return domain.Outcome{}, newError(KindTreasuryUnavailable, nil, "treasury not initialized")
	}

	recipient, err := s.treasury.ValidateAddress(addr)
	if err != nil {
		return domain.Outcome{}, newError(KindInvalidAddress, err, "address rejected by chain client")
	}

	key := identity.Key(addr)
	if !s.acquire(key) {
		return domain.Outcome{}, newError(KindClaimInFlight, nil, "a claim for %s is already in progress", recipient)
	}
	defer s.release(key)

	// Advisory read for a clear shortfall message; TryDebit below is the
	// authoritative check.
	balance, err := s.ledger.BalanceOf(ctx, addr)
	if err != nil {
		return domain.Outcome{}, newError(KindInvalidFormat, err, "balance lookup failed")
	}
	if balance.LessThan(amount) {
		return domain.Outcome{}, newError(KindInsufficientBalance, nil, "need %s, have %s", amount, balance)
	}

	if _, err := s.ledger.TryDebit(ctx, addr, amount); err != nil {
		var shortfall *ledgersvc.InsufficientBalanceError
		if errors.As(err, &shortfall) {
			return domain.Outcome{}, newError(KindInsufficientBalance, err, "need %s, have %s", shortfall.Need, shortfall.Have)
		}
		return domain.Outcome{}, newError(KindInvalidFormat, err, "debit failed")
	}

	// The claimed amount is now reserved outside the ledger and owned by
	// this claim until a terminal state.
	claimID := uuid.New().String()
	claimLog := s.log.WithField("claim_id", claimID).WithField("address", recipient).WithField("amount", amount.String())

	liquidity, err := s.treasury.Liquidity(ctx)
	if err != nil {
		s.restore(ctx, addr, amount, claimLog)
		return domain.Outcome{}, newError(KindTreasuryUnavailable, err, "treasury liquidity unavailable")
	}
	if liquidity.LessThan(amount.Add(s.cfg.SafetyMargin)) {
		s.restore(ctx, addr, amount, claimLog)
		return domain.Outcome{}, newError(KindTreasuryLiquidityLow, nil,
			"treasury liquidity %s below %s plus %s margin", liquidity, amount, s.cfg.SafetyMargin)
	}

	txHash, err := s.treasury.SubmitTransfer(ctx, recipient, amount)
	if err != nil {
		s.restore(ctx, addr, amount, claimLog)
		return domain.Outcome{}, newError(KindBroadcastFailed, err, "transfer broadcast failed")
	}
	claimLog = claimLog.WithField("tx_hash", txHash)

	confirmation, err := s.treasury.AwaitConfirmation(ctx, txHash, s.cfg.ConfirmationTimeout)
	if err != nil {
		if errors.Is(err, chain.ErrTransferReverted) {
			s.restore(ctx, addr, amount, claimLog)
			restored, _ := s.ledger.BalanceOf(ctx, addr)
			outcome := s.record(key, domain.Outcome{
				ClaimID: claimID, Address: recipient, Amount: amount, TxHash: txHash,
				FeePaid: decimal.Zero, Status: domain.StatusFailed,
				BalanceAfter: restored, CreatedAt: time.Now().UTC(),
			})
			claimLog.Warn("transfer reverted; credit restored")
			return outcome, newError(KindTransferReverted, err, "transfer reverted on-chain")
		}

		// Anything after a successful broadcast that is not an explicit
		// revert is ambiguous: the transfer may still land, so the debit
		// must stand until reconciled out of band.
		outcome := s.record(key, domain.Outcome{
			ClaimID: claimID, Address: recipient, Amount: amount, TxHash: txHash,
			FeePaid: decimal.Zero, Status: domain.StatusPending, CreatedAt: time.Now().UTC(),
		})
		claimLog.Warn("confirmation timed out; claim left pending")
		return outcome, newError(KindConfirmationTimeout, err, "no confirmation for %s within %s", txHash, s.cfg.ConfirmationTimeout)
	}

	remaining, err := s.ledger.BalanceOf(ctx, addr)
	if err != nil {
		remaining = decimal.Zero
	}
	outcome := s.record(key, domain.Outcome{
		ClaimID:      claimID,
		Address:      recipient,
		Amount:       amount,
		TxHash:       confirmation.TxHash,
		BlockNumber:  confirmation.BlockNumber,
		FeePaid:      confirmation.FeePaid,
		Status:       domain.StatusConfirmed,
		BalanceAfter: remaining,
		CreatedAt:    time.Now().UTC(),
	})
	claimLog.WithField("block", confirmation.BlockNumber).Info("claim settled")
	return outcome, nil
}

func (s *Service) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inFlight[key]; ok {
		return false
	}
	s.inFlight[key] = struct{}{}
	return true
}

func (s *Service) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, key)
}

// restore is the compensating credit after a failed settlement.
func (s *Service) restore(ctx context.Context, addr string, amount decimal.Decimal, log *logger.Logger) {
	if _, err := s.ledger.Credit(ctx, addr, amount); err != nil {
		log.WithError(err).Error("failed to restore reserved credit")
	}
}

func (s *Service) record(key string, outcome domain.Outcome) domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[key] = outcome
	return outcome
}
