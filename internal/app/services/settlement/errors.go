package settlement

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable classification of a claim failure.
type Kind string

const (
	// KindInvalidFormat: request input failed syntactic validation. No side
	// effects.
	KindInvalidFormat Kind = "invalid_format"
	// KindInvalidAddress: the chain client rejected the address checksum.
	// No side effects.
	KindInvalidAddress Kind = "invalid_address"
	// KindInsufficientBalance: credit balance below the requested amount.
	// No side effects; the message carries the exact shortfall.
	KindInsufficientBalance Kind = "insufficient_balance"
	// KindClaimInFlight: another claim for this identity has not reached a
	// terminal state yet.
	KindClaimInFlight Kind = "claim_in_flight"
	// KindTreasuryLiquidityLow: treasury cannot cover amount plus the safety
	// margin. Credit restored; safe to retry.
	KindTreasuryLiquidityLow Kind = "treasury_liquidity_low"
	// KindTreasuryUnavailable: the chain client is unreachable or not
	// configured. Credit restored if already reserved; safe to retry.
	KindTreasuryUnavailable Kind = "treasury_unavailable"
	// KindBroadcastFailed: the transfer never reached the network. Credit
	// restored; safe to retry.
	KindBroadcastFailed Kind = "transfer_broadcast_failed"
	// KindTransferReverted: the transfer was mined but reverted. Credit
	// restored; a retry may or may not help.
	KindTransferReverted Kind = "transfer_reverted"
	// KindConfirmationTimeout: the transfer was broadcast but no receipt
	// arrived in time. Credit stays debited because the transfer may still
	// land.
	// NOT safe to blindly retry; check transfer status first.
	KindConfirmationTimeout Kind = "confirmation_timeout"
)

// Error is a classified claim failure.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf extracts the failure kind from an error, or "" for unclassified
// errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
