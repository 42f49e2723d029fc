// Package httpapi exposes the earning backend REST surface.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/jluxury929-hash/earning-backend/internal/app"
	"github.com/jluxury929-hash/earning-backend/internal/app/identity"
	"github.com/jluxury929-hash/earning-backend/internal/app/metrics"
	settlementsvc "github.com/jluxury929-hash/earning-backend/internal/app/services/settlement"
)

const serviceVersion = "7.0.0"

// walletNotConnected marks deposits recorded before the user linked a wallet.
// They are tracked for the treasury total but never credited to an identity.
const walletNotConnected = "not_connected"

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns a mux exposing the core REST API.
func NewHandler(application *app.Application) http.Handler {
	h := &handler{app: application}
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.root)
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/treasury/receive", h.receiveEarnings)
	mux.HandleFunc("/claim/earnings", h.claimEarnings)
	mux.HandleFunc("/claim/status/", h.claimStatus)
	mux.HandleFunc("/user/credits/", h.userCredits)
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	treasury := h.app.Treasury()
	var treasuryAddr *string
	if treasury != nil {
		addr := treasury.Address()
		treasuryAddr = &addr
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service":              "Earning Backend API",
		"version":              serviceVersion,
		"status":               "online",
		"chain_ready":          treasury != nil,
		"treasury_address":     treasuryAddr,
		"treasury_eth_balance": h.treasuryBalance(r),
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"endpoints": []string{
			"POST /treasury/receive",
			"POST /claim/earnings",
			"GET /user/credits/{wallet}",
			"GET /claim/status/{wallet}",
		},
	})
}

func (h *handler) receiveEarnings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		AmountETH  decimal.Decimal `json:"amountETH"`
		AmountUSD  decimal.Decimal `json:"amountUSD"`
		Source     string          `json:"source"`
		UserWallet string          `json:"userWallet"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_format", err.Error())
		return
	}
	if payload.AmountETH.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_format", "amount must be positive")
		return
	}

	wallet := strings.TrimSpace(payload.UserWallet)
	connected := wallet != "" && wallet != walletNotConnected

	var userTotal *decimal.Decimal
	if connected {
		balance, err := h.app.Ledger.Credit(r.Context(), wallet, payload.AmountETH)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_format", err.Error())
			return
		}
		userTotal = &balance
	}
	metrics.RecordDeposit()

	balance := h.treasuryBalance(r)
	var balanceUSD *decimal.Decimal
	if balance != nil {
		usd := balance.Mul(h.app.PriceUSD)
		balanceUSD = &usd
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":                  true,
		"message":                  "Earnings tracked successfully",
		"amount_eth":               payload.AmountETH,
		"amount_usd":               payload.AmountETH.Mul(h.app.PriceUSD),
		"user_total_credits":       userTotal,
		"treasury_new_balance_eth": balance,
		"treasury_new_balance_usd": balanceUSD,
		"timestamp":                time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) claimEarnings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload struct {
		UserWallet string          `json:"userWallet"`
		AmountETH  decimal.Decimal `json:"amountETH"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_format", err.Error())
		return
	}

	start := time.Now()
	outcome, err := h.app.Settlement.Claim(r.Context(), payload.UserWallet, payload.AmountETH)
	if err != nil {
		kind := settlementsvc.KindOf(err)
		metrics.RecordClaim(string(kind), time.Since(start))

		if kind == settlementsvc.KindConfirmationTimeout {
			// The transfer was broadcast and may still land. The debit stands
			// and the claim stays queryable via /claim/status.
			writeJSON(w, http.StatusGatewayTimeout, map[string]any{
				"success":   false,
				"status":    "pending",
				"kind":      string(kind),
				"error":     err.Error(),
				"claim_id":  outcome.ClaimID,
				"txHash":    outcome.TxHash,
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
		writeError(w, claimStatusCode(kind), string(kind), err.Error())
		return
	}
	metrics.RecordClaim("confirmed", time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":                true,
		"claim_id":               outcome.ClaimID,
		"txHash":                 outcome.TxHash,
		"blockNumber":            outcome.BlockNumber,
		"gasUsed":                outcome.FeePaid,
		"amountSent":             outcome.Amount,
		"recipient":              outcome.Address,
		"etherscanUrl":           "https://etherscan.io/tx/" + outcome.TxHash,
		"user_remaining_credits": outcome.BalanceAfter,
		"timestamp":              outcome.CreatedAt.Format(time.RFC3339),
	})
}

func (h *handler) claimStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	wallet := strings.Trim(strings.TrimPrefix(r.URL.Path, "/claim/status"), "/")
	if _, err := identity.Canonicalize(wallet); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_format", "invalid address format")
		return
	}

	outcome, ok := h.app.Settlement.LastOutcome(wallet)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no claim recorded for this wallet")
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *handler) userCredits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	wallet := strings.Trim(strings.TrimPrefix(r.URL.Path, "/user/credits"), "/")
	if _, err := identity.Canonicalize(wallet); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_format", "invalid address format")
		return
	}

	balance, err := h.app.Ledger.BalanceOf(r.Context(), wallet)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"wallet":      wallet,
		"credits_eth": balance,
		"credits_usd": balance.Mul(h.app.PriceUSD),
		"can_claim":   balance.Sign() > 0,
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	users, total, err := h.app.Ledger.Totals(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":               "healthy",
		"chain_ready":          h.app.Treasury() != nil,
		"treasury_balance_eth": h.treasuryBalance(r),
		"total_users":          users,
		"total_credits_eth":    total,
	})
}

// treasuryBalance returns the live treasury balance, or nil in API-only mode
// or when the node is unreachable. Balance display is best-effort.
func (h *handler) treasuryBalance(r *http.Request) *decimal.Decimal {
	treasury := h.app.Treasury()
	if treasury == nil {
		return nil
	}
	balance, err := treasury.Liquidity(r.Context())
	if err != nil {
		return nil
	}
	return &balance
}

// claimStatusCode maps a settlement failure kind to an HTTP status.
func claimStatusCode(kind settlementsvc.Kind) int {
	switch kind {
	case settlementsvc.KindInvalidFormat, settlementsvc.KindInvalidAddress, settlementsvc.KindInsufficientBalance:
		return http.StatusBadRequest
	case settlementsvc.KindClaimInFlight:
		return http.StatusConflict
	case settlementsvc.KindTreasuryLiquidityLow, settlementsvc.KindTreasuryUnavailable, settlementsvc.KindBroadcastFailed:
		return http.StatusServiceUnavailable
	case settlementsvc.KindTransferReverted:
		return http.StatusBadGateway
	case settlementsvc.KindConfirmationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": message, "kind": kind})
}
