package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	app "github.com/jluxury929-hash/earning-backend/internal/app"
	settlementsvc "github.com/jluxury929-hash/earning-backend/internal/app/services/settlement"
	"github.com/jluxury929-hash/earning-backend/internal/chain"
)

const testWallet = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

type fakeTreasury struct {
	balance    decimal.Decimal
	confirmErr error
}

func (f *fakeTreasury) Address() string { return "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359" }

func (f *fakeTreasury) ValidateAddress(addr string) (string, error) {
	return chain.ValidateAddress(addr)
}

func (f *fakeTreasury) Liquidity(context.Context) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeTreasury) SubmitTransfer(context.Context, string, decimal.Decimal) (string, error) {
	return "0xdeadbeef", nil
}

func (f *fakeTreasury) AwaitConfirmation(_ context.Context, txHash string, _ time.Duration) (chain.Confirmation, error) {
	if f.confirmErr != nil {
		return chain.Confirmation{}, f.confirmErr
	}
	return chain.Confirmation{TxHash: txHash, BlockNumber: 42, FeePaid: decimal.RequireFromString("0.0002")}, nil
}

func newTestHandler(t *testing.T, treasury app.TreasuryClient) http.Handler {
	t.Helper()
	application, err := app.New(app.Stores{}, treasury, settlementsvc.Config{}, decimal.NewFromInt(2000), nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { _ = application.Stop(context.Background()) })
	return NewHandler(application)
}

func marshal(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body *bytes.Reader) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	var decoded map[string]any
	if resp.Body.Len() > 0 {
		if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("unmarshal %s %s response: %v", method, path, err)
		}
	}
	return resp.Code, decoded
}

func TestReceiveThenQueryThenClaim(t *testing.T) {
	handler := newTestHandler(t, &fakeTreasury{balance: decimal.NewFromInt(5)})

	code, body := doJSON(t, handler, http.MethodPost, "/treasury/receive", marshal(t, map[string]any{
		"amountETH":  0.75,
		"userWallet": testWallet,
	}))
	if code != http.StatusOK {
		t.Fatalf("receive: expected 200, got %d (%v)", code, body)
	}
	if body["user_total_credits"] != "0.75" {
		t.Fatalf("expected 0.75 credits, got %v", body["user_total_credits"])
	}
	if body["amount_usd"] != "1500" {
		t.Fatalf("expected 1500 USD, got %v", body["amount_usd"])
	}

	code, body = doJSON(t, handler, http.MethodGet, "/user/credits/"+testWallet, nil)
	if code != http.StatusOK {
		t.Fatalf("credits: expected 200, got %d", code)
	}
	if body["credits_eth"] != "0.75" {
		t.Fatalf("expected 0.75 ETH, got %v", body["credits_eth"])
	}
	if body["can_claim"] != true {
		t.Fatalf("expected can_claim true, got %v", body["can_claim"])
	}

	code, body = doJSON(t, handler, http.MethodPost, "/claim/earnings", marshal(t, map[string]any{
		"userWallet": testWallet,
		"amountETH":  0.5,
	}))
	if code != http.StatusOK {
		t.Fatalf("claim: expected 200, got %d (%v)", code, body)
	}
	if body["txHash"] != "0xdeadbeef" {
		t.Fatalf("expected tx hash, got %v", body["txHash"])
	}
	if body["user_remaining_credits"] != "0.25" {
		t.Fatalf("expected 0.25 remaining, got %v", body["user_remaining_credits"])
	}

	code, _ = doJSON(t, handler, http.MethodGet, "/claim/status/"+testWallet, nil)
	if code != http.StatusOK {
		t.Fatalf("claim status: expected 200, got %d", code)
	}
}

func TestReceiveNotConnectedTracksNoCredit(t *testing.T) {
	handler := newTestHandler(t, &fakeTreasury{balance: decimal.NewFromInt(5)})

	code, body := doJSON(t, handler, http.MethodPost, "/treasury/receive", marshal(t, map[string]any{
		"amountETH":  0.5,
		"userWallet": "not_connected",
	}))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["user_total_credits"] != nil {
		t.Fatalf("expected null credits, got %v", body["user_total_credits"])
	}

	code, body = doJSON(t, handler, http.MethodGet, "/health", nil)
	if code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", code)
	}
	if body["total_users"].(float64) != 0 {
		t.Fatalf("not_connected deposit created an identity: %v", body["total_users"])
	}
}

func TestClaimErrorMapping(t *testing.T) {
	handler := newTestHandler(t, &fakeTreasury{balance: decimal.NewFromInt(5)})

	// No credits yet.
	code, body := doJSON(t, handler, http.MethodPost, "/claim/earnings", marshal(t, map[string]any{
		"userWallet": testWallet,
		"amountETH":  0.5,
	}))
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body["kind"] != "insufficient_balance" {
		t.Fatalf("expected insufficient_balance, got %v", body["kind"])
	}

	code, body = doJSON(t, handler, http.MethodPost, "/claim/earnings", marshal(t, map[string]any{
		"userWallet": "garbage",
		"amountETH":  0.5,
	}))
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad wallet, got %d", code)
	}
	if body["kind"] != "invalid_format" {
		t.Fatalf("expected invalid_format, got %v", body["kind"])
	}
}

func TestClaimAPIOnlyModeUnavailable(t *testing.T) {
	handler := newTestHandler(t, nil)

	code, body := doJSON(t, handler, http.MethodPost, "/treasury/receive", marshal(t, map[string]any{
		"amountETH":  1,
		"userWallet": testWallet,
	}))
	if code != http.StatusOK {
		t.Fatalf("receive must work without chain, got %d", code)
	}
	if body["treasury_new_balance_eth"] != nil {
		t.Fatalf("expected null treasury balance, got %v", body["treasury_new_balance_eth"])
	}

	code, body = doJSON(t, handler, http.MethodPost, "/claim/earnings", marshal(t, map[string]any{
		"userWallet": testWallet,
		"amountETH":  0.5,
	}))
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if body["kind"] != "treasury_unavailable" {
		t.Fatalf("expected treasury_unavailable, got %v", body["kind"])
	}

	// Reads keep working.
	code, _ = doJSON(t, handler, http.MethodGet, "/user/credits/"+testWallet, nil)
	if code != http.StatusOK {
		t.Fatalf("credits must work without chain, got %d", code)
	}
}

func TestClaimConfirmationTimeoutReportsPending(t *testing.T) {
	handler := newTestHandler(t, &fakeTreasury{
		balance:    decimal.NewFromInt(5),
		confirmErr: chain.ErrConfirmationTimeout,
	})

	code, _ := doJSON(t, handler, http.MethodPost, "/treasury/receive", marshal(t, map[string]any{
		"amountETH":  1,
		"userWallet": testWallet,
	}))
	if code != http.StatusOK {
		t.Fatalf("receive: got %d", code)
	}

	code, body := doJSON(t, handler, http.MethodPost, "/claim/earnings", marshal(t, map[string]any{
		"userWallet": testWallet,
		"amountETH":  0.5,
	}))
	if code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", code)
	}
	if body["status"] != "pending" {
		t.Fatalf("expected pending status, got %v", body["status"])
	}
	if body["txHash"] == "" || body["txHash"] == nil {
		t.Fatalf("pending response must carry the tx hash: %v", body)
	}

	code, body = doJSON(t, handler, http.MethodGet, "/claim/status/"+testWallet, nil)
	if code != http.StatusOK {
		t.Fatalf("claim status: got %d", code)
	}
	if body["status"] != "pending" {
		t.Fatalf("expected pending outcome, got %v", body["status"])
	}
}

func TestCreditsRejectsMalformedWallet(t *testing.T) {
	handler := newTestHandler(t, nil)

	code, body := doJSON(t, handler, http.MethodGet, "/user/credits/0x123", nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if body["kind"] != "invalid_format" {
		t.Fatalf("expected invalid_format, got %v", body["kind"])
	}
}

func TestRootAndMetrics(t *testing.T) {
	handler := newTestHandler(t, &fakeTreasury{balance: decimal.NewFromInt(5)})

	code, body := doJSON(t, handler, http.MethodGet, "/", nil)
	if code != http.StatusOK {
		t.Fatalf("root: got %d", code)
	}
	if body["status"] != "online" {
		t.Fatalf("expected online, got %v", body["status"])
	}
	if body["chain_ready"] != true {
		t.Fatalf("expected chain_ready, got %v", body["chain_ready"])
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", resp.Code)
	}
	if resp.Body.Len() == 0 {
		t.Fatal("expected metrics output to be non-empty")
	}

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown path, got %d", resp.Code)
	}
}
