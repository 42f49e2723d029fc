package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func rpcServer(t *testing.T, handler func(method string, params []any) (any, *RPCError)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RPCRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode rpc request: %v", err)
			return
		}
		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClientBalance(t *testing.T) {
	srv := rpcServer(t, func(method string, _ []any) (any, *RPCError) {
		if method != "eth_getBalance" {
			return nil, &RPCError{Code: -32601, Message: "unexpected method " + method}
		}
		// 1.5 ETH in wei.
		return "0x14d1120d7b160000", nil
	})
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	balance, err := client.Balance(context.Background(), "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.String() != "1.5" {
		t.Fatalf("expected 1.5 ETH, got %s", balance)
	}
}

func TestClientRPCError(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, *RPCError) {
		return nil, &RPCError{Code: -32000, Message: "nonce too low"}
	})
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var rpcErr *RPCError
	if _, err := client.SendRawTransaction(context.Background(), "0xdead"); !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
}

func TestAwaitReceiptPollsUntilMined(t *testing.T) {
	var calls atomic.Int64
	srv := rpcServer(t, func(method string, _ []any) (any, *RPCError) {
		if method != "eth_getTransactionReceipt" {
			return nil, &RPCError{Code: -32601, Message: "unexpected method " + method}
		}
		if calls.Add(1) < 3 {
			return nil, nil // still pending
		}
		return map[string]string{
			"transactionHash":   "0xabc",
			"blockNumber":       "0x10",
			"status":            "0x1",
			"gasUsed":           "0x5208",
			"effectiveGasPrice": "0x3b9aca00",
		}, nil
	})
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL, PollInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	receipt, err := client.AwaitReceipt(context.Background(), "0xabc", time.Second)
	if err != nil {
		t.Fatalf("await receipt: %v", err)
	}
	if !receipt.Succeeded() {
		t.Fatal("receipt should report success")
	}
	if calls.Load() < 3 {
		t.Fatalf("expected polling, got %d calls", calls.Load())
	}
}

func TestAwaitReceiptTimesOut(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, *RPCError) {
		return nil, nil // forever pending
	})
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL, PollInterval: 5 * time.Millisecond})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.AwaitReceipt(context.Background(), "0xabc", 30*time.Millisecond)
	if !errors.Is(err, ErrConfirmationTimeout) {
		t.Fatalf("expected ErrConfirmationTimeout, got %v", err)
	}
}
