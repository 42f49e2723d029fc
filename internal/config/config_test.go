package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Fatalf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Settlement.SafetyMarginETH.String() != "0.002" {
		t.Fatalf("expected 0.002 margin, got %s", cfg.Settlement.SafetyMarginETH)
	}
	if cfg.Settlement.ConfirmationTimeout != 2*time.Minute {
		t.Fatalf("expected 2m confirmation timeout, got %s", cfg.Settlement.ConfirmationTimeout)
	}
	if cfg.Chain.RPCURL == "" {
		t.Fatal("expected a fallback RPC URL")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("ETH_RPC_URL", "http://localhost:8545")
	t.Setenv("ETH_PRICE_USD", "2500")
	t.Setenv("CLAIM_SAFETY_MARGIN_ETH", "0.01")
	t.Setenv("CLAIM_CONFIRMATION_TIMEOUT", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Fatalf("port override ignored: %d", cfg.Server.Port)
	}
	if cfg.Chain.RPCURL != "http://localhost:8545" {
		t.Fatalf("rpc url override ignored: %s", cfg.Chain.RPCURL)
	}
	if cfg.Pricing.ETHPriceUSD.String() != "2500" {
		t.Fatalf("price override ignored: %s", cfg.Pricing.ETHPriceUSD)
	}
	if cfg.Settlement.SafetyMarginETH.String() != "0.01" {
		t.Fatalf("margin override ignored: %s", cfg.Settlement.SafetyMarginETH)
	}
	if cfg.Settlement.ConfirmationTimeout != 90*time.Second {
		t.Fatalf("timeout override ignored: %s", cfg.Settlement.ConfirmationTimeout)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("cors override ignored: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadAlchemyFallback(t *testing.T) {
	t.Setenv("ALCHEMY_API_KEY", "abcdef123456789xyz")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := "https://eth-mainnet.g.alchemy.com/v2/abcdef123456789xyz"
	if cfg.Chain.RPCURL != want {
		t.Fatalf("expected alchemy url %s, got %s", want, cfg.Chain.RPCURL)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}
