// Package config loads process configuration from the environment, with an
// optional YAML overlay for deployments that prefer a file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort              = 8000
	defaultETHPriceUSD       = "3450"
	defaultSafetyMarginETH   = "0.002"
	defaultConfirmTimeout    = 2 * time.Minute
	defaultChainID           = 1
	defaultRateLimitPerSec   = 20
	defaultRateLimitBurst    = 40
	defaultPublicRPCEndpoint = "https://eth-mainnet.public.blastapi.io"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`

	Chain struct {
		RPCURL          string        `yaml:"rpc_url"`
		AlchemyAPIKey   string        `yaml:"alchemy_api_key"`
		ChainID         uint64        `yaml:"chain_id"`
		TreasuryAddress string        `yaml:"treasury_address"`
		TreasuryKey     string        `yaml:"treasury_key"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
	} `yaml:"chain"`

	Settlement struct {
		SafetyMarginETH     decimal.Decimal `yaml:"safety_margin_eth"`
		ConfirmationTimeout time.Duration   `yaml:"confirmation_timeout"`
	} `yaml:"settlement"`

	Pricing struct {
		ETHPriceUSD decimal.Decimal `yaml:"eth_price_usd"`
	} `yaml:"pricing"`

	RateLimit struct {
		RequestsPerSecond int `yaml:"requests_per_second"`
		Burst             int `yaml:"burst"`
	} `yaml:"rate_limit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// Load reads configuration from the environment. When CONFIG_FILE names a
// YAML file it is read first and environment variables override it.
func Load() (*Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Chain.RPCURL == "" {
		if key := cfg.Chain.AlchemyAPIKey; len(key) > 10 {
			cfg.Chain.RPCURL = "https://eth-mainnet.g.alchemy.com/v2/" + key
		} else {
			cfg.Chain.RPCURL = defaultPublicRPCEndpoint
		}
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = defaultPort
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "stdout"
	cfg.Chain.ChainID = defaultChainID
	cfg.Chain.RequestTimeout = 60 * time.Second
	cfg.Settlement.SafetyMarginETH = decimal.RequireFromString(defaultSafetyMarginETH)
	cfg.Settlement.ConfirmationTimeout = defaultConfirmTimeout
	cfg.Pricing.ETHPriceUSD = decimal.RequireFromString(defaultETHPriceUSD)
	cfg.RateLimit.RequestsPerSecond = defaultRateLimitPerSec
	cfg.RateLimit.Burst = defaultRateLimitBurst
	cfg.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Host, "HOST")
	if err := setInt(&cfg.Server.Port, "PORT"); err != nil {
		return err
	}
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")
	setString(&cfg.Logging.Output, "LOG_OUTPUT")

	setString(&cfg.Chain.RPCURL, "ETH_RPC_URL")
	setString(&cfg.Chain.AlchemyAPIKey, "ALCHEMY_API_KEY")
	setString(&cfg.Chain.TreasuryAddress, "TREASURY_ADDRESS")
	setString(&cfg.Chain.TreasuryKey, "TREASURY_PRIVATE_KEY")
	if err := setUint(&cfg.Chain.ChainID, "CHAIN_ID"); err != nil {
		return err
	}

	if err := setDecimal(&cfg.Pricing.ETHPriceUSD, "ETH_PRICE_USD"); err != nil {
		return err
	}
	if err := setDecimal(&cfg.Settlement.SafetyMarginETH, "CLAIM_SAFETY_MARGIN_ETH"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Settlement.ConfirmationTimeout, "CLAIM_CONFIRMATION_TIMEOUT"); err != nil {
		return err
	}
	if err := setInt(&cfg.RateLimit.RequestsPerSecond, "RATE_LIMIT_RPS"); err != nil {
		return err
	}
	if err := setInt(&cfg.RateLimit.Burst, "RATE_LIMIT_BURST"); err != nil {
		return err
	}
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		parts := strings.Split(raw, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
	return nil
}

func setString(dst *string, key string) {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		*dst = raw
	}
}

func setInt(dst *int, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = v
	return nil
}

func setUint(dst *uint64, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%s must be a non-negative integer: %w", key, err)
	}
	*dst = v
	return nil
}

func setDecimal(dst *decimal.Decimal, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%s must be a decimal number: %w", key, err)
	}
	*dst = v
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s must be a duration: %w", key, err)
	}
	*dst = v
	return nil
}
