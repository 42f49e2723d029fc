// Package main runs the earning backend HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/jluxury929-hash/earning-backend/internal/app"
	"github.com/jluxury929-hash/earning-backend/internal/app/httpapi"
	"github.com/jluxury929-hash/earning-backend/internal/app/metrics"
	settlementsvc "github.com/jluxury929-hash/earning-backend/internal/app/services/settlement"
	"github.com/jluxury929-hash/earning-backend/internal/chain"
	"github.com/jluxury929-hash/earning-backend/internal/config"
	"github.com/jluxury929-hash/earning-backend/internal/middleware"
	"github.com/jluxury929-hash/earning-backend/pkg/logger"
)

func main() {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		Module: "server",
	})

	treasury := buildTreasury(cfg, log)

	application, err := app.New(app.Stores{}, treasury, settlementsvc.Config{
		SafetyMargin:        cfg.Settlement.SafetyMarginETH,
		ConfirmationTimeout: cfg.Settlement.ConfirmationTimeout,
	}, cfg.Pricing.ETHPriceUSD, log)
	if err != nil {
		log.WithError(err).Error("build application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.WithError(err).Error("start application")
		os.Exit(1)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	limiter.StartCleanup(10 * time.Minute)
	cors := middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)

	requestLog := middleware.NewLoggingMiddleware(log)

	handler := httpapi.NewHandler(application)
	handler = limiter.Handler(handler)
	handler = requestLog.Handler(handler)
	handler = cors.Handler(handler)
	handler = metrics.InstrumentHandler(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// Claims hold the connection open through on-chain confirmation.
		WriteTimeout: cfg.Settlement.ConfirmationTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown")
	}
	if err := application.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("application shutdown")
	}
}

// buildTreasury wires the chain client, or returns nil for API-only mode
// when no treasury address is configured.
func buildTreasury(cfg *config.Config, log *logger.Logger) app.TreasuryClient {
	if cfg.Chain.TreasuryAddress == "" {
		log.Warn("TREASURY_ADDRESS not set; running in API-only mode, claims disabled")
		return nil
	}

	client, err := chain.NewClient(chain.Config{
		RPCURL:  cfg.Chain.RPCURL,
		ChainID: cfg.Chain.ChainID,
		Timeout: cfg.Chain.RequestTimeout,
	})
	if err != nil {
		log.WithError(err).Warn("chain client unavailable; running in API-only mode")
		return nil
	}

	if cfg.Chain.TreasuryKey != "" {
		log.Warn("TREASURY_PRIVATE_KEY is set but local signing is not wired; transfers use node-managed signing")
	}

	treasury, err := chain.NewTreasury(client, cfg.Chain.TreasuryAddress, log)
	if err != nil {
		log.WithError(err).Warn("treasury misconfigured; running in API-only mode")
		return nil
	}
	log.WithField("treasury", treasury.Address()).Info("treasury connected")
	return treasury
}
