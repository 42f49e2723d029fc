package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	ledgersvc "github.com/jluxury929-hash/earning-backend/internal/app/services/ledger"
	settlementsvc "github.com/jluxury929-hash/earning-backend/internal/app/services/settlement"
	"github.com/jluxury929-hash/earning-backend/internal/app/storage"
	"github.com/jluxury929-hash/earning-backend/internal/app/storage/memory"
	"github.com/jluxury929-hash/earning-backend/internal/app/system"
	"github.com/jluxury929-hash/earning-backend/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Credits storage.CreditStore
}

// TreasuryClient is the chain-side dependency the application settles
// against. Nil means the backend runs API-only: credits accrue and are
// queryable, claims fail with treasury_unavailable.
type TreasuryClient interface {
	settlementsvc.TreasuryClient
	Address() string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager  *system.Manager
	log      *logger.Logger
	treasury TreasuryClient

	// PriceUSD converts credited ETH amounts to an indicative USD figure in
	// API responses. It is display-only and never enters settlement math.
	PriceUSD decimal.Decimal

	Ledger     *ledgersvc.Service
	Settlement *settlementsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, treasury TreasuryClient, cfg settlementsvc.Config, priceUSD decimal.Decimal, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if stores.Credits == nil {
		stores.Credits = memory.New()
	}
	if priceUSD.Sign() <= 0 {
		priceUSD = decimal.NewFromInt(3450)
	}

	manager := system.NewManager()

	ledgerService := ledgersvc.New(stores.Credits, log)

	var settlementTreasury settlementsvc.TreasuryClient
	if treasury != nil {
		settlementTreasury = treasury
	}
	settlementService := settlementsvc.New(ledgerService, settlementTreasury, cfg, log)

	for _, name := range []string{"ledger", "settlement"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:    manager,
		log:        log,
		treasury:   treasury,
		PriceUSD:   priceUSD,
		Ledger:     ledgerService,
		Settlement: settlementService,
	}, nil
}

// Treasury returns the chain-side client, or nil in API-only mode.
func (a *Application) Treasury() TreasuryClient {
	return a.treasury
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
