// Package control wires the verifier's components and manages their lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/depositverifier/internal/api"
	"github.com/vietddude/depositverifier/internal/core/config"
	"github.com/vietddude/depositverifier/internal/deposit"
	"github.com/vietddude/depositverifier/internal/indexing/health"
	"github.com/vietddude/depositverifier/internal/infra/chain/evm"
	redisclient "github.com/vietddude/depositverifier/internal/infra/redis"
	"github.com/vietddude/depositverifier/internal/infra/rpc"
	"github.com/vietddude/depositverifier/internal/infra/storage"
	"github.com/vietddude/depositverifier/internal/infra/storage/memory"
	"github.com/vietddude/depositverifier/internal/infra/storage/postgres"
)

// Options tune how the App is assembled.
type Options struct {
	// AutoMigrate applies pending schema migrations on startup.
	AutoMigrate bool
}

// App is the main application struct that owns every component.
type App struct {
	cfg         *config.AppConfig
	provider    *rpc.BreakerProvider
	adapter     *evm.EVMAdapter
	store       storage.LedgerStore
	db          *postgres.DB
	redisClient *redisclient.Client
	verifier    *deposit.Verifier
	healthMon   *health.Monitor
	server      *api.Server
	log         *slog.Logger
}

// NewApp creates a new App with all dependencies initialized.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg: cfg,
		log: slog.Default().With("component", "app"),
	}

	// 1. Initialize Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if opts.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		a.db = db
		a.store = postgres.NewLedgerRepo(db)
		a.log.Info("Using PostgreSQL storage", "driver", cfg.Database.Driver)
	} else {
		a.store = memory.NewMemoryStorage()
		a.log.Warn("Using Memory storage, ledger is lost on restart")
	}

	// 2. Initialize RPC and chain adapter
	chainName := cfg.Chain.InternalCode
	a.provider = rpc.New(rpc.Options{
		Name:     "primary",
		Chain:    string(chainName),
		Endpoint: cfg.Chain.RPCURL,
		Timeout:  cfg.Chain.RPCTimeout,
		Breaker: rpc.BreakerConfig{
			MaxFailures: cfg.Chain.Breaker.MaxFailures,
			OpenTimeout: cfg.Chain.Breaker.OpenTimeout,
		},
	})
	a.adapter = evm.NewEVMAdapter(chainName, a.provider)

	// 3. Optional Redis lock
	var locker deposit.Locker
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.log.Warn("Redis unavailable, verify lock disabled", "error", err)
		} else {
			a.redisClient = client
			locker = client
			a.log.Info("Redis verify lock enabled", "ttl", cfg.Redis.LockTTL)
		}
	}

	// 4. Deposit verification
	engine := deposit.NewEngine(a.store, chainName, cfg.Chain.TokenSymbol)
	a.verifier = deposit.NewVerifier(deposit.Config{
		ChainID:                 cfg.Chain.ChainID,
		Chain:                   chainName,
		TokenAddress:            cfg.Chain.TokenAddress,
		TokenSymbol:             cfg.Chain.TokenSymbol,
		Decimals:                cfg.Chain.Decimals,
		DepositAddress:          cfg.Chain.DepositAddress,
		DefaultLookbackBlocks:   cfg.Verify.DefaultLookbackBlocks,
		MaxLookbackBlocks:       cfg.Verify.MaxLookbackBlocks,
		DefaultMinConfirmations: cfg.Verify.DefaultMinConfirmations,
		MinConfirmationsFloor:   cfg.Verify.MinConfirmationsFloor,
		LockTTL:                 cfg.Redis.LockTTL,
	}, a.adapter, engine, locker)

	// 5. Health and HTTP
	a.healthMon = health.NewMonitor(a.healthChecks()...)

	auth := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	a.server = api.NewServer(api.Options{
		Port:               cfg.Server.Port,
		RequestTimeout:     cfg.Server.RequestTimeout,
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
	}, api.NewDepositHandler(a.verifier, auth), auth, a.healthMon)

	return a, nil
}

func (a *App) healthChecks() []health.Check {
	checks := []health.Check{
		{
			Name:     "ledger",
			Critical: true,
			Probe:    a.store.Health,
		},
		{
			Name:     "rpc",
			Critical: true,
			Probe: func(ctx context.Context) error {
				_, err := a.adapter.GetLatestBlock(ctx)
				return err
			},
			Details: func() any {
				return map[string]any{
					"breaker": a.provider.State(),
					"health":  a.provider.GetHealth(),
				}
			},
		},
	}
	if a.redisClient != nil {
		checks = append(checks, health.Check{
			Name:  "redis",
			Probe: a.redisClient.Ping,
		})
	}
	return checks
}

// Verifier returns the deposit verifier.
func (a *App) Verifier() *deposit.Verifier {
	return a.verifier
}

// Store returns the ledger store.
func (a *App) Store() storage.LedgerStore {
	return a.store
}

// Server returns the HTTP server.
func (a *App) Server() *api.Server {
	return a.server
}

// Start starts the HTTP server and background collectors.
// Serve errors are delivered on the returned channel.
func (a *App) Start(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	return errCh
}

// Stop stops the server and releases every connection.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping verifier...")

	var errs []error
	if err := a.server.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop http server: %w", err))
	}
	errs = append(errs, a.Close())
	return errors.Join(errs...)
}

// Close releases connections without touching the HTTP server.
func (a *App) Close() error {
	var errs []error
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rpc provider: %w", err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}
