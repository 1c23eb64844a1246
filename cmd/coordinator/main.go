package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/aman-zulfiqar/superswap-settlement/internal/admin"
	"github.com/aman-zulfiqar/superswap-settlement/internal/amm"
	"github.com/aman-zulfiqar/superswap-settlement/internal/audit"
	"github.com/aman-zulfiqar/superswap-settlement/internal/codes"
	"github.com/aman-zulfiqar/superswap-settlement/internal/config"
	"github.com/aman-zulfiqar/superswap-settlement/internal/jupiter"
	"github.com/aman-zulfiqar/superswap-settlement/internal/ledger"
	"github.com/aman-zulfiqar/superswap-settlement/internal/metrics"
	"github.com/aman-zulfiqar/superswap-settlement/internal/models"
	rt "github.com/aman-zulfiqar/superswap-settlement/internal/runtime"
	"github.com/aman-zulfiqar/superswap-settlement/internal/server"
	"github.com/aman-zulfiqar/superswap-settlement/internal/settlement"
	"github.com/aman-zulfiqar/superswap-settlement/internal/storage"
	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main wires the ledger, record store, runtime and services behind the
// HTTP API and runs until SIGINT/SIGTERM.
func main() {
	boot := logrus.New()
	boot.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	// load .env BEFORE anything reads os.Getenv
	loadEnv(boot)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		boot.WithError(err).Fatal("invalid configuration")
	}
	logger := cfg.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	programID := solana.MustPublicKeyFromBase58(cfg.ProgramID)

	// Token ledger, optionally seeded from a genesis file
	l := ledger.New()
	if cfg.LedgerGenesisPath != "" {
		n, err := l.LoadGenesis(cfg.LedgerGenesisPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to load ledger genesis")
		}
		logger.WithField("accounts", n).Info("ledger genesis loaded")
	}

	// Record store and the Redis client shared with the event publisher
	var (
		store   storage.Store
		rclient *redis.Client
	)
	switch cfg.StoreBackend {
	case "redis":
		rclient = redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		rs, err := storage.NewRedisStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create redis store")
		}
		store = rs
	default:
		store = storage.NewMemoryStore()
	}
	defer func() { _ = store.Close() }()

	prog, err := rt.New(rt.Config{
		ProgramID: programID,
		Ledger:    l,
		Store:     store,
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create runtime")
	}

	// Constant-product pools as a registered swap engine (optional)
	var pools *amm.Registry
	if cfg.PoolConfigPath != "" {
		pools, err = amm.NewRegistry(solana.MustPublicKeyFromBase58(cfg.AMMProgramID), cfg.PoolConfigPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to load pools")
		}
		if err := pools.OpenVaults(l); err != nil {
			logger.WithError(err).Fatal("failed to open pool vaults")
		}
		if err := prog.Register(amm.NewProgram(pools)); err != nil {
			logger.WithError(err).Fatal("failed to register pool program")
		}
		logger.WithField("pools", len(pools.Pools())).Info("pool program registered")
	}

	// Balances written by earlier runs win over genesis
	restored, err := prog.RestoreLedger(ctx)
	if err != nil {
		logger.WithError(err).Fatal("failed to restore ledger")
	}
	logger.WithField("accounts", restored).Info("ledger restored from store")

	// Audit events: Redis pub/sub and ClickHouse history when available
	var emitters []audit.Emitter
	if rclient != nil {
		pub, err := audit.NewPublisher(rclient, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to create event publisher")
		}
		emitters = append(emitters, pub)
	}
	if cfg.ClickHouseEnabled {
		ch, err := audit.NewClickHouseStore(ctx, audit.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unavailable, settlement history disabled")
		} else {
			defer func() { _ = ch.Close() }()
			emitters = append(emitters, ch)
		}
	}
	emitter := audit.NewFanout(logger, emitters...)

	rec := metrics.New()

	coordinator, err := settlement.NewCoordinator(settlement.Config{
		Runtime: prog,
		Emitter: emitter,
		Metrics: rec,
		Logger:  logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create coordinator")
	}
	adminSvc, err := admin.NewService(admin.Config{
		Runtime: prog,
		Emitter: emitter,
		Logger:  logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create admin service")
	}

	if cfg.InitAdminKey != "" {
		if err := bootstrap(ctx, cfg, store, adminSvc, logger); err != nil {
			logger.WithError(err).Fatal("bootstrap initialize failed")
		}
	}

	h := &server.Handlers{
		Coordinator: coordinator,
		Admin:       adminSvc,
		Store:       store,
		Ledger:      l,
		Pools:       pools,
		Metrics:     rec,
		DevMode:     cfg.DevMode,
		Timeout:     cfg.RequestTimeout,
		Logger:      logger,
		Jupiter: jupiter.NewClient(jupiter.ClientConfig{
			BaseURL: cfg.JupiterBaseURL,
			APIKey:  cfg.JupiterAPIKey,
			Logger:  logger,
		}),
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Logger:   logger,
		Config: server.ServerConfig{
			Addr:            cfg.APIAddr,
			DevMode:         cfg.DevMode,
			APIKey:          cfg.APIKey,
			RateLimit:       cfg.RateLimit,
			SignatureMaxAge: cfg.SignatureMaxAge,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{
		"addr":    cfg.APIAddr,
		"program": programID.String(),
		"store":   cfg.StoreBackend,
	}).Info("coordinator starting")
	if err := srv.Start(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		logger.WithError(err).Fatal("coordinator failed")
	}

	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}
}

// bootstrap creates the configuration from INIT_* settings when the store
// has none yet.
func bootstrap(ctx context.Context, cfg *config.Config, store storage.Store, svc *admin.Service, logger *logrus.Logger) error {
	if _, err := store.GetConfig(ctx); err == nil {
		logger.Info("configuration present, skipping bootstrap")
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	adminKey, err := solana.PublicKeyFromBase58(cfg.InitAdminKey)
	if err != nil {
		return fmt.Errorf("INIT_ADMIN_KEY: %w", err)
	}
	params := models.InitializeParams{FeeBps: uint16(cfg.InitFeeBps)}
	for _, f := range []struct {
		env string
		val string
		dst *solana.PublicKey
	}{
		{"INIT_RELAYER", cfg.InitRelayer, &params.Relayer},
		{"INIT_SWAP_ENGINE", cfg.InitSwapEngine, &params.SwapEngine},
		{"INIT_SETTLEMENT_MINT", cfg.InitSettlementMint, &params.SettlementMint},
		{"INIT_FEE_RECIPIENT", cfg.InitFeeRecipient, &params.FeeRecipient},
	} {
		pk, err := solana.PublicKeyFromBase58(f.val)
		if err != nil {
			return fmt.Errorf("%s: %w", f.env, err)
		}
		*f.dst = pk
	}

	gc, err := svc.Initialize(ctx, adminKey, params)
	if err != nil {
		if codes.Is(err, codes.AlreadyInitialized) {
			return nil
		}
		return err
	}
	logger.WithFields(logrus.Fields{
		"admin":   gc.Admin.String(),
		"relayer": gc.Relayer.String(),
		"fee_bps": gc.FeeBps,
	}).Info("configuration initialized")
	return nil
}
