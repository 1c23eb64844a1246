package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/superswap-settlement/internal/constants"
	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// HTTP
	APIAddr         string
	APIKey          string
	DevMode         bool
	RequestTimeout  time.Duration
	RateLimit       float64
	SignatureMaxAge time.Duration
	LogLevel        string

	// Program
	ProgramID    string
	AMMProgramID string

	// State
	StoreBackend      string // memory | redis
	RedisAddr         string
	RedisDB           int
	LedgerGenesisPath string
	PoolConfigPath    string

	// ClickHouse
	ClickHouseEnabled  bool
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Jupiter
	JupiterBaseURL string
	JupiterAPIKey  string

	// Bootstrap configuration written on first start when INIT_ADMIN_KEY is set.
	InitAdminKey       string
	InitRelayer        string
	InitSwapEngine     string
	InitSettlementMint string
	InitFeeRecipient   string
	InitFeeBps         int

	// Relayer CLI
	CoordinatorURL    string
	RelayerPrivateKey string
}

func Load() *Config {
	return &Config{
		// HTTP
		APIAddr:         getEnv("API_ADDR", ":8080"),
		APIKey:          getEnv("API_KEY", ""),
		DevMode:         getBoolEnv("DEV_MODE", false),
		RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", 10*time.Second),
		RateLimit:       getFloatEnv("RATE_LIMIT", 20),
		SignatureMaxAge: getDurationEnv("SIGNATURE_MAX_SKEW", constants.DefaultSigMaxAge),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		// Program
		ProgramID:    getEnv("PROGRAM_ID", constants.ProgramAddresses["SuperSwap"]),
		AMMProgramID: getEnv("AMM_PROGRAM_ID", constants.ProgramAddresses["Orca"]),

		// State
		StoreBackend:      getEnv("STORE_BACKEND", "memory"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:           getIntEnv("REDIS_DB", 0),
		LedgerGenesisPath: getEnv("LEDGER_GENESIS_PATH", ""),
		PoolConfigPath:    getEnv("POOL_CONFIG_PATH", ""),

		// ClickHouse
		ClickHouseEnabled:  getBoolEnv("CLICKHOUSE_ENABLED", false),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "settlement"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Jupiter
		JupiterBaseURL: getEnv("JUPITER_BASE_URL", ""),
		JupiterAPIKey:  getEnv("JUPITER_API_KEY", ""),

		// Bootstrap
		InitAdminKey:       getEnv("INIT_ADMIN_KEY", ""),
		InitRelayer:        getEnv("INIT_RELAYER", ""),
		InitSwapEngine:     getEnv("INIT_SWAP_ENGINE", ""),
		InitSettlementMint: getEnv("INIT_SETTLEMENT_MINT", ""),
		InitFeeRecipient:   getEnv("INIT_FEE_RECIPIENT", ""),
		InitFeeBps:         getIntEnv("INIT_FEE_BPS", 30),

		// Relayer CLI
		CoordinatorURL:    getEnv("COORDINATOR_URL", "http://localhost:8080"),
		RelayerPrivateKey: getEnv("RELAYER_PRIVATE_KEY", ""),
	}
}

// Validate checks the settings the coordinator cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIAddr) == "" {
		return fmt.Errorf("API_ADDR is required")
	}
	if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("PROGRAM_ID: %w", err)
	}
	if c.AMMProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(c.AMMProgramID); err != nil {
			return fmt.Errorf("AMM_PROGRAM_ID: %w", err)
		}
	}
	switch c.StoreBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("STORE_BACKEND must be memory or redis, got %q", c.StoreBackend)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT must be >= 0")
	}
	if c.InitFeeBps < 0 || c.InitFeeBps > constants.MaxFeeBps {
		return fmt.Errorf("INIT_FEE_BPS must be within 0..%d", constants.MaxFeeBps)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// Logger builds the process logger the way every binary uses it.
func (c *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
