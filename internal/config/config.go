package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Logger LoggerConfig
	Ledger LedgerConfig
	Stripe StripeConfig
	Reload ReloadConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
}

type LoggerConfig struct {
	Level string
}

// LedgerConfig points at the external double-entry ledger service.
type LedgerConfig struct {
	Endpoint          string
	Token             string
	LedgerCode        uint32
	PlatformAccountID string

	PayoutReserveTimeout int64 // seconds
	TransferFeeBps       int64
}

type StripeConfig struct {
	SecretKey string
}

// ReloadConfig carries platform-wide auto-reload knobs. Per-account thresholds
// live in billing_configs; these are floor values shared by all accounts.
type ReloadConfig struct {
	MinChargeMicro int64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "billingd"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		Logger: LoggerConfig{
			Level: getenv("LOG_LEVEL", "info"),
		},
		Ledger: LedgerConfig{
			Endpoint:             getenv("LEDGER_ENDPOINT", "http://localhost:7100"),
			Token:                strings.TrimSpace(getenv("LEDGER_TOKEN", "")),
			LedgerCode:           uint32(getenvInt64("LEDGER_CODE", 1)),
			PlatformAccountID:    strings.TrimSpace(getenv("LEDGER_PLATFORM_ACCOUNT", "1")),
			PayoutReserveTimeout: getenvInt64("LEDGER_PAYOUT_RESERVE_TIMEOUT", 600),
			TransferFeeBps:       getenvInt64("LEDGER_TRANSFER_FEE_BPS", 250),
		},
		Stripe: StripeConfig{
			SecretKey: strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
		},
		Reload: ReloadConfig{
			// $5.00 floor keeps processor fees from dominating micro-charges.
			MinChargeMicro: getenvInt64("RELOAD_MIN_CHARGE_MICRO", 5_000_000),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "postgres"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 25)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 30)),
	}
}

// Module wires configuration loading for the application.
var Module = fx.Module("config",
	fx.Provide(Load),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
