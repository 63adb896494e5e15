package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	DefaultOrgID  int64
	SnowflakeNode int64
	// HomeCurrency is the ledger currency; an invoice in any other currency is
	// edited in foreign mode.
	HomeCurrency string

	OTLPEndpoint string

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
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CatalogFetchTimeout  time.Duration
	CatalogCacheTTL      time.Duration
	ExchangeRateCacheTTL time.Duration
	SessionIdleTTL       time.Duration

	// InvoiceNumberTemplate formats submitted invoice numbers, for example
	// "SI-{YYYY}{MM}-{SEQ5}".
	InvoiceNumberTemplate string

	TaxRulesFile string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:               getenv("APP_SERVICE", "salesdesk"),
		AppVersion:            getenv("APP_VERSION", "0.1.0"),
		Environment:           getenv("ENVIRONMENT", "development"),
		LogLevel:              strings.ToLower(getenv("LOG_LEVEL", "info")),
		HTTPAddr:              getenv("HTTP_ADDR", ":8080"),
		DefaultOrgID:          getenvInt64("DEFAULT_ORG", 0),
		SnowflakeNode:         getenvInt64("SNOWFLAKE_NODE", 1),
		HomeCurrency:          strings.ToUpper(getenv("HOME_CURRENCY", "INR")),
		OTLPEndpoint:          strings.TrimSpace(getenv("OTLP_ENDPOINT", "")),
		DBType:                getenv("DATABASE_TYPE", "postgres"),
		DBHost:                getenv("DATABASE_HOST", "localhost"),
		DBPort:                getenv("DATABASE_PORT", "5432"),
		DBName:                getenv("DATABASE_NAME", "salesdesk"),
		DBUser:                getenv("DATABASE_USER", "postgres"),
		DBPassword:            getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:             getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:         int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:         int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime:     int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime:     int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		RedisAddr:             strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword:         getenv("REDIS_PASSWORD", ""),
		RedisDB:               int(getenvInt64("REDIS_DB", 0)),
		CatalogFetchTimeout:   getenvDuration("CATALOG_FETCH_TIMEOUT", 5*time.Second),
		CatalogCacheTTL:       getenvDuration("CATALOG_CACHE_TTL", time.Minute),
		ExchangeRateCacheTTL:  getenvDuration("EXCHANGE_RATE_CACHE_TTL", 30*time.Minute),
		SessionIdleTTL:        getenvDuration("SESSION_IDLE_TTL", 2*time.Hour),
		InvoiceNumberTemplate: strings.TrimSpace(getenv("INVOICE_NUMBER_TEMPLATE", "")),
		TaxRulesFile:          strings.TrimSpace(getenv("TAX_RULES_FILE", "")),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewTaxRulesHolder),
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

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
