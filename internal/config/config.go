// Package config builds the service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/giorgiojulius/cryptojulius/internal/imagecheck"
	"github.com/giorgiojulius/cryptojulius/internal/provider"
	"github.com/giorgiojulius/cryptojulius/internal/refresh"
	"github.com/giorgiojulius/cryptojulius/internal/valuation"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	DBDriver   string
	SQLitePath string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SearchCacheTTL time.Duration

	DexScreenerURL  string
	CoinGeckoURL    string
	CoinGeckoAPIKey string
	HTTPTimeout     time.Duration
	HTTPMaxRetries  int

	LogoProbeTimeout time.Duration
	LogoCacheSize    int
	LogoCacheTTL     time.Duration

	MarginOfSafety decimal.Decimal

	RefreshInterval      time.Duration
	RefreshPacing        time.Duration
	RefreshFailurePacing time.Duration
	RefreshPacer         string

	DataDir        string
	AllowedOrigins []string
	OwnerAddress   string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found")
	}
	return FromViper(viper.New())
}

// FromViper builds a Config from v after registering the defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	margin, err := decimal.NewFromString(v.GetString("MARGIN_OF_SAFETY"))
	if err != nil {
		return nil, fmt.Errorf("MARGIN_OF_SAFETY: %w", err)
	}

	cfg := &Config{
		Port:     v.GetString("PORT"),
		GinMode:  v.GetString("GIN_MODE"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		SQLitePath: v.GetString("SQLITE_PATH"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),

		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		SearchCacheTTL: v.GetDuration("SEARCH_CACHE_TTL"),

		DexScreenerURL:  v.GetString("DEXSCREENER_BASE_URL"),
		CoinGeckoURL:    v.GetString("COINGECKO_BASE_URL"),
		CoinGeckoAPIKey: v.GetString("COINGECKO_API_KEY"),
		HTTPTimeout:     v.GetDuration("HTTP_TIMEOUT"),
		HTTPMaxRetries:  v.GetInt("HTTP_MAX_RETRIES"),

		LogoProbeTimeout: v.GetDuration("LOGO_PROBE_TIMEOUT"),
		LogoCacheSize:    v.GetInt("LOGO_CACHE_SIZE"),
		LogoCacheTTL:     v.GetDuration("LOGO_CACHE_TTL"),

		MarginOfSafety: margin,

		RefreshInterval:      v.GetDuration("REFRESH_INTERVAL"),
		RefreshPacing:        v.GetDuration("REFRESH_PACING"),
		RefreshFailurePacing: v.GetDuration("REFRESH_FAILURE_PACING"),
		RefreshPacer:         strings.ToLower(v.GetString("REFRESH_PACER")),

		DataDir:        v.GetString("DATA_DIR"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		OwnerAddress:   strings.TrimSpace(v.GetString("OWNER_ADDRESS")),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("SQLITE_PATH", "data/projects.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "cryptojulius")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SEARCH_CACHE_TTL", "2m")

	v.SetDefault("DEXSCREENER_BASE_URL", provider.DefaultDexScreenerURL)
	v.SetDefault("COINGECKO_BASE_URL", provider.DefaultCoinGeckoURL)
	v.SetDefault("COINGECKO_API_KEY", "")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("HTTP_MAX_RETRIES", 2)

	v.SetDefault("LOGO_PROBE_TIMEOUT", "3s")
	v.SetDefault("LOGO_CACHE_SIZE", imagecheck.DefaultCacheSize)
	v.SetDefault("LOGO_CACHE_TTL", imagecheck.DefaultCacheTTL.String())

	v.SetDefault("MARGIN_OF_SAFETY", valuation.DefaultMarginOfSafety.String())

	v.SetDefault("REFRESH_INTERVAL", "0s")
	v.SetDefault("REFRESH_PACING", refresh.DefaultPacing.String())
	v.SetDefault("REFRESH_FAILURE_PACING", "0s")
	v.SetDefault("REFRESH_PACER", refresh.PacerInterval)

	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("OWNER_ADDRESS", "")
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if !c.MarginOfSafety.IsPositive() || c.MarginOfSafety.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("MARGIN_OF_SAFETY must be in (0,1), got %s", c.MarginOfSafety)
	}
	if c.LogoProbeTimeout <= 0 {
		return fmt.Errorf("LOGO_PROBE_TIMEOUT must be positive, got %s", c.LogoProbeTimeout)
	}
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	switch c.RefreshPacer {
	case refresh.PacerInterval, refresh.PacerTokenBucket:
	default:
		return fmt.Errorf("unknown REFRESH_PACER %q", c.RefreshPacer)
	}
	if c.RefreshPacing < 0 || c.RefreshFailurePacing < 0 || c.RefreshInterval < 0 {
		return fmt.Errorf("refresh durations must not be negative")
	}
	return nil
}

// PostgresDSN is the connection string for DB_DRIVER=postgres.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
