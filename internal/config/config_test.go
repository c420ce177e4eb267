package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "data/projects.db", cfg.SQLitePath)
	assert.Equal(t, 3*time.Second, cfg.LogoProbeTimeout)
	assert.Equal(t, 10*time.Minute, cfg.LogoCacheTTL)
	assert.Equal(t, 1500*time.Millisecond, cfg.RefreshPacing)
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval)
	assert.Equal(t, 2*time.Minute, cfg.SearchCacheTTL)
	assert.Equal(t, "interval", cfg.RefreshPacer)
	assert.True(t, cfg.MarginOfSafety.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromViper_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("REFRESH_INTERVAL", "15m")
	t.Setenv("REFRESH_PACER", "token_bucket")
	t.Setenv("MARGIN_OF_SAFETY", "0.3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Contains(t, cfg.PostgresDSN(), "host=db")
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "token_bucket", cfg.RefreshPacer)
	assert.True(t, cfg.MarginOfSafety.Equal(decimal.RequireFromString("0.3")))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromViper_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"margin of one", "MARGIN_OF_SAFETY", "1"},
		{"zero margin", "MARGIN_OF_SAFETY", "0"},
		{"negative margin", "MARGIN_OF_SAFETY", "-0.1"},
		{"unparseable margin", "MARGIN_OF_SAFETY", "half"},
		{"zero logo timeout", "LOGO_PROBE_TIMEOUT", "0s"},
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"unknown pacer", "REFRESH_PACER", "burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromViper(viper.New())
			assert.Error(t, err)
		})
	}
}
