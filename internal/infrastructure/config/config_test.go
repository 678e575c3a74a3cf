package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "sproutscan", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "https://world.openfoodfacts.org", cfg.Lookup.OFFBaseURL)
	assert.Equal(t, 10*time.Second, cfg.Lookup.Timeout)
	assert.Equal(t, 20, cfg.RateLimit.ScanRequests)
	assert.Equal(t, 40, cfg.RateLimit.SearchRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, time.Second, cfg.DedupWindow)
	assert.Empty(t, cfg.Reference.ConcerningPath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("USDA_API_KEY", "abc123")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("APP_REFERENCE_CONCERNING_PATH", "/etc/sproutscan/concerning.yaml")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "abc123", cfg.Lookup.USDAAPIKey)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "/etc/sproutscan/concerning.yaml", cfg.Reference.ConcerningPath)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"bad port", "server.port", 0},
		{"bad cache size", "cache.max_size", 0},
		{"bad rate limit", "rate_limit.scan_requests", -1},
		{"bad lookup timeout", "lookup.timeout", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("DEMO_KEY"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghijklmnopqrstuvwxyz"))
}
