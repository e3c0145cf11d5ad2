package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "folio.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "USD", cfg.DisplayCurrency)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "folio", cfg.Storage.Namespace)
	assert.Equal(t, 1.35, cfg.Clients.FX.Fallbacks["SGD"])
	assert.Equal(t, []string{"SPY"}, cfg.Analytics.ComparisonTickers)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfig_FileLayering(t *testing.T) {
	base := writeConfig(t, `
environment = "staging"
display_currency = "eur"

[server]
port = 9000

[clients.fx.fallbacks]
JPY = 150.0
`)
	override := writeConfig(t, `
[server]
port = 9100

[analytics]
comparison_tickers = ["QQQ", "VT"]
`)

	cfg, err := LoadConfig(base, override, "/does/not/exist.toml")
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "EUR", cfg.DisplayCurrency)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 150.0, cfg.Clients.FX.Fallbacks["JPY"])
	assert.Equal(t, []string{"QQQ", "VT"}, cfg.Analytics.ComparisonTickers)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "server = [")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FOLIO_ENV", "production")
	t.Setenv("FOLIO_PORT", "7000")
	t.Setenv("FOLIO_DISPLAY_CURRENCY", "gbp")
	t.Setenv("FOLIO_STORAGE_ADDRESS", "ws://db:8000/rpc")
	t.Setenv("FOLIO_EVENTS_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("FOLIO_COMPARISON_TICKERS", "spy,qqq")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "GBP", cfg.DisplayCurrency)
	assert.Equal(t, "ws://db:8000/rpc", cfg.Storage.Address)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, []string{"SPY", "QQQ"}, cfg.Analytics.ComparisonTickers)
}

func TestLoadConfig_InvalidDisplayCurrencyFallsBack(t *testing.T) {
	path := writeConfig(t, `display_currency = "dollars"`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "USD", cfg.DisplayCurrency)
}

func TestDurationGetters(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 30*time.Second, cfg.Clients.EODHD.GetTimeout())
	assert.Equal(t, time.Hour, cfg.Clients.FX.GetCacheTTL())
	assert.Equal(t, 24*time.Hour, cfg.Analytics.GetAnalysisCacheTTL())

	cfg.Clients.EODHD.Timeout = "nonsense"
	assert.Equal(t, 30*time.Second, cfg.Clients.EODHD.GetTimeout())
}

type stubInternalStore struct {
	kv map[string]string
}

func (s *stubInternalStore) GetSystemKV(_ context.Context, key string) (string, error) {
	if v, ok := s.kv[key]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func (s *stubInternalStore) SetSystemKV(_ context.Context, key, value string) error {
	s.kv[key] = value
	return nil
}

func TestResolveAPIKey(t *testing.T) {
	ctx := context.Background()
	store := &stubInternalStore{kv: map[string]string{"eodhd_api_key": "from-store"}}

	t.Setenv("EODHD_API_KEY", "")
	t.Setenv("FOLIO_EODHD_API_KEY", "")

	key, err := ResolveAPIKey(ctx, store, "eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-store", key)

	key, err = ResolveAPIKey(ctx, nil, "eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	t.Setenv("EODHD_API_KEY", "from-env")
	key, err = ResolveAPIKey(ctx, store, "eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	_, err = ResolveAPIKey(ctx, nil, "unknown_key", "")
	assert.Error(t, err)
}
