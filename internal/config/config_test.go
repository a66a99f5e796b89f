package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	def := Default()
	require.Equal(t, def.Provider.Name, cfg.Provider.Name)
	require.Equal(t, 15*time.Second, cfg.CollectAPITimeout())
	require.Equal(t, 20*time.Second, cfg.PriceAPITimeout())
	require.Equal(t, "yourtag-21", cfg.Affiliate.Amazon)
	require.Equal(t, "affid_yourtag", cfg.Affiliate.Flipkart)
}

func TestLoad_YAMLFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  port: "9090"
provider:
  name: priceapi
priceapi:
  timeout_ms: 5000
  country: us
affiliate:
  amazon_tag: shop-20
catalog:
  seed_days: 30
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "priceapi", cfg.Provider.Name)
	require.Equal(t, 5*time.Second, cfg.PriceAPITimeout())
	require.Equal(t, "us", cfg.PriceAPI.Country)
	require.Equal(t, "amazon", cfg.PriceAPI.Source, "unset keys keep defaults")
	require.Equal(t, "shop-20", cfg.Affiliate.Amazon)
	require.Equal(t, "affid_yourtag", cfg.Affiliate.Flipkart)
	require.Equal(t, 30, cfg.Catalog.SeedDays)
}

func TestLoad_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"provider":{"name":"collectapi","api_key":"k"}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "k", cfg.Provider.APIKey)
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyEnv_Overrides(t *testing.T) {
	// Arrange
	t.Setenv("PROVIDER", "PriceAPI")
	t.Setenv("API_KEY", "secret")
	t.Setenv("COLLECTAPI_TIMEOUT_MS", "250")
	t.Setenv("PRICEAPI_TIMEOUT_MS", "not-a-number")
	t.Setenv("RATE_LIMIT_RPM", "0")
	t.Setenv("CATALOG_SEED_DAYS", "-1")
	t.Setenv("AFFILIATE_FLIPKART_TAG", "fk")
	t.Setenv("LOG_LEVEL", "debug")
	cfg := Default()

	// Act
	applyEnv(&cfg)

	// Assert
	require.Equal(t, "PriceAPI", cfg.Provider.Name)
	require.Equal(t, "secret", cfg.Provider.APIKey)
	require.Equal(t, 250*time.Millisecond, cfg.CollectAPITimeout())
	require.Equal(t, 20*time.Second, cfg.PriceAPITimeout(), "bad values are ignored")
	require.Equal(t, 0, cfg.Server.RateLimitRPM)
	require.Equal(t, 365, cfg.Catalog.SeedDays)
	require.Equal(t, "fk", cfg.Affiliate.Flipkart)
	require.Equal(t, "debug", cfg.Log.Level)
}
