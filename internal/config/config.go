package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pricecompare/internal/affiliate"
)

type Server struct {
	Port              string `yaml:"port"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	RateLimitRPM      int    `yaml:"rate_limit_rpm"`
	RateLimitBurst    int    `yaml:"rate_limit_burst"`
}

// Provider selects the upstream used by /api/price.
type Provider struct {
	Name   string `yaml:"name"`
	APIKey string `yaml:"api_key"`
}

type CollectAPI struct {
	Endpoint  string `yaml:"endpoint"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type PriceAPI struct {
	Endpoint  string `yaml:"endpoint"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Source    string `yaml:"source"`
	Country   string `yaml:"country"`
}

type Catalog struct {
	File        string `yaml:"file"`
	SeedDays    int    `yaml:"seed_days"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
}

type Log struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

type Config struct {
	Server     Server         `yaml:"server"`
	Provider   Provider       `yaml:"provider"`
	CollectAPI CollectAPI     `yaml:"collectapi"`
	PriceAPI   PriceAPI       `yaml:"priceapi"`
	Affiliate  affiliate.Tags `yaml:"affiliate"`
	Catalog    Catalog        `yaml:"catalog"`
	Log        Log            `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "8080", RequestTimeoutSec: 30, RateLimitRPM: 120, RateLimitBurst: 20},
		Provider: Provider{
			Name: "collectapi",
		},
		CollectAPI: CollectAPI{
			Endpoint:  "https://api.collectapi.com/ecommerce/amazon/product",
			TimeoutMS: 15000,
		},
		PriceAPI: PriceAPI{
			Endpoint:  "https://api.priceapi.com/v2/jobs",
			TimeoutMS: 20000,
			Source:    "amazon",
			Country:   "in",
		},
		Affiliate: affiliate.Tags{
			Amazon:   "yourtag-21",
			Flipkart: "affid_yourtag",
			Meesho:   "yourtag",
		},
		Catalog: Catalog{SeedDays: 365, CacheTTLSec: 60},
		Log:     Log{Level: "info", Format: "json", File: "stdout", MaxSizeMB: 100},
	}
}

// CollectAPITimeout is the per-call deadline for collectapi lookups.
func (c Config) CollectAPITimeout() time.Duration {
	return time.Duration(c.CollectAPI.TimeoutMS) * time.Millisecond
}

// PriceAPITimeout is the per-call deadline for priceapi lookups.
func (c Config) PriceAPITimeout() time.Duration {
	return time.Duration(c.PriceAPI.TimeoutMS) * time.Millisecond
}

// Load reads YAML (or JSON) config from path. If path is empty, config.yaml
// and then config.json are tried; a missing file yields defaults. A .env file
// in the working directory is loaded before environment overrides are applied.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		for _, p := range []string{"config.yaml", "config.json"} {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	// .env never overrides variables already set in the process environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.RequestTimeoutSec, "REQUEST_TIMEOUT_SEC", 1)
	setInt(&cfg.Server.RateLimitRPM, "RATE_LIMIT_RPM", 0)
	setInt(&cfg.Server.RateLimitBurst, "RATE_LIMIT_BURST", 1)

	setString(&cfg.Provider.Name, "PROVIDER")
	setString(&cfg.Provider.APIKey, "API_KEY")

	setString(&cfg.CollectAPI.Endpoint, "COLLECTAPI_ENDPOINT")
	setInt(&cfg.CollectAPI.TimeoutMS, "COLLECTAPI_TIMEOUT_MS", 1)

	setString(&cfg.PriceAPI.Endpoint, "PRICEAPI_ENDPOINT")
	setInt(&cfg.PriceAPI.TimeoutMS, "PRICEAPI_TIMEOUT_MS", 1)
	setString(&cfg.PriceAPI.Source, "PRICEAPI_SOURCE")
	setString(&cfg.PriceAPI.Country, "PRICEAPI_COUNTRY")

	setString(&cfg.Affiliate.Amazon, "AFFILIATE_AMAZON_TAG")
	setString(&cfg.Affiliate.Flipkart, "AFFILIATE_FLIPKART_TAG")
	setString(&cfg.Affiliate.Meesho, "AFFILIATE_MEESHO_TAG")

	setString(&cfg.Catalog.File, "CATALOG_FILE")
	setInt(&cfg.Catalog.SeedDays, "CATALOG_SEED_DAYS", 1)
	setInt(&cfg.Catalog.CacheTTLSec, "CATALOG_CACHE_TTL_SEC", 0)

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Log.File, "LOG_FILE")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// setInt ignores values that do not parse or fall below min.
func setInt(dst *int, key string, min int) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	x, err := strconv.Atoi(v)
	if err != nil || x < min {
		return
	}
	*dst = x
}
