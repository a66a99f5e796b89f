package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"pricecompare/internal/catalog"
	"pricecompare/internal/catalog/cache"
	"pricecompare/internal/config"
	"pricecompare/internal/httpx"
	"pricecompare/internal/logger"
	"pricecompare/internal/lookup"
	"pricecompare/internal/provider"
	"pricecompare/internal/provider/collectapi"
	"pricecompare/internal/provider/priceapi"
	"pricecompare/internal/ratelimit"
)

func main() {
	log := logger.GetLogger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if err := log.Configure(cfg.Log.Level, cfg.Log.Format, cfg.Log.File, cfg.Log.MaxSizeMB); err != nil {
		log.WithError(err).Fatal("logger")
	}
	if cfg.Provider.APIKey == "" {
		log.Warn("API_KEY not set; /api/price will fail until it is")
	}

	registry := newRegistry(cfg)
	httpClient := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
	router := lookup.NewRouter(registry, httpClient, lookup.WithLogger(log.WithComponent("lookup")))

	var src catalog.Source = catalog.StaticSource(catalog.Seed(time.Now(), cfg.Catalog.SeedDays))
	if cfg.Catalog.File != "" {
		src = catalog.FileSource{Path: cfg.Catalog.File}
	}
	products := cache.New(src, time.Duration(cfg.Catalog.CacheTTLSec)*time.Second)

	s := &server{
		router:   router,
		settings: envSettings(cfg.Provider),
		catalog:  products,
		tags:     cfg.Affiliate,
		log:      log.WithComponent("http"),
	}

	var limiter *ratelimit.PerClient
	if cfg.Server.RateLimitRPM > 0 {
		limiter = ratelimit.NewPerClient(cfg.Server.RateLimitRPM, cfg.Server.RateLimitBurst)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler(s.routes(), log.WithComponent("http"), limiter),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.RequestTimeoutSec+5) * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.WithFields(logger.Fields{"port": cfg.Server.Port, "provider": cfg.Provider.Name}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func newRegistry(cfg config.Config) *provider.Registry {
	return provider.NewRegistry(
		collectapi.New(
			collectapi.WithBaseURL(cfg.CollectAPI.Endpoint),
			collectapi.WithTimeout(cfg.CollectAPITimeout()),
		),
		priceapi.New(
			priceapi.WithBaseURL(cfg.PriceAPI.Endpoint),
			priceapi.WithTimeout(cfg.PriceAPITimeout()),
			priceapi.WithSource(cfg.PriceAPI.Source),
			priceapi.WithCountry(cfg.PriceAPI.Country),
		),
	)
}

// envSettings re-reads PROVIDER and API_KEY on every request so rotating a
// key does not need a restart; the loaded config is the fallback.
func envSettings(fallback config.Provider) func() lookupSettings {
	return func() lookupSettings {
		s := lookupSettings{Provider: fallback.Name, APIKey: fallback.APIKey}
		if v := strings.TrimSpace(os.Getenv("PROVIDER")); v != "" {
			s.Provider = v
		}
		if v := strings.TrimSpace(os.Getenv("API_KEY")); v != "" {
			s.APIKey = v
		}
		return s
	}
}
