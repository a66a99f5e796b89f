package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"pricecompare/internal/config"
	"pricecompare/internal/httpx"
	"pricecompare/internal/logger"
	"pricecompare/internal/lookup"
	"pricecompare/internal/provider"
	"pricecompare/internal/provider/collectapi"
	"pricecompare/internal/provider/priceapi"
)

type options struct {
	url       string
	provider  string
	apiKey    string
	timeoutMS int
}

func main() {
	var (
		opts       options
		configPath string
	)
	flag.StringVar(&opts.url, "url", "", "product page URL to look up")
	flag.StringVar(&opts.provider, "provider", "", "provider name (collectapi or priceapi); defaults to config")
	flag.StringVar(&opts.apiKey, "key", "", "API key; defaults to API_KEY")
	flag.IntVar(&opts.timeoutMS, "timeout-ms", 0, "per-call deadline in ms; defaults to the provider's")
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	flag.Parse()

	log := logger.GetLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if err := log.Configure(cfg.Log.Level, cfg.Log.Format, "stderr", 0); err != nil {
		log.WithError(err).Fatal("logger")
	}
	if opts.provider == "" {
		opts.provider = cfg.Provider.Name
	}
	if opts.apiKey == "" {
		opts.apiKey = cfg.Provider.APIKey
	}
	if opts.url == "" {
		fmt.Fprintln(os.Stderr, "missing -url")
		flag.Usage()
		os.Exit(2)
	}

	registry := provider.NewRegistry(
		collectapi.New(collectapi.WithBaseURL(cfg.CollectAPI.Endpoint), collectapi.WithTimeout(cfg.CollectAPITimeout())),
		priceapi.New(
			priceapi.WithBaseURL(cfg.PriceAPI.Endpoint),
			priceapi.WithTimeout(cfg.PriceAPITimeout()),
			priceapi.WithSource(cfg.PriceAPI.Source),
			priceapi.WithCountry(cfg.PriceAPI.Country),
		),
	)
	router := lookup.NewRouter(registry, httpx.New(0), lookup.WithLogger(log.WithComponent("fetch")))

	status, ok := run(context.Background(), router, opts, os.Stdout)
	log.WithFields(logger.Fields{"provider": opts.provider, "status": status}).Info("lookup finished")
	if !ok {
		os.Exit(1)
	}
}

// run performs one lookup and prints the envelope. It reports the HTTP status
// the server would have answered with and whether the lookup succeeded.
func run(ctx context.Context, router *lookup.Router, opts options, out io.Writer) (int, bool) {
	var lopts []lookup.LookupOption
	if opts.timeoutMS > 0 {
		lopts = append(lopts, lookup.WithTimeout(time.Duration(opts.timeoutMS)*time.Millisecond))
	}
	res, err := router.Lookup(ctx, opts.provider, opts.apiKey, opts.url, lopts...)
	status, env := lookup.Respond(res, err)

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	_ = enc.Encode(env)
	return status, env.Success
}
