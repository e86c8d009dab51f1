// Command catalogdump builds every enabled provider catalog once and
// prints the normalized result as JSON. Debugging aid.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	stdlog "log"

	"onrampprovider/internal/config"
	"onrampprovider/internal/httpx"
	"onrampprovider/internal/log"
	"onrampprovider/internal/provider"
	"onrampprovider/internal/provider/binanceconnect"
	"onrampprovider/internal/provider/transak"
	"onrampprovider/internal/sign"
)

func main() {
	var country string
	var timeout int
	flag.StringVar(&country, "country", "", "emit the country-scoped view for this code instead of the full catalog")
	flag.IntVar(&timeout, "timeout", 30, "build timeout in seconds")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	hc, err := httpx.New(httpx.Options{Timeout: cfg.Server.RequestTimeout, UserAgent: "onramp-provider/1.0"})
	if err != nil {
		logger.Fatalw("http client", "err", err)
	}

	var providers []provider.Provider
	if cfg.BinanceConnect.Enabled && cfg.BinanceConnectReady() {
		signer, err := sign.NewRSASignerFromFile(cfg.BinanceConnect.PrivateKeyFile)
		if err != nil {
			logger.Fatalw("binance connect signer", "err", err)
		}
		client, err := binanceconnect.NewClient(
			cfg.BinanceConnect.MerchantCode,
			signer,
			binanceconnect.WithBaseURL(cfg.BinanceConnect.BaseURL),
			binanceconnect.WithHTTPClient(hc.HTTP),
		)
		if err != nil {
			logger.Fatalw("binance connect client", "err", err)
		}
		providers = append(providers, binanceconnect.New(binanceconnect.Config{
			CheckoutURL:  cfg.BinanceConnect.CheckoutURL,
			MerchantCode: cfg.BinanceConnect.MerchantCode,
		}, client, signer, logger))
	}
	if cfg.Transak.Enabled && cfg.TransakReady() {
		client := transak.NewClient(cfg.Transak.BaseURL, cfg.Transak.APIKey, hc)
		providers = append(providers, transak.New(transak.Config{
			CheckoutURL: cfg.Transak.CheckoutURL,
			APIKey:      cfg.Transak.APIKey,
		}, client, logger))
	}
	if len(providers) == 0 {
		logger.Fatalw("no providers configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	out := make(map[string]any, len(providers))
	for _, p := range providers {
		if err := p.BuildCatalog(ctx); err != nil {
			logger.Errorw("catalog build failed", "provider", p.Name(), "err", err)
			continue
		}
		if country != "" {
			out[p.Name()] = p.Catalog().ForCountry(country)
		} else {
			out[p.Name()] = p.Catalog()
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalw("encode", "err", err)
	}
}
