package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	stdlog "log"

	"onrampprovider/internal/config"
	"onrampprovider/internal/geoip"
	"onrampprovider/internal/httpx"
	"onrampprovider/internal/log"
	"onrampprovider/internal/provider"
	"onrampprovider/internal/provider/binanceconnect"
	"onrampprovider/internal/provider/transak"
	"onrampprovider/internal/refresh"
	"onrampprovider/internal/sign"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	hc, err := httpx.New(httpx.Options{
		Timeout:           cfg.Server.RequestTimeout,
		UserAgent:         "onramp-provider/1.0",
		RequestsPerSecond: cfg.Server.OutboundRPS,
		Burst:             cfg.Server.OutboundBurst,
	})
	if err != nil {
		logger.Fatalw("http client", "err", err)
	}

	var providers []provider.Provider
	var ipCheck ipChecker

	if cfg.BinanceConnect.Enabled {
		switch {
		case !cfg.BinanceConnectReady():
			logger.Warnw("binance connect enabled but merchant identity not configured; skipping provider")
		default:
			signer, err := sign.NewRSASignerFromFile(cfg.BinanceConnect.PrivateKeyFile)
			if err != nil {
				logger.Errorw("binance connect signer", "err", err)
				break
			}
			// Binance Connect requires calls from a fixed egress IP, so
			// its traffic gets its own proxied client.
			bhc, err := httpx.New(httpx.Options{
				Timeout:   cfg.Server.RequestTimeout,
				UserAgent: "onramp-provider/1.0",
				ProxyURL:  cfg.BinanceConnect.ProxyURL,
			})
			if err != nil {
				logger.Errorw("binance connect http client", "err", err)
				break
			}
			client, err := binanceconnect.NewClient(
				cfg.BinanceConnect.MerchantCode,
				signer,
				binanceconnect.WithBaseURL(cfg.BinanceConnect.BaseURL),
				binanceconnect.WithHTTPClient(bhc.HTTP),
			)
			if err != nil {
				logger.Errorw("binance connect client", "err", err)
				break
			}
			providers = append(providers, binanceconnect.New(binanceconnect.Config{
				CheckoutURL:  cfg.BinanceConnect.CheckoutURL,
				MerchantCode: cfg.BinanceConnect.MerchantCode,
			}, client, signer, logger))
			ipCheck = client
		}
	}

	if cfg.Transak.Enabled {
		if !cfg.TransakReady() {
			logger.Warnw("transak enabled but ONRAMP_TRANSAK_API_KEY not set; skipping provider")
		} else {
			client := transak.NewClient(cfg.Transak.BaseURL, cfg.Transak.APIKey, hc)
			providers = append(providers, transak.New(transak.Config{
				CheckoutURL: cfg.Transak.CheckoutURL,
				APIKey:      cfg.Transak.APIKey,
			}, client, logger))
		}
	}

	geo := geoip.New(hc, cfg.GeoIP.LookupURL, cfg.GeoIP.DefaultCountry, logger)

	builders := make([]refresh.Builder, 0, len(providers))
	for _, p := range providers {
		builders = append(builders, p)
	}
	scheduler := refresh.New(builders, cfg.Refresh.Interval, cfg.Refresh.BuildTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go scheduler.Start(ctx)

	s := &server{
		providers: providers,
		geo:       geo,
		ipCheck:   ipCheck,
		logger:    logger,
		timeout:   cfg.Server.RequestTimeout,
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.routes(cfg.Server.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infow("server listening", "addr", cfg.HTTPAddr, "providers", len(providers))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalw("server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
