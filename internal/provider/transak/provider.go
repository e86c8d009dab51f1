package transak

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"onrampprovider/internal/catalog"
	"onrampprovider/internal/fanout"
	"onrampprovider/internal/metrics"
	"onrampprovider/internal/provider"
)

// defaultNetworks is the allowed native network set and its canonical
// translation.
var defaultNetworks = map[string]string{
	"optimism":   "optimism",
	"arbitrum":   "arbitrum",
	"polygon":    "polygon",
	"bsc":        "bsc",
	"avaxcchain": "avax",
	"fantom":     "fantom",
	"celo":       "celo",
	"moonriver":  "moonriver",
	"ethereum":   "ethereum",
}

// APIClient is the subset of the Transak client the provider uses.
type APIClient interface {
	GetFiatCurrencies(ctx context.Context) ([]FiatCurrency, error)
	GetCryptoCurrencies(ctx context.Context) ([]CryptoCurrency, error)
	GetCountries(ctx context.Context) ([]Country, error)
	GetPrice(ctx context.Context, q PriceQuery) (Price, error)
}

// Config controls the Transak provider.
type Config struct {
	Name        string
	CheckoutURL string
	APIKey      string
	// Networks overrides the native→canonical network table.
	Networks map[string]string
	// QuoteTimeout bounds each per-method live pricing call.
	QuoteTimeout time.Duration
}

// Provider is the live-per-method shape: candidate payment methods come
// from the built catalog and each candidate is priced with its own
// provider call.
type Provider struct {
	cfg      Config
	client   APIClient
	networks *catalog.NetworkMap
	store    *catalog.Store
	logger   *zap.SugaredLogger
}

func New(cfg Config, client APIClient, logger *zap.SugaredLogger) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Transak"
	}
	if cfg.CheckoutURL == "" {
		cfg.CheckoutURL = "https://global.transak.com/"
	}
	if cfg.Networks == nil {
		cfg.Networks = defaultNetworks
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 10 * time.Second
	}
	return &Provider{
		cfg:      cfg,
		client:   client,
		networks: catalog.NewNetworkMap(cfg.Networks),
		store:    catalog.NewStore(),
		logger:   logger,
	}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Catalog() *catalog.Catalog { return p.store.Current() }

// BuildCatalog fetches countries, crypto currencies and fiat currencies in
// parallel, assembles the canonical catalog and swaps it in. Failed
// sub-resources degrade to empty; the build never aborts.
func (p *Provider) BuildCatalog(ctx context.Context) error {
	start := time.Now()
	countries, cryptos, fiats := p.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	c := catalog.New()

	c.Countries = make(map[string]catalog.Country, len(countries))
	for _, country := range countries {
		c.Countries[country.Alpha2] = catalog.Country{
			Code:         country.Alpha2,
			Name:         country.Name,
			Alpha3:       country.Alpha3,
			CurrencyCode: country.CurrencyCode,
			Allowed:      country.IsAllowed,
		}
	}

	// Fiat data first: a provider-wide registry keyed by fiat currency,
	// carrying the countries each option supports.
	c.FiatOptions = make(map[string][]catalog.PaymentOption, len(fiats))
	for _, fc := range fiats {
		for _, opt := range fc.PaymentOptions {
			c.FiatOptions[fc.Symbol] = append(c.FiatOptions[fc.Symbol], catalog.PaymentOption{
				Method:    opt.ID,
				MinLimit:  opt.MinAmount,
				MaxLimit:  opt.MaxAmount,
				Countries: fc.SupportingCountries,
			})
		}
	}

	// Network data second, keyed by asset, with per-network exclusions.
	for _, cc := range cryptos {
		if !p.networks.Allows(cc.Network.Name) {
			continue
		}
		canonical := p.networks.Canonical(cc.Network.Name)
		a := c.Ensure(cc.Symbol)
		a.Fiat = c.FiatOptions
		a.AddNetwork(canonical)
		if len(cc.Network.FiatCurrenciesNotSupported) > 0 {
			if a.Unsupported == nil {
				a.Unsupported = make(map[string][]catalog.Combination)
			}
			for _, ex := range cc.Network.FiatCurrenciesNotSupported {
				a.Unsupported[canonical] = append(a.Unsupported[canonical], catalog.Combination{
					Fiat:   ex.FiatCurrency,
					Method: ex.PaymentMethod,
				})
			}
		}
	}

	c.FoldWrapped(catalog.WrappedTokens, p.logger)
	c.Prune(p.logger)
	p.store.Replace(c)

	p.logger.Infow("catalog built", "provider", p.cfg.Name, "assets", len(c.Assets), "countries", len(c.Countries), "took", time.Since(start))
	return nil
}

func (p *Provider) fetchAll(ctx context.Context) ([]Country, []CryptoCurrency, []FiatCurrency) {
	results := fanout.All(ctx, []func(context.Context) (any, error){
		func(ctx context.Context) (any, error) { return p.client.GetCountries(ctx) },
		func(ctx context.Context) (any, error) { return p.client.GetCryptoCurrencies(ctx) },
		func(ctx context.Context) (any, error) { return p.client.GetFiatCurrencies(ctx) },
	})

	var countries []Country
	if results[0].Err != nil {
		p.logger.Warnw("country fetch failed", "provider", p.cfg.Name, "err", results[0].Err)
	} else {
		countries, _ = results[0].Value.([]Country)
	}
	var cryptos []CryptoCurrency
	if results[1].Err != nil {
		p.logger.Warnw("crypto currency fetch failed", "provider", p.cfg.Name, "err", results[1].Err)
	} else {
		cryptos, _ = results[1].Value.([]CryptoCurrency)
	}
	var fiats []FiatCurrency
	if results[2].Err != nil {
		p.logger.Warnw("fiat currency fetch failed", "provider", p.cfg.Name, "err", results[2].Err)
	} else {
		fiats, _ = results[2].Value.([]FiatCurrency)
	}
	return countries, cryptos, fiats
}

// Quotes prices every candidate payment method with an independent live
// call. Branches settle independently: failures are logged and excluded,
// never failing the whole resolution. The only error case is a fiat
// currency with no registered payment options at all.
func (p *Provider) Quotes(ctx context.Context, req provider.QuoteRequest) ([]provider.Quote, error) {
	snapshot := p.store.Current()

	options, ok := snapshot.FiatOptions[req.Fiat]
	if !ok || len(options) == 0 {
		return nil, fmt.Errorf("transak: no payment options registered for fiat %q", req.Fiat)
	}

	methods := make([]string, 0, len(options))
	for _, opt := range options {
		if opt.EligibleIn(req.Country) {
			methods = append(methods, opt.Method)
		}
	}
	if len(methods) == 0 {
		return []provider.Quote{}, nil
	}

	native, ok := p.networks.Native(req.Network)
	if !ok {
		return []provider.Quote{}, nil
	}
	nativeAsset := snapshot.NativeSymbol(req.Asset, req.Network)

	tasks := make([]func(context.Context) (provider.Quote, error), 0, len(methods))
	for _, method := range methods {
		method := method
		tasks = append(tasks, func(ctx context.Context) (provider.Quote, error) {
			ctx, cancel := context.WithTimeout(ctx, p.cfg.QuoteTimeout)
			defer cancel()
			price, err := p.client.GetPrice(ctx, PriceQuery{
				CryptoCurrency: nativeAsset,
				FiatCurrency:   req.Fiat,
				Network:        native,
				PaymentMethod:  method,
				AmountType:     string(req.AmountType),
				Amount:         req.Amount,
			})
			if err != nil {
				return provider.Quote{}, err
			}
			if price.ConversionPrice == 0 {
				return provider.Quote{}, fmt.Errorf("zero conversion price for method %q", method)
			}
			// Native direction is crypto per fiat unit; invert so every
			// provider emits fiat per one crypto unit.
			return provider.Quote{
				Price:    1 / price.ConversionPrice,
				Fee:      price.TotalFee,
				Method:   method,
				Provider: p.cfg.Name,
			}, nil
		})
	}

	results := fanout.All(ctx, tasks)
	quotes := make([]provider.Quote, 0, len(results))
	for i, res := range results {
		if res.Err != nil {
			metrics.QuoteBranchFailures.WithLabelValues(p.cfg.Name).Inc()
			p.logger.Warnw("quote branch failed", "provider", p.cfg.Name, "method", methods[i], "err", res.Err)
			continue
		}
		quotes = append(quotes, res.Value)
	}
	return quotes, nil
}

// RedirectURL builds the hosted checkout URL with the reverse-mapped
// symbol and the provider's native network name.
func (p *Provider) RedirectURL(req provider.RedirectRequest) (string, error) {
	native, _ := p.networks.Native(req.Network)
	nativeAsset := p.store.Current().NativeSymbol(req.Asset, req.Network)

	amountParam := "defaultCryptoAmount"
	if req.AmountType == provider.AmountFiat {
		amountParam = "defaultFiatAmount"
	}

	u := p.cfg.CheckoutURL +
		"?apiKey=" + p.cfg.APIKey +
		"&defaultCryptoCurrency=" + nativeAsset +
		"&fiatCurrency=" + req.Fiat +
		"&defaultNetwork=" + native +
		"&hideMenu=true" +
		"&defaultPaymentMethod=" + req.Method +
		"&" + amountParam + "=" + strconv.FormatFloat(req.Amount, 'f', -1, 64)
	if req.Address != "" {
		u += "&walletAddress=" + req.Address
	}
	return u, nil
}
