package binanceconnect

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"onrampprovider/internal/catalog"
	"onrampprovider/internal/fanout"
	"onrampprovider/internal/provider"
	"onrampprovider/internal/sign"
)

const maxLimitDefault = math.MaxFloat64

// defaultNetworks is the allowed native network set and its canonical
// translation. Native networks outside this table are dropped at build.
var defaultNetworks = map[string]string{
	"BSC":      "bsc",
	"OPTIMISM": "optimism",
	"ARBITRUM": "arbitrum",
	"CELO":     "celo",
	"AVAX":     "avax",
	"FTM":      "fantom",
	"MATIC":    "polygon",
	"ONE":      "harmony",
	"MOVR":     "moonriver",
	"GLMR":     "moonbeam",
	"ROSE":     "oasis",
	"ETH":      "ethereum",
}

// feeRate is the locally applied fee on quoted amounts. The per-network
// withdrawal fee is fetched but intentionally not applied.
const feeRate = 0.02

// APIClient is the subset of the Binance Connect client the provider uses.
type APIClient interface {
	GetNetworkList(ctx context.Context) ([]Network, error)
	GetTradePairs(ctx context.Context) ([]TradePair, error)
}

// Config controls the Binance Connect provider.
type Config struct {
	Name         string
	CheckoutURL  string
	MerchantCode string
	// Networks overrides the native→canonical network table.
	Networks map[string]string
}

// Provider is the synchronous-catalog shape: trade pairs already carry a
// fixed quotation, so quote resolution filters live pair data locally.
type Provider struct {
	cfg      Config
	client   APIClient
	networks *catalog.NetworkMap
	store    *catalog.Store
	signer   sign.Signer
	logger   *zap.SugaredLogger
}

func New(cfg Config, client APIClient, signer sign.Signer, logger *zap.SugaredLogger) *Provider {
	if cfg.Name == "" {
		cfg.Name = "BinanceConnect"
	}
	if cfg.CheckoutURL == "" {
		cfg.CheckoutURL = "https://www.binancecnt.com/en/pre-connect"
	}
	if cfg.Networks == nil {
		cfg.Networks = defaultNetworks
	}
	return &Provider{
		cfg:      cfg,
		client:   client,
		networks: catalog.NewNetworkMap(cfg.Networks),
		store:    catalog.NewStore(),
		signer:   signer,
		logger:   logger,
	}
}

func (p *Provider) Name() string { return p.cfg.Name }

func (p *Provider) Catalog() *catalog.Catalog { return p.store.Current() }

// BuildCatalog fetches the network list and trade pairs in parallel,
// assembles the canonical catalog and swaps it in. Individual fetch
// failures degrade to empty sub-resources; the build never aborts.
func (p *Provider) BuildCatalog(ctx context.Context) error {
	start := time.Now()
	networks, pairs := p.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	c := catalog.New()
	for _, pair := range pairs {
		a := c.Ensure(pair.CryptoCurrency)
		min, max := pair.limits()
		a.Fiat[pair.FiatCurrency] = append(a.Fiat[pair.FiatCurrency], catalog.PaymentOption{
			Method:   pair.PaymentMethod,
			MinLimit: min,
			MaxLimit: max,
		})
	}

	for _, n := range networks {
		if !p.networks.Allows(n.Network) {
			continue
		}
		canonical := p.networks.Canonical(n.Network)
		a, ok := c.Assets[n.CryptoCurrency]
		if !ok {
			p.logger.Warnw("no trade pair for network data", "provider", p.cfg.Name, "asset", n.CryptoCurrency, "network", canonical)
			continue
		}
		a.AddNetwork(canonical)
	}

	c.FoldWrapped(catalog.WrappedTokens, p.logger)
	c.Prune(p.logger)
	p.store.Replace(c)

	p.logger.Infow("catalog built", "provider", p.cfg.Name, "assets", len(c.Assets), "took", time.Since(start))
	return nil
}

// fetchAll issues the independent reads concurrently; each failed branch
// is logged and substituted with an empty result.
func (p *Provider) fetchAll(ctx context.Context) ([]Network, []TradePair) {
	results := fanout.All(ctx, []func(context.Context) (any, error){
		func(ctx context.Context) (any, error) { return p.client.GetNetworkList(ctx) },
		func(ctx context.Context) (any, error) { return p.client.GetTradePairs(ctx) },
	})

	var networks []Network
	if results[0].Err != nil {
		p.logger.Warnw("network list fetch failed", "provider", p.cfg.Name, "err", results[0].Err)
	} else {
		networks, _ = results[0].Value.([]Network)
	}
	var pairs []TradePair
	if results[1].Err != nil {
		p.logger.Warnw("trade pair fetch failed", "provider", p.cfg.Name, "err", results[1].Err)
	} else {
		pairs, _ = results[1].Value.([]TradePair)
	}
	return networks, pairs
}

// Quotes resolves quotes from live trade-pair data. The requested
// canonical network is reverse-resolved to the provider's native name; if
// nothing maps, the result is empty rather than an error.
func (p *Provider) Quotes(ctx context.Context, req provider.QuoteRequest) ([]provider.Quote, error) {
	native, ok := p.networks.Native(req.Network)
	if !ok {
		return []provider.Quote{}, nil
	}
	nativeAsset := p.store.Current().NativeSymbol(req.Asset, req.Network)

	networks, pairs := p.fetchAll(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	supported := false
	for _, n := range networks {
		if n.Network == native && n.CryptoCurrency == nativeAsset {
			supported = true
			break
		}
	}
	if !supported {
		return []provider.Quote{}, nil
	}

	quotes := make([]provider.Quote, 0, 4)
	for _, pair := range pairs {
		if pair.FiatCurrency != req.Fiat || pair.CryptoCurrency != nativeAsset {
			continue
		}
		if !withinLimits(pair, req.AmountType, req.Amount) {
			continue
		}
		fee := req.Amount * feeRate
		if req.AmountType == provider.AmountCrypto {
			fee = req.Amount / pair.Quotation * feeRate
		}
		quotes = append(quotes, provider.Quote{
			Price:    pair.Quotation,
			Fee:      fee,
			Method:   pair.PaymentMethod,
			Provider: p.cfg.Name,
		})
	}
	return quotes, nil
}

// withinLimits checks the pair's transaction bounds. Fiat amounts compare
// directly; crypto amounts are converted through the pair's quotation
// before comparing.
func withinLimits(pair TradePair, amountType provider.AmountType, amount float64) bool {
	min, max := pair.limits()
	checked := amount
	if amountType == provider.AmountCrypto {
		checked = amount / pair.Quotation
	}
	return checked >= min && checked <= max
}

// RedirectURL builds the signed provider checkout URL. The asset and
// network are reverse-mapped back to the provider's native vocabulary.
func (p *Provider) RedirectURL(req provider.RedirectRequest) (string, error) {
	native, _ := p.networks.Native(req.Network)
	nativeAsset := p.store.Current().NativeSymbol(req.Asset, req.Network)
	ts := time.Now().UnixMilli()

	signaturePayload := fmt.Sprintf("merchantCode=%s&timestamp=%d", p.cfg.MerchantCode, ts)
	if req.Address != "" {
		signaturePayload = fmt.Sprintf("cryptoAddress=%s&cryptoNetwork=%s&", req.Address, native) + signaturePayload
	}
	raw, err := p.signer.Sign(signaturePayload)
	if err != nil {
		return "", fmt.Errorf("sign redirect: %w", err)
	}
	signature := url.QueryEscape(base64.StdEncoding.EncodeToString(raw))

	params := ""
	if req.Address != "" {
		params += "cryptoAddress=" + req.Address + "&"
	}
	params += "cryptoCurrency=" + nativeAsset + "&"
	if req.Address != "" {
		params += "cryptoNetwork=" + native + "&"
	}
	params += "fiatCurrency=" + req.Fiat + "&"
	params += "merchantCode=" + p.cfg.MerchantCode + "&"
	params += "orderAmount=" + strconv.FormatFloat(req.Amount, 'f', -1, 64) + "&"
	if req.Address != "" {
		params += "signature=" + signature + "&"
	}
	params += "timestamp=" + strconv.FormatInt(ts, 10)

	return p.cfg.CheckoutURL + "?" + params, nil
}
