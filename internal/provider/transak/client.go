package transak

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"onrampprovider/internal/httpx"
)

const defaultBaseURL = "https://staging-api.transak.com/api/v2"

// Client calls the Transak partner API. Endpoints are unauthenticated
// reads except pricing, which carries the partner API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
}

func NewClient(baseURL, apiKey string, hc *httpx.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: hc}
}

// PaymentOption is one payment method of a fiat currency.
type PaymentOption struct {
	ID        string  `json:"id"`
	MinAmount float64 `json:"minAmount"`
	MaxAmount float64 `json:"maxAmount"`
	IsActive  bool    `json:"isActive"`
}

// FiatCurrency is one row of the fiat currency list.
type FiatCurrency struct {
	Symbol              string          `json:"symbol"`
	SupportingCountries []string        `json:"supportingCountries"`
	IsAllowed           bool            `json:"isAllowed"`
	PaymentOptions      []PaymentOption `json:"paymentOptions"`
	CurrencyCode        string          `json:"currencyCode"`
}

// UnsupportedFiat is a (fiat, method) pair a network excludes.
type UnsupportedFiat struct {
	FiatCurrency  string `json:"fiatCurrency"`
	PaymentMethod string `json:"paymentMethod"`
}

// CryptoNetwork is the network block of a crypto currency row.
type CryptoNetwork struct {
	Name                       string            `json:"name"`
	FiatCurrenciesNotSupported []UnsupportedFiat `json:"fiatCurrenciesNotSupported"`
}

// CryptoCurrency is one row of the crypto currency list.
type CryptoCurrency struct {
	Symbol    string        `json:"symbol"`
	UniqueID  string        `json:"uniqueId"`
	Network   CryptoNetwork `json:"network"`
	IsAllowed bool          `json:"isAllowed"`
}

// Country is one row of the country list.
type Country struct {
	IsAllowed    bool   `json:"isAllowed"`
	Name         string `json:"name"`
	Alpha2       string `json:"alpha2"`
	Alpha3       string `json:"alpha3"`
	CurrencyCode string `json:"currencyCode"`
}

// Price is a live pricing response for one payment method.
// ConversionPrice is the provider's native direction: crypto per one fiat
// unit. Callers invert it before exposing the quote.
type Price struct {
	ConversionPrice float64 `json:"conversionPrice"`
	TotalFee        float64 `json:"totalFee"`
}

// PriceQuery identifies one live pricing request in the provider's own
// vocabulary (native network name, native asset symbol).
type PriceQuery struct {
	CryptoCurrency string
	FiatCurrency   string
	Network        string
	PaymentMethod  string
	AmountType     string // "fiat" or "crypto"
	Amount         float64
}

// GetFiatCurrencies returns the allowed fiat currencies.
func (c *Client) GetFiatCurrencies(ctx context.Context) ([]FiatCurrency, error) {
	var raw struct {
		Response []FiatCurrency `json:"response"`
	}
	if err := c.get(ctx, "/currencies/fiat-currencies", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]FiatCurrency, 0, len(raw.Response))
	for _, fc := range raw.Response {
		if fc.IsAllowed {
			out = append(out, fc)
		}
	}
	return out, nil
}

// GetCryptoCurrencies returns the allowed crypto currencies with their
// network blocks, unfiltered by network.
func (c *Client) GetCryptoCurrencies(ctx context.Context) ([]CryptoCurrency, error) {
	var raw struct {
		Response []CryptoCurrency `json:"response"`
	}
	if err := c.get(ctx, "/currencies/crypto-currencies", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]CryptoCurrency, 0, len(raw.Response))
	for _, cc := range raw.Response {
		if cc.IsAllowed {
			out = append(out, cc)
		}
	}
	return out, nil
}

// GetCountries returns the provider's country records.
func (c *Client) GetCountries(ctx context.Context) ([]Country, error) {
	var raw struct {
		Response []Country `json:"response"`
	}
	if err := c.get(ctx, "/countries", nil, &raw); err != nil {
		return nil, err
	}
	return raw.Response, nil
}

// GetPrice issues one live pricing request.
func (c *Client) GetPrice(ctx context.Context, q PriceQuery) (Price, error) {
	params := url.Values{}
	params.Set("cryptoCurrency", q.CryptoCurrency)
	params.Set("fiatCurrency", q.FiatCurrency)
	params.Set("network", q.Network)
	params.Set("isBuyOrSell", "BUY")
	params.Set("paymentMethod", q.PaymentMethod)
	params.Set("partnerApiKey", c.apiKey)
	amountKey := "cryptoAmount"
	if q.AmountType == "fiat" {
		amountKey = "fiatAmount"
	}
	params.Set(amountKey, strconv.FormatFloat(q.Amount, 'f', -1, 64))

	var raw struct {
		Response Price `json:"response"`
	}
	if err := c.get(ctx, "/currencies/price", params, &raw); err != nil {
		return Price{}, err
	}
	return raw.Response, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return fmt.Errorf("GET %s -> %d: %s", path, resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
