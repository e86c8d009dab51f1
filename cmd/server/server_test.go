package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"onrampprovider/internal/catalog"
	"onrampprovider/internal/provider"
)

type fakeProvider struct {
	name      string
	store     *catalog.Store
	quotes    []provider.Quote
	quotesErr error
	redirect  string
}

func newFakeProvider(name string, c *catalog.Catalog) *fakeProvider {
	p := &fakeProvider{name: name, store: catalog.NewStore(), redirect: "https://checkout.example/" + name}
	p.store.Replace(c)
	return p
}

func (p *fakeProvider) Name() string                       { return p.name }
func (p *fakeProvider) BuildCatalog(context.Context) error { return nil }
func (p *fakeProvider) Catalog() *catalog.Catalog          { return p.store.Current() }

func (p *fakeProvider) RedirectURL(provider.RedirectRequest) (string, error) {
	return p.redirect, nil
}

func (p *fakeProvider) Quotes(context.Context, provider.QuoteRequest) ([]provider.Quote, error) {
	return p.quotes, p.quotesErr
}

type fakeGeo struct{ code string }

func (g fakeGeo) Country(context.Context, string) string { return g.code }

type fakeIPCheck struct {
	eligible bool
	err      error
}

func (c fakeIPCheck) CheckIPAddress(context.Context, string) (bool, error) {
	return c.eligible, c.err
}

func fixtureCatalog() *catalog.Catalog {
	c := catalog.New()
	eth := c.Ensure("ETH")
	eth.Fiat["USD"] = []catalog.PaymentOption{{Method: "card", MinLimit: 20, MaxLimit: 5000}}
	eth.AddNetwork("ethereum")
	c.Countries = map[string]catalog.Country{
		"GB": {Code: "GB", Name: "United Kingdom", CurrencyCode: "GBP", Allowed: true},
	}
	return c
}

func newTestServer(providers ...provider.Provider) *server {
	return &server{
		providers: providers,
		geo:       fakeGeo{code: "GB"},
		ipCheck:   fakeIPCheck{eligible: true},
		logger:    zap.NewNop().Sugar(),
		timeout:   5 * time.Second,
	}
}

func doRequest(t *testing.T, s *server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	req.RemoteAddr = "198.51.100.7:1234"
	rec := httptest.NewRecorder()
	s.routes(nil).ServeHTTP(rec, req)
	return rec
}

func TestHandleCatalog_GeoFallbackAndCountryMetadata(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeProvider("Transak", fixtureCatalog()))
	rec := doRequest(t, s, "/api/onramp/catalog")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp catalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "GB", resp.Country)
	require.Equal(t, "GBP", resp.DefaultCurrency)
	require.True(t, resp.Allowed)
	require.Contains(t, resp.Providers["Transak"], "ETH")
}

func TestHandleCatalog_ExplicitCountryParam(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeProvider("Transak", fixtureCatalog()))
	rec := doRequest(t, s, "/api/onramp/catalog?country=FR")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp catalogResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "FR", resp.Country)
	require.Equal(t, "USD", resp.DefaultCurrency)
	require.False(t, resp.Allowed)
}

func TestHandleQuote_MergesProvidersAndToleratesFailures(t *testing.T) {
	t.Parallel()

	good := newFakeProvider("Transak", fixtureCatalog())
	good.quotes = []provider.Quote{{Price: 2000, Fee: 3.5, Method: "card", Provider: "Transak"}}
	bad := newFakeProvider("BinanceConnect", catalog.New())
	bad.quotesErr = fmt.Errorf("upstream down")

	s := newTestServer(good, bad)
	rec := doRequest(t, s, "/api/onramp/quote?network=ethereum&asset=ETH&fiat=USD&type=fiat&amount=100")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp quotesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Quotes, 1)
	require.Equal(t, "Transak", resp.Quotes[0].Provider)
}

func TestHandleQuote_Validation(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeProvider("Transak", fixtureCatalog()))

	for _, target := range []string{
		"/api/onramp/quote?asset=ETH&fiat=USD&amount=100",              // missing network
		"/api/onramp/quote?network=ethereum&asset=ETH&fiat=USD",        // missing amount
		"/api/onramp/quote?network=ethereum&asset=ETH&fiat=USD&amount=-5",
		"/api/onramp/quote?network=ethereum&asset=ETH&fiat=USD&amount=100&type=nonsense",
	} {
		rec := doRequest(t, s, target)
		require.Equalf(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestHandleRedirect(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeProvider("Transak", fixtureCatalog()))

	rec := doRequest(t, s, "/api/onramp/redirect?provider=Transak&network=ethereum&asset=ETH&fiat=USD&amount=100")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp redirectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "https://checkout.example/Transak", resp.URL)

	rec = doRequest(t, s, "/api/onramp/redirect?provider=Nope&network=ethereum&asset=ETH&fiat=USD&amount=100")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCountry(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeProvider("Transak", fixtureCatalog()))

	rec := doRequest(t, s, "/api/onramp/countries/GB")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp countryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "GBP", resp.CurrencyCode)
	require.True(t, resp.Allowed)

	rec = doRequest(t, s, "/api/onramp/countries/ZZ")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "USD", resp.CurrencyCode)
	require.False(t, resp.Allowed)
}

func TestHandleEligibility(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeProvider("Transak", fixtureCatalog()))
	rec := doRequest(t, s, "/api/onramp/eligibility?ip=1.2.3.4")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp eligibilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "1.2.3.4", resp.IP)
	require.True(t, resp.Eligible)
}

func TestHandleEligibility_Unconfigured(t *testing.T) {
	t.Parallel()

	s := newTestServer(newFakeProvider("Transak", fixtureCatalog()))
	s.ipCheck = nil
	rec := doRequest(t, s, "/api/onramp/eligibility")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "198.51.100.7:1234"
	require.Equal(t, "198.51.100.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", clientIP(req))
}
