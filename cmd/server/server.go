package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"onrampprovider/internal/catalog"
	"onrampprovider/internal/fanout"
	"onrampprovider/internal/geoip"
	"onrampprovider/internal/metrics"
	"onrampprovider/internal/provider"
)

// countryResolver is the country-from-IP collaborator.
type countryResolver interface {
	Country(ctx context.Context, ipAddress string) string
}

// ipChecker is the provider-side IP eligibility collaborator.
type ipChecker interface {
	CheckIPAddress(ctx context.Context, ipAddress string) (bool, error)
}

type server struct {
	providers []provider.Provider
	geo       countryResolver
	ipCheck   ipChecker
	logger    *zap.SugaredLogger
	timeout   time.Duration
}

func (s *server) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/onramp", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/quote", s.handleQuote)
		r.Get("/redirect", s.handleRedirect)
		r.Get("/countries/{code}", s.handleCountry)
		r.Get("/eligibility", s.handleEligibility)
	})
	return r
}

type catalogResponse struct {
	Country         string                         `json:"country"`
	DefaultCurrency string                         `json:"defaultCurrency"`
	Allowed         bool                           `json:"allowed"`
	Providers       map[string]catalog.CountryView `json:"providers"`
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	country := r.URL.Query().Get("country")
	if country == "" {
		country = s.geo.Country(ctx, clientIP(r))
	}

	resp := catalogResponse{
		Country:         country,
		DefaultCurrency: "USD",
		Providers:       make(map[string]catalog.CountryView, len(s.providers)),
	}
	for _, p := range s.providers {
		snapshot := p.Catalog()
		resp.Providers[p.Name()] = snapshot.ForCountry(country)
		if len(snapshot.Countries) > 0 {
			resp.DefaultCurrency = snapshot.CountryCurrency(country)
			resp.Allowed = snapshot.CountryAllowed(country)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type quotesResponse struct {
	Quotes []provider.Quote `json:"quotes"`
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	network := q.Get("network")
	asset := q.Get("asset")
	fiat := q.Get("fiat")
	if network == "" || asset == "" || fiat == "" {
		http.Error(w, "network, asset and fiat query params are required", http.StatusBadRequest)
		return
	}
	amountType := provider.AmountType(q.Get("type"))
	if amountType == "" {
		amountType = provider.AmountFiat
	}
	if amountType != provider.AmountFiat && amountType != provider.AmountCrypto {
		http.Error(w, "type must be fiat or crypto", http.StatusBadRequest)
		return
	}
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil || amount <= 0 {
		http.Error(w, "amount must be a positive number", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	country := q.Get("country")
	if country == "" {
		country = s.geo.Country(ctx, clientIP(r))
	}

	req := provider.QuoteRequest{
		Network:    network,
		Asset:      asset,
		Fiat:       fiat,
		AmountType: amountType,
		Amount:     amount,
		Country:    country,
	}

	// Fan out across providers; a provider failing only loses its own
	// quotes.
	tasks := make([]func(context.Context) ([]provider.Quote, error), 0, len(s.providers))
	for _, p := range s.providers {
		p := p
		tasks = append(tasks, func(ctx context.Context) ([]provider.Quote, error) {
			return p.Quotes(ctx, req)
		})
	}
	results := fanout.All(ctx, tasks)

	all := make([]provider.Quote, 0, 4)
	for i, res := range results {
		if res.Err != nil {
			s.logger.Warnw("provider quotes failed", "provider", s.providers[i].Name(), "err", res.Err)
			continue
		}
		all = append(all, res.Value...)
	}
	writeJSON(w, http.StatusOK, quotesResponse{Quotes: all})
}

type redirectResponse struct {
	URL string `json:"url"`
}

func (s *server) handleRedirect(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("provider")
	p := s.providerByName(name)
	if p == nil {
		http.Error(w, "unknown provider", http.StatusBadRequest)
		return
	}
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil || amount <= 0 {
		http.Error(w, "amount must be a positive number", http.StatusBadRequest)
		return
	}
	amountType := provider.AmountType(q.Get("type"))
	if amountType == "" {
		amountType = provider.AmountFiat
	}

	u, err := p.RedirectURL(provider.RedirectRequest{
		Network:    q.Get("network"),
		Asset:      q.Get("asset"),
		Fiat:       q.Get("fiat"),
		Method:     q.Get("method"),
		AmountType: amountType,
		Amount:     amount,
		Address:    q.Get("address"),
	})
	if err != nil {
		s.logger.Errorw("redirect build failed", "provider", name, "err", err)
		http.Error(w, "could not build redirect url", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, redirectResponse{URL: u})
}

type countryResponse struct {
	Country      string `json:"country"`
	CurrencyCode string `json:"currencyCode"`
	Allowed      bool   `json:"allowed"`
}

func (s *server) handleCountry(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	resp := countryResponse{Country: code, CurrencyCode: "USD"}
	for _, p := range s.providers {
		snapshot := p.Catalog()
		if len(snapshot.Countries) > 0 {
			resp.CurrencyCode = snapshot.CountryCurrency(code)
			resp.Allowed = snapshot.CountryAllowed(code)
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type eligibilityResponse struct {
	IP       string `json:"ip"`
	Eligible bool   `json:"eligible"`
}

func (s *server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	if s.ipCheck == nil {
		http.Error(w, "eligibility check not configured", http.StatusServiceUnavailable)
		return
	}
	ip := r.URL.Query().Get("ip")
	if ip == "" {
		ip = clientIP(r)
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	ok, err := s.ipCheck.CheckIPAddress(ctx, ip)
	if err != nil {
		s.logger.Warnw("ip eligibility check failed", "ip", ip, "err", err)
		ok = false
	}
	writeJSON(w, http.StatusOK, eligibilityResponse{IP: ip, Eligible: ok})
}

func (s *server) providerByName(name string) provider.Provider {
	for _, p := range s.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

var _ countryResolver = (*geoip.Resolver)(nil)
