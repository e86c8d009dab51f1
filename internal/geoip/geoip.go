// Package geoip resolves a client IP address to a country code through an
// external lookup service, with a small per-IP cache. It is a collaborator
// of the catalog engine, not part of it: failures resolve to a configured
// default country instead of propagating.
package geoip

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"onrampprovider/internal/httpx"
)

const defaultLookupURL = "https://api.iplocation.net/"

// sentinel values the lookup service uses for "unknown".
func isSentinel(code string) bool {
	return code == "" || code == "_" || code == "-"
}

type Resolver struct {
	client         *httpx.Client
	lookupURL      string
	defaultCountry string
	logger         *zap.SugaredLogger

	mu    sync.RWMutex
	cache map[string]string // ip -> country code as returned, sentinels included

	sf singleflight.Group
}

func New(client *httpx.Client, lookupURL, defaultCountry string, logger *zap.SugaredLogger) *Resolver {
	if lookupURL == "" {
		lookupURL = defaultLookupURL
	}
	return &Resolver{
		client:         client,
		lookupURL:      lookupURL,
		defaultCountry: defaultCountry,
		logger:         logger,
		cache:          make(map[string]string),
	}
}

// Country resolves ipAddress to a country code. Cache hits skip the
// lookup; concurrent misses for the same IP are coalesced. Lookup
// failures and unknown-country sentinels resolve to the default country
// and are not cached.
func (r *Resolver) Country(ctx context.Context, ipAddress string) string {
	r.mu.RLock()
	code, ok := r.cache[ipAddress]
	r.mu.RUnlock()
	if ok {
		return r.orDefault(code)
	}

	v, err, _ := r.sf.Do(ipAddress, func() (any, error) {
		return r.lookup(ctx, ipAddress)
	})
	if err != nil {
		r.logger.Warnw("ip lookup failed", "ip", ipAddress, "err", err)
		return r.defaultCountry
	}

	code = v.(string)
	r.mu.Lock()
	r.cache[ipAddress] = code
	r.mu.Unlock()
	return r.orDefault(code)
}

func (r *Resolver) orDefault(code string) string {
	if isSentinel(code) {
		return r.defaultCountry
	}
	return code
}

type lookupResponse struct {
	CountryCode string `json:"country_code2"`
}

func (r *Resolver) lookup(ctx context.Context, ipAddress string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.lookupURL+"?ip="+ipAddress, http.NoBody)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.CountryCode, nil
}
