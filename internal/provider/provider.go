package provider

import (
	"context"

	"onrampprovider/internal/catalog"
)

// AmountType says which unit a quote request's amount is expressed in.
type AmountType string

const (
	AmountFiat   AmountType = "fiat"
	AmountCrypto AmountType = "crypto"
)

// Quote is the normalized shape returned by all providers. Price is always
// fiat per one crypto unit regardless of the provider's native convention.
type Quote struct {
	Price    float64 `json:"quote"`
	Fee      float64 `json:"fee"`
	Method   string  `json:"paymentMethod"`
	Provider string  `json:"provider"`
}

// QuoteRequest identifies one pricing query in canonical vocabulary.
type QuoteRequest struct {
	Network    string
	Asset      string
	Fiat       string
	AmountType AmountType
	Amount     float64
	Country    string
}

// RedirectRequest carries what a provider checkout URL needs.
type RedirectRequest struct {
	Network    string
	Asset      string
	Fiat       string
	Method     string
	AmountType AmountType
	Amount     float64
	Address    string
}

type Provider interface {
	Name() string
	// BuildCatalog fetches the provider's raw data, normalizes it and
	// atomically replaces the provider's catalog. Partial upstream
	// failures degrade the result instead of failing the build.
	BuildCatalog(ctx context.Context) error
	// Catalog returns the current catalog snapshot.
	Catalog() *catalog.Catalog
	// Quotes resolves executable quotes for the request. Absence of data
	// yields an empty list, not an error.
	Quotes(ctx context.Context, req QuoteRequest) ([]Quote, error)
	// RedirectURL builds the provider checkout URL for a resolved quote.
	RedirectURL(req RedirectRequest) (string, error)
}
