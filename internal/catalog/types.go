package catalog

// PaymentOption is one way to pay for a fiat currency, with transaction
// limits expressed in the unit chosen at query time (fiat or crypto).
type PaymentOption struct {
	Method   string  `json:"paymentMethod"`
	MinLimit float64 `json:"minLimit"`
	MaxLimit float64 `json:"maxLimit"`
	// Countries lists the country codes eligible for this option.
	// A nil list means the provider does not scope the option by country.
	Countries []string `json:"supportingCountries,omitempty"`
}

// Combination is a provider-declared (fiat currency, payment method) pair,
// used to express per-network exclusions.
type Combination struct {
	Fiat   string `json:"fiatCurrency"`
	Method string `json:"paymentMethod"`
}

// Asset is the catalog entry for one canonical crypto asset.
type Asset struct {
	// Fiat maps a fiat currency code to the payment options it supports.
	Fiat map[string][]PaymentOption `json:"fiatCurrencies"`
	// Networks holds the canonical networks this asset is available on.
	Networks []string `json:"networks"`
	// Unsupported maps a canonical network to the (fiat, method)
	// combinations the provider excludes for this asset on that network.
	Unsupported map[string][]Combination `json:"-"`
}

// Country is a provider country record, loaded once at catalog build.
type Country struct {
	Code         string `json:"alpha2"`
	Name         string `json:"name"`
	Alpha3       string `json:"alpha3"`
	CurrencyCode string `json:"currencyCode"`
	Allowed      bool   `json:"isAllowed"`
}

type reverseKey struct {
	asset   string
	network string
}

// Catalog is one provider's normalized view: canonical asset symbol to its
// fiat currencies, payment options and networks, plus country records and
// the reverse mapping left behind by wrapped-token folding.
type Catalog struct {
	Assets    map[string]*Asset  `json:"assets"`
	Countries map[string]Country `json:"countries,omitempty"`
	// FiatOptions is the provider-wide payment-option registry, kept for
	// providers that publish options per fiat currency rather than per
	// asset; such builders point every asset's Fiat map at this registry.
	FiatOptions map[string][]PaymentOption `json:"-"`

	reverse map[reverseKey]string
}

func New() *Catalog {
	return &Catalog{
		Assets:  make(map[string]*Asset),
		reverse: make(map[reverseKey]string),
	}
}

// Ensure returns the entry for asset, creating an empty one if needed.
func (c *Catalog) Ensure(asset string) *Asset {
	a, ok := c.Assets[asset]
	if !ok {
		a = &Asset{Fiat: make(map[string][]PaymentOption)}
		c.Assets[asset] = a
	}
	return a
}

// WrappedSymbol reports the original wrapped symbol whose data was folded
// into (asset, network), if any.
func (c *Catalog) WrappedSymbol(asset, network string) (string, bool) {
	w, ok := c.reverse[reverseKey{asset: asset, network: network}]
	return w, ok
}

// NativeSymbol resolves the symbol a provider expects for (asset, network):
// the wrapped original when the pair absorbed a fold, else asset unchanged.
func (c *Catalog) NativeSymbol(asset, network string) string {
	if w, ok := c.WrappedSymbol(asset, network); ok {
		return w
	}
	return asset
}

// CountryCurrency returns the default fiat currency for a country code,
// falling back to USD for unknown codes. Lookups are case-sensitive.
func (c *Catalog) CountryCurrency(code string) string {
	if country, ok := c.Countries[code]; ok {
		return country.CurrencyCode
	}
	return "USD"
}

// CountryAllowed reports whether a country is allowed by the provider.
// Unknown codes are not allowed.
func (c *Catalog) CountryAllowed(code string) bool {
	country, ok := c.Countries[code]
	return ok && country.Allowed
}

func (a *Asset) hasNetwork(network string) bool {
	for _, n := range a.Networks {
		if n == network {
			return true
		}
	}
	return false
}

// AddNetwork appends network to the asset unless already present.
func (a *Asset) AddNetwork(network string) {
	if !a.hasNetwork(network) {
		a.Networks = append(a.Networks, network)
	}
}
