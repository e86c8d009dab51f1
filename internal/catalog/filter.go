package catalog

// CountryAsset is an asset's country-scoped view: eligible payment options
// per fiat currency, with the country lists stripped, plus its networks.
type CountryAsset struct {
	Fiat     map[string][]PaymentOption `json:"fiatCurrencies"`
	Networks []string                   `json:"networks"`
}

// CountryView is the subset of a provider catalog visible to one country.
type CountryView map[string]CountryAsset

// ForCountry derives the country-scoped view of the catalog. It is a pure
// function of the snapshot: no caching, no mutation of the catalog, and
// country codes match case-sensitively against the codes loaded at build.
//
// An asset keeps a fiat currency only if at least one payment option is
// both eligible for the country and not excluded by an unsupported
// combination on any of the asset's networks; assets with no fiat
// currencies left are dropped entirely.
func (c *Catalog) ForCountry(code string) CountryView {
	view := make(CountryView, len(c.Assets))

	for symbol, a := range c.Assets {
		excluded := a.excludedCombinations()

		fiat := make(map[string][]PaymentOption)
		for currency, options := range a.Fiat {
			var eligible []PaymentOption
			for _, opt := range options {
				if !opt.EligibleIn(code) {
					continue
				}
				if _, ok := excluded[Combination{Fiat: currency, Method: opt.Method}]; ok {
					continue
				}
				eligible = append(eligible, PaymentOption{
					Method:   opt.Method,
					MinLimit: opt.MinLimit,
					MaxLimit: opt.MaxLimit,
				})
			}
			if len(eligible) > 0 {
				fiat[currency] = eligible
			}
		}
		if len(fiat) == 0 {
			continue
		}

		networks := make([]string, len(a.Networks))
		copy(networks, a.Networks)
		view[symbol] = CountryAsset{Fiat: fiat, Networks: networks}
	}
	return view
}

// excludedCombinations collects the unsupported (fiat, method) pairs
// across every network the asset supports.
func (a *Asset) excludedCombinations() map[Combination]struct{} {
	out := make(map[Combination]struct{})
	for _, network := range a.Networks {
		for _, combo := range a.Unsupported[network] {
			out[combo] = struct{}{}
		}
	}
	return out
}

// EligibleIn reports whether the option may be offered in a country.
// Options without a country list are not scoped by country.
func (o PaymentOption) EligibleIn(code string) bool {
	if o.Countries == nil {
		return true
	}
	for _, c := range o.Countries {
		if c == code {
			return true
		}
	}
	return false
}
