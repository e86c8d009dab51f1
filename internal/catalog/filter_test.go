package catalog

import (
	"reflect"
	"testing"
)

func buildFilterFixture() *Catalog {
	c := New()

	eth := c.Ensure("ETH")
	eth.Fiat["USD"] = []PaymentOption{
		{Method: "card", MinLimit: 20, MaxLimit: 5000, Countries: []string{"US", "GB"}},
		{Method: "apple_pay", MinLimit: 20, MaxLimit: 5000}, // unscoped
	}
	eth.Fiat["EUR"] = []PaymentOption{
		{Method: "sepa", MinLimit: 5, MaxLimit: 1000, Countries: []string{"DE"}},
	}
	eth.AddNetwork("ethereum")
	eth.AddNetwork("optimism")
	eth.Unsupported = map[string][]Combination{
		"optimism": {{Fiat: "USD", Method: "apple_pay"}},
	}

	btc := c.Ensure("BTC")
	btc.Fiat["USD"] = []PaymentOption{
		{Method: "card", MinLimit: 30, MaxLimit: 2000, Countries: []string{"US"}},
	}
	btc.AddNetwork("bitcoin")

	return c
}

func TestForCountry_EligibilityAndExclusions(t *testing.T) {
	c := buildFilterFixture()

	view := c.ForCountry("GB")

	eth, ok := view["ETH"]
	if !ok {
		t.Fatalf("ETH missing from GB view: %+v", view)
	}
	// card is GB-eligible; apple_pay is unscoped but excluded by the
	// optimism combination.
	if len(eth.Fiat["USD"]) != 1 || eth.Fiat["USD"][0].Method != "card" {
		t.Fatalf("unexpected USD options: %+v", eth.Fiat["USD"])
	}
	// sepa is DE-only, so EUR drops out entirely.
	if _, ok := eth.Fiat["EUR"]; ok {
		t.Fatalf("EUR should be dropped for GB: %+v", eth.Fiat)
	}
	// BTC's only option is US-only; the whole asset drops.
	if _, ok := view["BTC"]; ok {
		t.Fatalf("BTC should be dropped for GB: %+v", view)
	}

	// Country lists are stripped from the view.
	if view["ETH"].Fiat["USD"][0].Countries != nil {
		t.Fatalf("country list leaked into view: %+v", view["ETH"].Fiat["USD"][0])
	}
}

func TestForCountry_PureAndIdempotent(t *testing.T) {
	c := buildFilterFixture()

	first := c.ForCountry("US")
	second := c.ForCountry("US")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("view not deterministic:\n%+v\n%+v", first, second)
	}

	// The snapshot itself must be untouched.
	if len(c.Assets["ETH"].Fiat["USD"]) != 2 {
		t.Fatalf("catalog mutated by ForCountry: %+v", c.Assets["ETH"].Fiat)
	}
	if c.Assets["ETH"].Fiat["USD"][0].Countries == nil {
		t.Fatalf("country list stripped from the catalog itself")
	}
}

func TestForCountry_CaseSensitiveCodes(t *testing.T) {
	c := buildFilterFixture()

	if _, ok := c.ForCountry("us")["BTC"]; ok {
		t.Fatal("lowercase code must not match an uppercase country list")
	}
	if _, ok := c.ForCountry("US")["BTC"]; !ok {
		t.Fatal("exact-case code must match")
	}
}

func TestEligibleIn(t *testing.T) {
	unscoped := PaymentOption{Method: "card"}
	if !unscoped.EligibleIn("ZZ") {
		t.Fatal("option without a country list is eligible everywhere")
	}
	scoped := PaymentOption{Method: "card", Countries: []string{"US", "GB"}}
	if !scoped.EligibleIn("GB") || scoped.EligibleIn("FR") {
		t.Fatalf("scoped eligibility: GB=%v FR=%v", scoped.EligibleIn("GB"), scoped.EligibleIn("FR"))
	}
	empty := PaymentOption{Method: "card", Countries: []string{}}
	if empty.EligibleIn("US") {
		t.Fatal("empty (non-nil) country list is eligible nowhere")
	}
}
