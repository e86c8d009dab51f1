package catalog

import (
	"sort"

	"go.uber.org/zap"
)

// WrappedTokens maps wrapped asset symbols to their unwrapped canonical
// identity. After a build, wrapped symbols never appear as top-level
// catalog keys; their market data is folded into the canonical entry.
var WrappedTokens = map[string]string{
	"WETH": "ETH",
	"WBTC": "BTC",
}

// NetworkMap translates between a provider's native network names and the
// canonical vocabulary shared across providers.
type NetworkMap struct {
	toCanonical map[string]string
	toNative    map[string]string
}

// NewNetworkMap builds a map from native→canonical pairs. The native names
// double as the provider's allow-list during catalog build.
func NewNetworkMap(nativeToCanonical map[string]string) *NetworkMap {
	m := &NetworkMap{
		toCanonical: make(map[string]string, len(nativeToCanonical)),
		toNative:    make(map[string]string, len(nativeToCanonical)),
	}
	for native, canonical := range nativeToCanonical {
		m.toCanonical[native] = canonical
		m.toNative[canonical] = native
	}
	return m
}

// Canonical translates a provider network name to its canonical name.
// Unknown names pass through unchanged: lenient passthrough is the
// intended policy for already-canonical or unmapped networks, not a
// validation gate.
func (m *NetworkMap) Canonical(name string) string {
	if v, ok := m.toCanonical[name]; ok {
		return v
	}
	return name
}

// Native is the inverse lookup used when calling back into the provider.
// ok is false when no native network maps to the canonical name.
func (m *NetworkMap) Native(canonical string) (string, bool) {
	v, ok := m.toNative[canonical]
	return v, ok
}

// Allows reports whether a native network name is in the translation
// table, i.e. inside the provider's allowed network set.
func (m *NetworkMap) Allows(native string) bool {
	_, ok := m.toCanonical[native]
	return ok
}

// FoldWrapped merges every wrapped asset present in c into its canonical
// identity per the wrapped table:
//   - a missing canonical entry is created, taking over the wrapped
//     asset's fiat data; fiat data is never merged into an entry that
//     already exists
//   - every network the wrapped asset supports and the canonical one does
//     not is copied over, along with its per-network exclusions, and a
//     reverse mapping (canonical, network) → wrapped symbol is recorded
//   - the wrapped top-level entry is deleted
func (c *Catalog) FoldWrapped(wrapped map[string]string, logger *zap.SugaredLogger) {
	symbols := make([]string, 0, len(wrapped))
	for w := range wrapped {
		if _, ok := c.Assets[w]; ok {
			symbols = append(symbols, w)
		}
	}
	sort.Strings(symbols)

	for _, w := range symbols {
		canonical := wrapped[w]
		src := c.Assets[w]

		dst, exists := c.Assets[canonical]
		if !exists {
			logger.Debugw("creating canonical asset from wrapped", "wrapped", w, "canonical", canonical)
			dst = &Asset{Fiat: src.Fiat}
			if dst.Fiat == nil {
				dst.Fiat = make(map[string][]PaymentOption)
			}
			c.Assets[canonical] = dst
		}

		for _, network := range src.Networks {
			if dst.hasNetwork(network) {
				continue
			}
			dst.Networks = append(dst.Networks, network)
			if combos, ok := src.Unsupported[network]; ok {
				if dst.Unsupported == nil {
					dst.Unsupported = make(map[string][]Combination)
				}
				dst.Unsupported[network] = combos
			}
			c.reverse[reverseKey{asset: canonical, network: network}] = w
			logger.Debugw("folded wrapped network", "wrapped", w, "canonical", canonical, "network", network)
		}

		delete(c.Assets, w)
	}
}

// Prune removes every asset left without a network or without any fiat
// currency holding at least one payment option.
func (c *Catalog) Prune(logger *zap.SugaredLogger) {
	for symbol, a := range c.Assets {
		if len(a.Networks) > 0 && a.hasPayableFiat() {
			continue
		}
		logger.Debugw("pruning asset with no usable offering", "asset", symbol)
		delete(c.Assets, symbol)
	}
}

func (a *Asset) hasPayableFiat() bool {
	for _, options := range a.Fiat {
		if len(options) > 0 {
			return true
		}
	}
	return false
}
