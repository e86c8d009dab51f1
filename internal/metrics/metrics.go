package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "onramp_catalog_build_seconds",
		Help:    "Duration of provider catalog builds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	BuildFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onramp_catalog_build_failures_total",
		Help: "Provider catalog builds that returned an error.",
	}, []string{"provider"})

	LastBuildSuccess = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "onramp_catalog_last_build_unixtime",
		Help: "Unix time of the last successful catalog build.",
	}, []string{"provider"})

	CatalogAssets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "onramp_catalog_assets",
		Help: "Assets in the current provider catalog.",
	}, []string{"provider"})

	QuoteBranchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onramp_quote_branch_failures_total",
		Help: "Per-payment-method quote branches that failed and were excluded.",
	}, []string{"provider"})
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
