package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	RegistryCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registry_calls",
		Help: "Total calls made to the researcher registry",
	}, []string{"status"})

	BiblioSourceCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "biblio_source_calls",
		Help: "Total calls made to bibliometric sources",
	}, []string{"source", "status"})

	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "token_refreshes",
		Help: "Total registry token refreshes",
	}, []string{"outcome"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups",
		Help: "Cache lookups by cache kind and outcome",
	}, []string{"cache", "outcome"})
)
