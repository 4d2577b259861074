// Package telemetry exposes the service's Prometheus collectors, mirroring
// go-server-3's metrics package.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the Prometheus collectors this service publishes.
type Registry struct {
	Sessions       sessionGauges
	Events         eventCounters
	TokenListFetch tokenListCounters
}

type sessionGauges struct {
	Active       prometheus.Gauge
	WatchedChain *prometheus.GaugeVec
}

type eventCounters struct {
	BalanceUpdatesPublished prometheus.Counter
	ErrorsPublished         prometheus.Counter
	BusDropped              prometheus.Counter
}

type tokenListCounters struct {
	FetchFailures prometheus.Counter
	FetchSuccess  prometheus.Counter
}

// NewRegistry creates and registers the service's Prometheus collectors.
func NewRegistry() *Registry {
	return &Registry{
		Sessions: sessionGauges{
			Active: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "balances_watcher_sessions_active",
				Help: "Number of live (network, owner) sessions.",
			}),
			WatchedChain: promauto.NewGaugeVec(prometheus.GaugeOpts{
				Name: "balances_watcher_watched_tokens",
				Help: "Number of watched tokens per session key.",
			}, []string{"network", "owner"}),
		},
		Events: eventCounters{
			BalanceUpdatesPublished: promauto.NewCounter(prometheus.CounterOpts{
				Name: "balances_watcher_balance_updates_total",
				Help: "Total number of balance_update events published to the bus.",
			}),
			ErrorsPublished: promauto.NewCounter(prometheus.CounterOpts{
				Name: "balances_watcher_errors_total",
				Help: "Total number of error events published to the bus.",
			}),
			BusDropped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "balances_watcher_bus_dropped_total",
				Help: "Total number of events dropped because a subscriber channel was full.",
			}),
		},
		TokenListFetch: tokenListCounters{
			FetchFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "balances_watcher_token_list_fetch_failures_total",
				Help: "Total number of token-list lookups that failed.",
			}),
			FetchSuccess: promauto.NewCounter(prometheus.CounterOpts{
				Name: "balances_watcher_token_list_fetch_success_total",
				Help: "Total number of token-list lookups that succeeded, including ones served from cache.",
			}),
		},
	}
}

// Handler returns an HTTP handler exposing Prometheus metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
