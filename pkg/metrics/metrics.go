package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuotesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "quotes_total", Help: "Quote queries issued against the AMM"},
	)
	QuotesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "quotes_failed_total", Help: "Quote queries that returned an error"},
	)
	QuotesDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "quotes_discarded_total", Help: "Quote results discarded as superseded"},
	)
	SwapsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "swaps_total", Help: "Swap transactions by terminal outcome"},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(QuotesTotal, QuotesFailed, QuotesDiscarded, SwapsTotal)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
