package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the screener engine.
type Metrics struct {
	RefreshCycles    prometheus.Counter
	SymbolsRefreshed prometheus.Counter
	RefreshFailures  *prometheus.CounterVec // labels: symbol
	RefreshDuration  prometheus.Histogram

	EvaluationsTotal   prometheus.Counter
	EvaluationDuration prometheus.Histogram

	BroadcastsTotal *prometheus.CounterVec // labels: frame_type
	DroppedSends    prometheus.Counter
	WSClients       prometheus.Gauge

	MirrorPublishFailures prometheus.Counter
}

// New registers and returns all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		RefreshCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_refresh_cycles_total",
			Help: "Total store refresh cycles started",
		}),
		SymbolsRefreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_symbols_refreshed_total",
			Help: "Total successful per-symbol vector refreshes",
		}),
		RefreshFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_refresh_failures_total",
			Help: "Per-symbol refresh failures (upstream fetch or data integrity)",
		}, []string{"symbol"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_refresh_cycle_seconds",
			Help:    "Wall time of full refresh cycles",
			Buckets: prometheus.DefBuckets,
		}),
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_evaluations_total",
			Help: "Total filter evaluations run by the coordinator",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_evaluation_seconds",
			Help:    "Duration of a single filter evaluation + diff",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
		BroadcastsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_broadcasts_total",
			Help: "Frames broadcast to subscribers",
		}, []string{"frame_type"}),
		DroppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_dropped_sends_total",
			Help: "Frames dropped because a client send buffer was full",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_ws_clients",
			Help: "Currently connected websocket clients",
		}),
		MirrorPublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_mirror_publish_failures_total",
			Help: "Vector mirror publishes that failed (best-effort path)",
		}),
	}

	prometheus.MustRegister(
		m.RefreshCycles, m.SymbolsRefreshed, m.RefreshFailures, m.RefreshDuration,
		m.EvaluationsTotal, m.EvaluationDuration,
		m.BroadcastsTotal, m.DroppedSends, m.WSClients,
		m.MirrorPublishFailures,
	)
	return m
}

// Serve starts the metrics HTTP server on addr with /metrics and /healthz.
// Blocks; intended to run in its own goroutine.
func Serve(addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.Info("metrics server listening", slog.String("addr", addr))
	return srv.ListenAndServe()
}
