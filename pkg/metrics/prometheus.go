package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

var _ domrepo.Metrics = (*Recorder)(nil)

// Recorder implements the domain Metrics interface with Prometheus collectors.
type Recorder struct {
	signals   *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	errors    *prometheus.CounterVec
	lastPrice *prometheus.GaugeVec
	latency   *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_signals_total",
				Help: "Candidate signals by outcome (emitted, suppressed, rejected)",
			},
			[]string{"symbol", "kind", "outcome"},
		),
		skipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_symbols_skipped_total",
				Help: "Symbols skipped in a scan cycle",
			},
			[]string{"symbol", "reason"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_provider_fallbacks_total",
				Help: "Provider calls answered from cache after a failure",
			},
			[]string{"provider", "op"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_errors_total",
				Help: "Errors by kind",
			},
			[]string{"kind"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signalforge_last_price",
				Help: "Last observed trade price",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalforge_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSignal(symbol string, kind models.SignalKind, outcome string) {
	r.signals.WithLabelValues(symbol, string(kind), outcome).Inc()
}

func (r *Recorder) RecordSymbolSkipped(symbol, reason string) {
	r.skipped.WithLabelValues(symbol, reason).Inc()
}

func (r *Recorder) RecordProviderFallback(provider, op string) {
	r.fallbacks.WithLabelValues(provider, op).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
