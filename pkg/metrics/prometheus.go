package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	envelopesTotal *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	lastPrice      *prometheus.GaugeVec
	latency        *prometheus.HistogramVec
	subscribers    prometheus.Gauge
	wsClients      prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		envelopesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedash_envelopes_total",
				Help: "Total number of envelopes delivered by the feed",
			},
			[]string{"kind", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedash_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradedash_last_price",
				Help: "Last generated price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradedash_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		subscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradedash_feed_subscribers",
				Help: "Current number of registered feed subscribers",
			},
		),
		wsClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "tradedash_ws_clients",
				Help: "Current number of connected websocket clients",
			},
		),
	}
}

// RecordEnvelope records one delivered envelope.
func (r *Recorder) RecordEnvelope(kind, symbol string) {
	r.envelopesTotal.WithLabelValues(kind, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// SetSubscribers records the feed subscriber registry size.
func (r *Recorder) SetSubscribers(n int) {
	r.subscribers.Set(float64(n))
}

// SetWSClients records the websocket client count.
func (r *Recorder) SetWSClients(n int) {
	r.wsClients.Set(float64(n))
}
