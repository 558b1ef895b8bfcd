package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	agentSignals *prometheus.CounterVec
	consensus    *prometheus.CounterVec
	messagesSent *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		agentSignals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_agent_signals_total",
				Help: "Agent votes by agent and direction",
			},
			[]string{"agent", "signal"},
		),
		consensus: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_consensus_total",
				Help: "Consensus results by confluence tier and approval",
			},
			[]string{"tier", "approved"},
		),
		messagesSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_messages_sent_total",
				Help: "Total number of results sent to backend",
			},
			[]string{"backend", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tradepulse_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepulse_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAgentSignal records one agent vote.
func (r *Recorder) RecordAgentSignal(agent, signal string) {
	r.agentSignals.WithLabelValues(agent, signal).Inc()
}

// RecordConsensus records one consensus result.
func (r *Recorder) RecordConsensus(tier string, approved bool) {
	r.consensus.WithLabelValues(tier, strconv.FormatBool(approved)).Inc()
}

// RecordMessageSent records a result sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
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
