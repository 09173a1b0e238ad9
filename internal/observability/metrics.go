// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	EventsIngested *prometheus.CounterVec
	DecodeFailures prometheus.Counter
	WSReconnects   prometheus.Counter

	// Tracker metrics
	TrackedTokens prometheus.Gauge
	TokensSwept   prometheus.Counter

	// Decision metrics
	Decisions *prometheus.CounterVec

	// Trade metrics
	TradesSubmitted prometheus.Counter
	TradeOutcomes   *prometheus.CounterVec
	ConfirmLatency  prometheus.Histogram

	// Curve metrics
	CurveFetches    *prometheus.CounterVec
	LiquiditySkips  *prometheus.CounterVec
	RPCCallLatency  *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sniper"
	}

	return &Metrics{
		EventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "events_total",
			Help:      "Total number of events ingested by kind",
		}, []string{"kind"}),
		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "decode_failures_total",
			Help:      "Total number of event payloads dropped due to decode errors",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		TrackedTokens: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "tracked_tokens",
			Help:      "Number of tokens currently tracked",
		}),
		TokensSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "tokens_swept_total",
			Help:      "Total number of token states purged by the sweeper",
		}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Total number of terminal gate decisions by outcome and reason",
		}, []string{"outcome", "reason"}),

		TradesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "submitted_total",
			Help:      "Total number of transactions submitted",
		}),
		TradeOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "outcomes_total",
			Help:      "Total number of trade outcomes by result",
		}, []string{"result"}),
		ConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "confirm_latency_seconds",
			Help:      "Time from submit to confirmed status",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}),

		CurveFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "fetches_total",
			Help:      "Total number of bonding curve account reads by source",
		}, []string{"source"}),
		LiquiditySkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curve",
			Name:      "liquidity_skips_total",
			Help:      "Total number of entries skipped on liquidity checks",
		}, []string{"reason"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventIngested increments the ingested events counter.
func RecordEventIngested(kind string) {
	DefaultMetrics.EventsIngested.WithLabelValues(kind).Inc()
}

// RecordDecodeFailure increments the dropped payloads counter.
func RecordDecodeFailure() {
	DefaultMetrics.DecodeFailures.Inc()
}

// RecordWSReconnect increments the reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// UpdateTrackedTokens updates the tracked tokens gauge.
func UpdateTrackedTokens(n int) {
	DefaultMetrics.TrackedTokens.Set(float64(n))
}

// RecordTokensSwept adds to the swept tokens counter.
func RecordTokensSwept(n int) {
	DefaultMetrics.TokensSwept.Add(float64(n))
}

// RecordDecision records a terminal gate decision.
func RecordDecision(outcome, reason string) {
	DefaultMetrics.Decisions.WithLabelValues(outcome, reason).Inc()
}

// RecordTradeSubmitted increments the submitted trades counter.
func RecordTradeSubmitted() {
	DefaultMetrics.TradesSubmitted.Inc()
}

// RecordTradeOutcome records a trade result.
func RecordTradeOutcome(result string) {
	DefaultMetrics.TradeOutcomes.WithLabelValues(result).Inc()
}

// RecordConfirmLatency records time from submit to confirmation.
func RecordConfirmLatency(seconds float64) {
	DefaultMetrics.ConfirmLatency.Observe(seconds)
}

// RecordCurveFetch records a bonding curve read by source (cache or rpc).
func RecordCurveFetch(source string) {
	DefaultMetrics.CurveFetches.WithLabelValues(source).Inc()
}

// RecordLiquiditySkip records an entry skipped on a liquidity check.
func RecordLiquiditySkip(reason string) {
	DefaultMetrics.LiquiditySkips.WithLabelValues(reason).Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
