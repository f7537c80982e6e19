package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for chat and search operations.
type Metrics struct {
	registry *prometheus.Registry

	chatTurns         *prometheus.CounterVec
	toolCalls         *prometheus.CounterVec
	completionRetries prometheus.Counter
	searchDuration    prometheus.Histogram
	chatDuration      prometheus.Histogram
}

// NewMetrics creates a metrics collector with its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		chatTurns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "placechat_chat_turns_total",
			Help: "Completed chat turns by outcome.",
		}, []string{"outcome"}),
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "placechat_tool_calls_total",
			Help: "Tool invocations by tool name and final status.",
		}, []string{"tool", "status"}),
		completionRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "placechat_completion_retries_total",
			Help: "Completion requests retried after a rate-limit hint.",
		}),
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "placechat_search_duration_seconds",
			Help:    "End-to-end place search latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		chatDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "placechat_chat_duration_seconds",
			Help:    "End-to-end chat turn latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

// RecordChatTurn records one finished chat turn.
func (m *Metrics) RecordChatTurn(outcome string, d time.Duration) {
	m.chatTurns.WithLabelValues(outcome).Inc()
	m.chatDuration.Observe(d.Seconds())
}

// RecordToolCall records a tool invocation's final status.
func (m *Metrics) RecordToolCall(tool, status string) {
	m.toolCalls.WithLabelValues(tool, status).Inc()
}

// RecordCompletionRetry counts a rate-limit retry.
func (m *Metrics) RecordCompletionRetry() {
	m.completionRetries.Inc()
}

// RecordSearch records one search operation's latency.
func (m *Metrics) RecordSearch(d time.Duration) {
	m.searchDuration.Observe(d.Seconds())
}

// Handler serves the metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
