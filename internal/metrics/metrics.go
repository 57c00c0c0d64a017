// Package metrics exposes the Prometheus collectors for invoicing and chat.
// All methods are safe on a nil *Metrics so components can run without them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	chatTurns       *prometheus.CounterVec
	toolExecutions  *prometheus.CounterVec
	toolDuration    *prometheus.HistogramVec
	llmCalls        *prometheus.CounterVec
	invoicesCreated *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invagro_chat_turns_total",
			Help: "Chat turns by outcome (answer, tool, refusal, fallback, error).",
		}, []string{"outcome"}),
		toolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invagro_tool_executions_total",
			Help: "Analytics tool executions by tool and status.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invagro_tool_duration_seconds",
			Help:    "Analytics tool query latency.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"tool"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invagro_llm_calls_total",
			Help: "LLM gateway calls by purpose (dispatch, synthesis, summary) and status.",
		}, []string{"purpose", "status"}),
		invoicesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invagro_invoices_created_total",
			Help: "Invoices created by kind.",
		}, []string{"kind"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "invagro_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.chatTurns,
		m.toolExecutions,
		m.toolDuration,
		m.llmCalls,
		m.invoicesCreated,
		m.httpDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ChatTurn(outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ToolExecuted(tool, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolExecutions.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) LLMCall(purpose string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmCalls.WithLabelValues(purpose, status).Inc()
}

func (m *Metrics) InvoiceCreated(kind string) {
	if m == nil {
		return
	}
	m.invoicesCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
