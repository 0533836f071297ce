// Package metrics provides Prometheus metrics for trialchat
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds all Prometheus metrics for trialchat. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Function dispatch metrics
	FunctionCallsTotal *prometheus.CounterVec

	// Upstream metrics
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec

	// LLM metrics
	LLMRequestsTotal *prometheus.CounterVec
	LLMTokensTotal   *prometheus.CounterVec

	// Turn metrics
	TurnRounds   prometheus.Histogram
	TurnDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.FunctionCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialchat_function_calls_total",
			Help: "Total number of dispatched function calls",
		},
		[]string{"function", "outcome"},
	)

	m.UpstreamRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialchat_upstream_requests_total",
			Help: "Total number of clinicaltrials.gov requests",
		},
		[]string{"endpoint", "status"},
	)

	m.UpstreamRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trialchat_upstream_request_duration_seconds",
			Help:    "Duration of clinicaltrials.gov requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	m.LLMRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialchat_llm_requests_total",
			Help: "Total number of LLM completion requests",
		},
		[]string{"provider", "outcome"},
	)

	m.LLMTokensTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trialchat_llm_tokens_total",
			Help: "Total number of LLM tokens",
		},
		[]string{"provider", "direction"},
	)

	m.TurnRounds = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trialchat_turn_rounds",
			Help:    "Function-call rounds per conversation turn",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 20},
		},
	)

	m.TurnDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trialchat_turn_duration_seconds",
			Help:    "Duration of conversation turns in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the /metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFunctionCall records one dispatched function call
func (m *Metrics) RecordFunctionCall(function string, err error) {
	if m == nil {
		return
	}
	m.FunctionCallsTotal.WithLabelValues(function, outcome(err)).Inc()
}

// RecordUpstreamRequest records a clinicaltrials.gov request. A status of 0
// means no response was received.
func (m *Metrics) RecordUpstreamRequest(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequestsTotal.WithLabelValues(endpoint, label).Inc()
	m.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordLLMRequest records one completion request and its token usage
func (m *Metrics) RecordLLMRequest(provider string, inputTokens, outputTokens int, err error) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(provider, outcome(err)).Inc()
	if err == nil {
		m.LLMTokensTotal.WithLabelValues(provider, "input").Add(float64(inputTokens))
		m.LLMTokensTotal.WithLabelValues(provider, "output").Add(float64(outputTokens))
	}
}

// RecordTurn records a finished conversation turn
func (m *Metrics) RecordTurn(rounds int, duration time.Duration) {
	if m == nil {
		return
	}
	m.TurnRounds.Observe(float64(rounds))
	m.TurnDuration.Observe(duration.Seconds())
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
