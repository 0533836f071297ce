package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordFunctionCall("study_search", nil)
	m.RecordUpstreamRequest("search", 200, time.Second)
	m.RecordLLMRequest("openai", 1, 2, nil)
	m.RecordTurn(1, time.Second)
	if m.Registry() != nil {
		t.Error("Expected nil registry for nil metrics")
	}
}

func TestRecordFunctionCall(t *testing.T) {
	m := NewMetrics()
	m.RecordFunctionCall("study_search", nil)
	m.RecordFunctionCall("study_search", nil)
	m.RecordFunctionCall("save_csv", errors.New("boom"))

	if got := testutil.ToFloat64(m.FunctionCallsTotal.WithLabelValues("study_search", OutcomeSuccess)); got != 2 {
		t.Errorf("Expected 2 successful study_search calls, got %v", got)
	}
	if got := testutil.ToFloat64(m.FunctionCallsTotal.WithLabelValues("save_csv", OutcomeError)); got != 1 {
		t.Errorf("Expected 1 failed save_csv call, got %v", got)
	}
}

func TestRecordUpstreamRequest(t *testing.T) {
	m := NewMetrics()
	m.RecordUpstreamRequest("study", 404, 10*time.Millisecond)
	m.RecordUpstreamRequest("study", 0, 10*time.Millisecond)

	if got := testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("study", "404")); got != 1 {
		t.Errorf("Expected one 404, got %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequestsTotal.WithLabelValues("study", "error")); got != 1 {
		t.Errorf("Expected one transport error, got %v", got)
	}
}

func TestRecordLLMRequest(t *testing.T) {
	m := NewMetrics()
	m.RecordLLMRequest("anthropic", 10, 5, nil)
	m.RecordLLMRequest("anthropic", 10, 5, errors.New("down"))

	if got := testutil.ToFloat64(m.LLMTokensTotal.WithLabelValues("anthropic", "input")); got != 10 {
		t.Errorf("Expected 10 input tokens, got %v", got)
	}
	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("anthropic", OutcomeError)); got != 1 {
		t.Errorf("Expected 1 failed request, got %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordTurn(2, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "trialchat_turn_rounds") {
		t.Errorf("Expected trialchat_turn_rounds in output, got:\n%s", body)
	}
}
