package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveQuery("ok")
	m.ObserveQuery("ok")
	m.ObserveQuery("llm_error")
	m.ObserveToolCall("search_course_content", "ok")
	m.ObserveLLMCall("claude", 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queries.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("llm_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolCalls.WithLabelValues("search_course_content", "ok")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveQuery("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `course_rag_queries_total{outcome="ok"} 1`)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuery("ok")
		m.ObserveToolCall("x", "ok")
		m.ObserveLLMCall("m", time.Second)
	})
}
