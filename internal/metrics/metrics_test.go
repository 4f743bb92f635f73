package metrics

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Scored("wife", 3)
	m.Scored("wife", math.NaN())
	m.Scored("husband", 1)
	m.SinkError()
	m.Observe("batch", time.Now().Add(-time.Second))

	body := scrape(t, m.Handler())
	assert.Contains(t, body, `propscore_results_total{stakeholder="wife"} 2`)
	assert.Contains(t, body, `propscore_results_total{stakeholder="husband"} 1`)
	assert.Contains(t, body, `propscore_undefined_totals_total{stakeholder="wife"} 1`)
	assert.Contains(t, body, `propscore_sink_errors_total 1`)
	assert.Contains(t, body, `propscore_operation_duration_seconds_count{operation="batch"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Scored("wife", 1)
		m.SinkError()
		m.Observe("batch", time.Now())
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
