package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRender(t *testing.T) {
	m := New()
	m.ObserveRender("render-file", "rendered", 10*time.Millisecond)
	m.ObserveRender("render-file", "rendered", 20*time.Millisecond)
	m.ObserveRender("render-file", "failed", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.renders.WithLabelValues("render-file", "rendered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("render-file", "failed")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRender("x", "y", time.Second)
	m.SetCandidates(3)
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetCandidates(4)
	m.ObserveRender("insert-template", "cancelled", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "temple_template_candidates 4")
	assert.Contains(t, body, `temple_renders_total{command="insert-template",status="cancelled"} 1`)
}
