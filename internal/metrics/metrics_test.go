package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/evaluator"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	return pb.GetCounter().GetValue()
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.ObserveDecision(evaluator.Decision{Alert: true, RuleHit: true, MLScore: 0.9})
	m.ObserveDecision(evaluator.Decision{MLScore: 0.1})
	m.ObserveSuppressed()
	m.ObserveTransition(models.StatusPendingSilent, models.StatusPendingConfirm)
	m.ObserveDispatch(true)
	m.ObserveDispatch(false)
	m.ObserveDispatch(false)

	assert.Equal(t, 1.0, counterValue(t, m.decisions.WithLabelValues("true", "true", "false")))
	assert.Equal(t, 1.0, counterValue(t, m.decisions.WithLabelValues("false", "false", "false")))
	assert.Equal(t, 1.0, counterValue(t, m.suppressed))
	assert.Equal(t, 1.0, counterValue(t, m.transitions.WithLabelValues("PENDING_SILENT", "PENDING_CONFIRM")))
	assert.Equal(t, 1.0, counterValue(t, m.notifications.WithLabelValues("delivered")))
	assert.Equal(t, 2.0, counterValue(t, m.notifications.WithLabelValues("failed")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSuppressed()
		m.ObserveDispatch(true)
		m.ObserveDecision(evaluator.Decision{})
		m.ObserveTransition(models.StatusSent, models.StatusCancelled)
	})
}

func TestMetrics_HandlerAndWrap(t *testing.T) {
	m := NewMetrics()

	h := m.WrapHandler("/api/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, 1.0, counterValue(t, m.httpRequestsTotal.WithLabelValues("/api/health", "418")))

	m.ObserveSuppressed()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "fall_suppressed_samples_total 1")
}

func TestNewMetrics_Twice(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
