package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/alerting"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/metrics"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeService struct {
	ingested   []models.Sample
	result     *alerting.ProcessResult
	ingestErr  error
	confirmed  map[string]bool
	confirmErr error
	alerts     []*models.Alert
	samples    []models.Sample
	lastLimit  int
}

func (f *fakeService) Ingest(_ context.Context, s models.Sample) (*alerting.ProcessResult, error) {
	f.ingested = append(f.ingested, s)
	return f.result, f.ingestErr
}

func (f *fakeService) ConfirmAlert(_ context.Context, id string, ok bool) error {
	if f.confirmed == nil {
		f.confirmed = map[string]bool{}
	}
	f.confirmed[id] = ok
	return f.confirmErr
}

func (f *fakeService) RecentAlerts(_ context.Context, limit int) ([]*models.Alert, error) {
	f.lastLimit = limit
	return f.alerts, nil
}

func (f *fakeService) RecentSamples(_ context.Context, limit int) ([]models.Sample, error) {
	f.lastLimit = limit
	return f.samples, nil
}

func setupRouter(svc *fakeService) http.Handler {
	h := NewFallHandler(svc, zap.NewNop())
	h.now = func() time.Time { return time.UnixMilli(99_000) }
	return NewRouter(h, metrics.NewMetrics(), []string{"*"})
}

func do(t *testing.T, router http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestIndexAndHealth(t *testing.T) {
	router := setupRouter(&fakeService{})

	rec, body := do(t, router, http.MethodGet, "/api", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/health", body["health"])

	rec, body = do(t, router, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestPostEvent_NoAlert(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(svc)

	rec, body := do(t, router, http.MethodPost, "/api/events", `{"accel":{"x":0,"y":0,"z":9.8},"context":"in_pocket"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["saved"])
	assert.Equal(t, false, body["alert"])
	assert.NotContains(t, body, "alertId")

	require.Len(t, svc.ingested, 1)
	assert.Equal(t, int64(99_000), svc.ingested[0].Timestamp, "missing timestamp defaults to server time")
	assert.Equal(t, "in_pocket", svc.ingested[0].Context)
}

func TestPostEvent_Alert(t *testing.T) {
	svc := &fakeService{result: &alerting.ProcessResult{
		AlertID: "a-1", Status: models.StatusPendingSilent, ConfirmStartsAt: 10, ExpiryAt: 20,
	}}
	router := setupRouter(svc)

	rec, body := do(t, router, http.MethodPost, "/api/events", `{"timestamp":5,"accel":{"x":0,"y":0,"z":17}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["alert"])
	assert.Equal(t, "a-1", body["alertId"])
	assert.Equal(t, "PENDING_SILENT", body["status"])
	assert.Equal(t, float64(10), body["confirmStartsAt"])
	assert.Equal(t, float64(20), body["expiryAt"])
	assert.Equal(t, int64(5), svc.ingested[0].Timestamp)
}

func TestPostEvent_Malformed(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(svc)

	for _, body := range []string{`{"accel":`, ``, `[1,2]`} {
		rec, _ := do(t, router, http.MethodPost, "/api/events", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, svc.ingested)
}

func TestPostEvent_PersistenceError(t *testing.T) {
	svc := &fakeService{ingestErr: alerting.ErrPersistence}
	router := setupRouter(svc)

	rec, body := do(t, router, http.MethodPost, "/api/events", `{"timestamp":1}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body["type"])
}

func TestConfirmAlert(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(svc)

	rec, body := do(t, router, http.MethodPost, "/api/alerts/a-1/confirm?ok=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.True(t, svc.confirmed["a-1"])

	rec, _ = do(t, router, http.MethodPost, "/api/alerts/a-2/confirm?ok=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ok, seen := svc.confirmed["a-2"]
	assert.True(t, seen)
	assert.False(t, ok)
}

func TestConfirmAlert_InvalidOk(t *testing.T) {
	svc := &fakeService{}
	router := setupRouter(svc)

	for _, target := range []string{"/api/alerts/a-1/confirm", "/api/alerts/a-1/confirm?ok=perhaps"} {
		rec, _ := do(t, router, http.MethodPost, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Empty(t, svc.confirmed)
}

func TestConfirmAlert_Error(t *testing.T) {
	svc := &fakeService{confirmErr: errors.Join(alerting.ErrPersistence, errors.New("db down"))}
	router := setupRouter(svc)

	rec, _ := do(t, router, http.MethodPost, "/api/alerts/a-1/confirm?ok=true", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListAlertsAndRecentEvents(t *testing.T) {
	svc := &fakeService{
		alerts:  []*models.Alert{{ID: "a-1", Status: models.StatusSent}},
		samples: []models.Sample{{Timestamp: 7}},
	}
	router := setupRouter(svc)

	rec, _ := do(t, router, http.MethodGet, "/api/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var alerts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, "SENT", alerts[0]["status"])
	assert.Equal(t, 30, svc.lastLimit)

	rec, _ = do(t, router, http.MethodGet, "/api/events/recent?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var samples []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &samples))
	require.Len(t, samples, 1)
	assert.Equal(t, 5, svc.lastLimit)
}

func TestEmptyListsAreArrays(t *testing.T) {
	router := setupRouter(&fakeService{})

	rec, _ := do(t, router, http.MethodGet, "/api/alerts", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestMetricsEndpointAndCORS(t *testing.T) {
	router := setupRouter(&fakeService{})
	do(t, router, http.MethodGet, "/api/health", "")

	rec, _ := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{route="/api/health",status="200"} 1`)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
