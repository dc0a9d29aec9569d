package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/alerting"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FallService handler 依赖的服务接口
type FallService interface {
	Ingest(ctx context.Context, sample models.Sample) (*alerting.ProcessResult, error)
	ConfirmAlert(ctx context.Context, alertID string, isOkay bool) error
	RecentAlerts(ctx context.Context, limit int) ([]*models.Alert, error)
	RecentSamples(ctx context.Context, limit int) ([]models.Sample, error)
}

// FallHandler 采样上报、报警确认与查询
type FallHandler struct {
	svc    FallService
	now    func() time.Time
	logger *zap.Logger
}

func NewFallHandler(svc FallService, logger *zap.Logger) *FallHandler {
	return &FallHandler{
		svc:    svc,
		now:    time.Now,
		logger: logger,
	}
}

// Index GET /api
func (h *FallHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "Fall detection alert API",
		"health":        "/api/health",
		"alerts":        "/api/alerts",
		"events_recent": "/api/events/recent",
	})
}

// Health GET /api/health
func (h *FallHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// PostEvent POST /api/events
func (h *FallHandler) PostEvent(w http.ResponseWriter, r *http.Request) {
	var payload models.SamplePayload
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid sample payload: "+err.Error()))
		return
	}

	sample := payload.ToSample(h.now().UnixMilli())
	result, err := h.svc.Ingest(r.Context(), sample)
	if err != nil {
		h.logger.Error("Failed to ingest sample",
			zap.Int64("timestamp", sample.Timestamp),
			zap.Error(err),
		)
		writeJSON(w, statusFor(err), Fail("failed to process sample"))
		return
	}

	resp := map[string]any{
		"saved": true,
		"alert": result != nil,
	}
	if result != nil {
		resp["alertId"] = result.AlertID
		resp["status"] = result.Status
		resp["confirmStartsAt"] = result.ConfirmStartsAt
		resp["expiryAt"] = result.ExpiryAt
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAlerts GET /api/alerts
func (h *FallHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 30)
	alerts, err := h.svc.RecentAlerts(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list alerts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list alerts"))
		return
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

// ConfirmAlert POST /api/alerts/{id}/confirm?ok=<bool>
func (h *FallHandler) ConfirmAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "id")
	isOkay, err := strconv.ParseBool(r.URL.Query().Get("ok"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("query parameter ok must be true or false"))
		return
	}

	if err := h.svc.ConfirmAlert(r.Context(), alertID, isOkay); err != nil {
		h.logger.Error("Failed to confirm alert",
			zap.String("alert_id", alertID),
			zap.Bool("ok", isOkay),
			zap.Error(err),
		)
		writeJSON(w, statusFor(err), Fail("failed to confirm alert"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// RecentEvents GET /api/events/recent
func (h *FallHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := parseInt(r.URL.Query().Get("limit"), 30)
	samples, err := h.svc.RecentSamples(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list recent samples", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list recent samples"))
		return
	}
	if samples == nil {
		samples = []models.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func statusFor(err error) int {
	if errors.Is(err, alerting.ErrInvalidTransition) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
