// Package httpapi 跌倒报警 REST 接口
package httpapi

import (
	"net/http"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
)

// NewRouter 注册路由与中间件；m 为 nil 时不暴露 /metrics
func NewRouter(h *FallHandler, m *metrics.Metrics, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	c := corslib.New(corslib.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	route := func(pattern string, fn http.HandlerFunc) http.Handler {
		return m.WrapHandler(pattern, fn)
	}

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/", route("/api", h.Index))
		r.Method(http.MethodGet, "/health", route("/api/health", h.Health))
		r.Method(http.MethodPost, "/events", route("/api/events", h.PostEvent))
		r.Method(http.MethodGet, "/events/recent", route("/api/events/recent", h.RecentEvents))
		r.Method(http.MethodGet, "/alerts", route("/api/alerts", h.ListAlerts))
		r.Method(http.MethodPost, "/alerts/{id}/confirm", route("/api/alerts/{id}/confirm", h.ConfirmAlert))
	})

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}
	return r
}
