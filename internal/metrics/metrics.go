// Package metrics Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/evaluator"
	"github.com/Sarvesh1502/Real-Time-Emergency-Health-Alert-Fall-Detection-System/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 实现 alerting.Metrics，并提供 HTTP 指标中间件
type Metrics struct {
	registry *prometheus.Registry

	decisions     *prometheus.CounterVec
	mlScore       prometheus.Histogram
	suppressed    prometheus.Counter
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics 使用独立 registry，同一进程可创建多份（测试）
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fall_decisions_total",
			Help: "Total classified samples by outcome.",
		}, []string{"alert", "rule_hit", "drop_like"}),
		mlScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fall_ml_score",
			Help:    "Distribution of model fall probability per classified sample.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fall_suppressed_samples_total",
			Help: "Total samples ignored during alert cooldown.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fall_alert_transitions_total",
			Help: "Total alert status transitions.",
		}, []string{"from", "to"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fall_notifications_total",
			Help: "Total alert notifications by result.",
		}, []string{"result"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.decisions,
		m.mlScore,
		m.suppressed,
		m.transitions,
		m.notifications,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) ObserveDecision(d evaluator.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(
		strconv.FormatBool(d.Alert),
		strconv.FormatBool(d.RuleHit),
		strconv.FormatBool(d.DropLike),
	).Inc()
	m.mlScore.Observe(d.MLScore)
}

func (m *Metrics) ObserveSuppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *Metrics) ObserveTransition(from, to models.AlertStatus) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (m *Metrics) ObserveDispatch(ok bool) {
	if m == nil {
		return
	}
	result := "failed"
	if ok {
		result = "delivered"
	}
	m.notifications.WithLabelValues(result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler 记录请求数与耗时
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
