// metrics.go — Prometheus HTTP метрики Intake Module:
// im_http_requests_total, im_http_request_duration_seconds.
// Нормализация путей ограничивает кардинальность лейблов.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "im_http_requests_total",
			Help: "Общее количество HTTP-запросов к Intake Module",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "im_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к Intake Module в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			path := normalizePath(r.URL.Path)

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// normalizePath заменяет id файла на {id}.
// /api/v1/files/<id>/content → /api/v1/files/{id}/content
// Неизвестные пути сводятся к "other".
func normalizePath(path string) string {
	prefix := ""
	if HasAPIPrefix(path) {
		prefix, path = APIPrefix, strings.TrimPrefix(path, APIPrefix)
	}

	switch path {
	case "/files", "/health/live", "/health/ready", "/metrics", "/openapi.json":
		return prefix + path
	}

	rest, ok := strings.CutPrefix(path, "/files/")
	if !ok || rest == "" {
		return "other"
	}
	id, suffix, _ := strings.Cut(rest, "/")
	switch {
	case id == "":
		return "other"
	case suffix == "":
		return prefix + "/files/{id}"
	case suffix == "content":
		return prefix + "/files/{id}/content"
	default:
		return "other"
	}
}
