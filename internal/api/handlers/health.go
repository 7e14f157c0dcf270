// health.go — обработчики служебных endpoints Intake Module.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (индекс метаданных и хранилище содержимого)
// /metrics — Prometheus метрики
// /openapi.json — контракт API
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/goartstore/intake-module/internal/config"
)

// serviceName — имя сервиса в ответах health.
const serviceName = "intake-module"

// blobCheckTimeout — таймаут проверки хранилища в readiness probe.
const blobCheckTimeout = 3 * time.Second

// ReadinessChecker — интерфейс проверки готовности зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает статус ("ok", "degraded", "fail") и сообщение.
	CheckReady() (status, message string)
}

// BlobChecker — проверка доступности хранилища содержимого.
type BlobChecker interface {
	Check(ctx context.Context) error
}

// HealthHandler — обработчик служебных endpoints.
type HealthHandler struct {
	pgChecker   ReadinessChecker
	blobChecker BlobChecker
	promHandler http.Handler
	spec        *openapi3.T
}

// NewHealthHandler создаёт обработчик служебных endpoints.
// pgChecker — проверка PostgreSQL; nil, если индекс хранится в памяти.
func NewHealthHandler(pgChecker ReadinessChecker, blobChecker BlobChecker, spec *openapi3.T) *HealthHandler {
	return &HealthHandler{
		pgChecker:   pgChecker,
		blobChecker: blobChecker,
		promHandler: promhttp.Handler(),
		spec:        spec,
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthLiveResponse — ответ liveness probe.
type healthLiveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

// healthReadyResponse — ответ readiness probe.
type healthReadyResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks"`
}

// HealthLive — liveness probe. Возвращает 200 если процесс жив.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthLiveResponse{
		Status:    statusOK,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
	})
}

// HealthReady — readiness probe. Возвращает 200 (ok/degraded) или 503 (fail).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	resp := healthReadyResponse{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   serviceName,
		Checks:    make(map[string]healthCheckResult, 2),
	}

	statuses := make([]string, 0, 2)

	if h.pgChecker != nil {
		pgStatus, pgMsg := h.pgChecker.CheckReady()
		resp.Checks["postgresql"] = healthCheckResult{Status: pgStatus, Message: pgMsg}
		statuses = append(statuses, pgStatus)
	}

	blob := healthCheckResult{Status: statusOK}
	ctx, cancel := context.WithTimeout(r.Context(), blobCheckTimeout)
	defer cancel()
	if err := h.blobChecker.Check(ctx); err != nil {
		blob = healthCheckResult{Status: statusFail, Message: err.Error()}
	}
	resp.Checks["blob_store"] = blob
	statuses = append(statuses, blob.Status)

	resp.Status = overallStatus(statuses...)

	status := http.StatusOK
	if resp.Status == statusFail {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// GetOpenAPISpec — OpenAPI-документ в JSON.
func (h *HealthHandler) GetOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	data, err := json.Marshal(h.spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// Константы статусов health check.
const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// overallStatus: fail, если хотя бы одна зависимость fail;
// degraded, если хотя бы одна degraded; иначе ok.
func overallStatus(statuses ...string) string {
	hasDegraded := false
	for _, s := range statuses {
		if s == statusFail {
			return statusFail
		}
		if s == statusDegraded {
			hasDegraded = true
		}
	}
	if hasDegraded {
		return statusDegraded
	}
	return statusOK
}
