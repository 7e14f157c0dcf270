// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет health и файловые обработчики.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/intake-module/internal/api/generated"
	"github.com/bigkaa/goartstore/intake-module/internal/service"
)

// multipartOverhead — запас на заголовки и границы multipart сверх MaxFileSize.
const multipartOverhead = 1 << 20

// APIHandler — основной обработчик API Intake Module.
// Реализует generated.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health   *HealthHandler
	ingest   *service.IngestService
	query    *service.QueryService
	deletion *service.DeletionService
	download *service.DownloadService

	maxFileSize int64
	logger      *slog.Logger
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ generated.ServerInterface = (*APIHandler)(nil)

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	ingest *service.IngestService,
	query *service.QueryService,
	deletion *service.DeletionService,
	download *service.DownloadService,
	maxFileSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:      health,
		ingest:      ingest,
		query:       query,
		deletion:    deletion,
		download:    download,
		maxFileSize: maxFileSize,
		logger:      logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// GetOpenAPISpec — контракт API в JSON.
func (h *APIHandler) GetOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	h.health.GetOpenAPISpec(w, r)
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
