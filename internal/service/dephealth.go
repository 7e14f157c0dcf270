// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Intake Module мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (critical),
//     если индекс метаданных хранится в PostgreSQL
//   - S3/MinIO — HTTP checker к /minio/health/live (critical),
//     если содержимое хранится в S3
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// minioHealthPath — liveness endpoint MinIO.
const minioHealthPath = "/minio/health/live"

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках
	Group string
	// CheckInterval — интервал проверки
	CheckInterval time.Duration
	// IsEntry — добавить лейбл isentry=yes ко всем зависимостям
	IsEntry bool

	// DB — *sql.DB из pgxpool (stdlib.OpenDBFromPool); nil — PostgreSQL не мониторится
	DB *sql.DB
	// PostgresURL — URL PostgreSQL для лейблов (без учётных данных)
	PostgresURL string

	// S3URL — URL S3 endpoint (http[s]://host:port); пусто — S3 не мониторится
	S3URL string

	// Registerer — Prometheus registerer; nil — глобальный
	Registerer prometheus.Registerer
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	deps   []string
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Возвращает ошибку, если не задана ни одна зависимость.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	opts := []dephealth.Option{dephealth.WithLogger(logger)}
	var deps []string

	if cfg.DB != nil {
		pgOpts := commonDepOpts(cfg, cfg.PostgresURL)
		opts = append(opts, dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)), pgOpts...))
		deps = append(deps, "postgresql")
	}

	if cfg.S3URL != "" {
		s3Opts := commonDepOpts(cfg, cfg.S3URL)
		s3Opts = append(s3Opts, dephealth.WithHTTPHealthPath(minioHealthPath))
		if parsed, err := url.Parse(cfg.S3URL); err == nil && parsed.Scheme == "https" {
			s3Opts = append(s3Opts, dephealth.WithHTTPTLSSkipVerify(false))
		}
		opts = append(opts, dephealth.HTTP("object-storage", s3Opts...))
		deps = append(deps, "object-storage")
	}

	if len(deps) == 0 {
		return nil, errors.New("нет зависимостей для мониторинга")
	}

	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		deps:   deps,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

func commonDepOpts(cfg DephealthConfig, target string) []dephealth.DependencyOption {
	opts := []dephealth.DependencyOption{
		dephealth.FromURL(target),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}
	if cfg.IsEntry {
		opts = append(opts, dephealth.WithLabel("isentry", "yes"))
	}
	return opts
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен", slog.Any("dependencies", ds.deps))
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
