package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты загрузки для метрики im_uploads_total.
const (
	uploadResultCreated   = "created"
	uploadResultDuplicate = "duplicate"
	uploadResultRejected  = "rejected"
	uploadResultFailed    = "failed"
)

// Prometheus-метрики бизнес-операций.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "im_uploads_total",
		Help: "Количество загрузок по результату (created, duplicate, rejected, failed).",
	}, []string{"result"})

	ingestedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "im_ingested_bytes_total",
		Help: "Объём принятых байт (включая дубликаты).",
	})

	savedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "im_saved_bytes_total",
		Help: "Объём, сэкономленный дедупликацией.",
	})

	dedupRacesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "im_dedup_races_total",
		Help: "Количество гонок параллельных загрузок одного содержимого.",
	})

	queryTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "im_query_total",
		Help: "Общее количество запросов списка файлов.",
	})

	queryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "im_query_duration_seconds",
		Help:    "Длительность запросов списка файлов.",
		Buckets: prometheus.DefBuckets,
	})

	deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "im_deletes_total",
		Help: "Количество удалений по результату (ok, not_found, cache_error, blob_error, record_error).",
	}, []string{"result"})

	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "im_cache_hits_total",
		Help: "Общее количество попаданий в кэш метаданных.",
	})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "im_cache_misses_total",
		Help: "Общее количество промахов кэша метаданных.",
	})
)
