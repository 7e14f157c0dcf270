// Точка входа Intake Module — приём файлов с дедупликацией по содержимому.
// Загружает конфигурацию, поднимает индекс метаданных (PostgreSQL или память),
// хранилище содержимого (локальный диск или S3), кэш метаданных (LRU или Redis),
// сервисный слой, HTTP-сервер с middleware и graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/goartstore/intake-module/internal/api/generated"
	"github.com/bigkaa/goartstore/intake-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/intake-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/intake-module/internal/config"
	"github.com/bigkaa/goartstore/intake-module/internal/database"
	"github.com/bigkaa/goartstore/intake-module/internal/repository"
	"github.com/bigkaa/goartstore/intake-module/internal/server"
	"github.com/bigkaa/goartstore/intake-module/internal/service"
	"github.com/bigkaa/goartstore/intake-module/internal/storage/blobstore"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Intake Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("metadata_backend", cfg.MetadataBackend),
		slog.String("blob_backend", cfg.BlobBackend),
	)

	ctx := context.Background()

	// 3. Индекс метаданных
	var (
		index     repository.FileIndex
		pgChecker handlers.ReadinessChecker
		pgDB      *sql.DB
	)
	switch cfg.MetadataBackend {
	case config.MetadataBackendPostgres:
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.VerifySchema(ctx, pool); err != nil {
			logger.Error("Индекс метаданных не обеспечивает дедупликацию", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// Адаптер pgxpool → *sql.DB для topologymetrics
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		index = repository.NewFileRepository(pool)
		pgChecker = database.NewReadinessChecker(pool)
	default:
		logger.Warn("Индекс метаданных в памяти: записи не переживут перезапуск")
		index = repository.NewMemoryIndex(logger)
	}

	// 4. Хранилище содержимого
	var (
		store blobstore.Store
		s3URL string
	)
	switch cfg.BlobBackend {
	case config.BlobBackendS3:
		s3Store, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			UseSSL:    cfg.S3UseSSL,
		}, cfg.StagingDir, logger)
		if err != nil {
			logger.Error("Ошибка инициализации S3", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = s3Store
		s3URL = "http://" + cfg.S3Endpoint
		if cfg.S3UseSSL {
			s3URL = "https://" + cfg.S3Endpoint
		}
	default:
		fileStore, err := blobstore.NewFileStore(cfg.DataDir, cfg.StagingDir)
		if err != nil {
			logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = fileStore
	}

	// 5. Кэш метаданных
	var cache service.MetadataCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Кэш необязателен: сбои Redis считаются промахами
			logger.Warn("Redis недоступен при старте", slog.String("error", err.Error()))
		}
		cache = service.NewRedisCache(rdb, cfg.CacheTTL, logger)
	} else {
		cache = service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)
	}

	// 6. Сервисный слой
	ingestSvc := service.NewIngestService(index, store, logger)
	querySvc := service.NewQueryService(index, cache, logger)
	deletionSvc := service.NewDeletionService(index, store, cache, logger)
	downloadSvc := service.NewDownloadService(querySvc, store, logger)

	// 7. Мониторинг зависимостей (topologymetrics)
	if pgDB != nil || s3URL != "" {
		dephealthSvc, err := service.NewDephealthService(service.DephealthConfig{
			ServiceID:     "intake-module",
			Group:         cfg.DephealthGroup,
			CheckInterval: cfg.DephealthCheckInterval,
			IsEntry:       cfg.DephealthIsEntry,
			DB:            pgDB,
			PostgresURL:   cfg.DatabaseURL(),
			S3URL:         s3URL,
		}, logger)
		if err != nil {
			logger.Warn("Ошибка создания topologymetrics", slog.String("error", err.Error()))
		} else if err := dephealthSvc.Start(ctx); err != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", err.Error()))
		} else {
			defer dephealthSvc.Stop()
		}
	}

	// 8. OpenAPI-контракт
	spec, err := generated.GetSwagger()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. API handler
	healthHandler := handlers.NewHealthHandler(pgChecker, store, spec)
	apiHandler := handlers.NewAPIHandler(
		healthHandler, ingestSvc, querySvc, deletionSvc, downloadSvc, cfg.MaxFileSize, logger,
	)

	// 10. Middleware: логирование и метрики снаружи, затем CORS, gzip, JWT, валидация
	middlewares := []func(http.Handler) http.Handler{
		middleware.RequestLogger(logger),
		middleware.MetricsMiddleware(),
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		middlewares = append(middlewares, middleware.CORS(cfg.CORSAllowedOrigins))
	}
	gzip, err := middleware.Gzip()
	if err != nil {
		logger.Error("Ошибка создания gzip middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	middlewares = append(middlewares, gzip)

	if cfg.JWKSURL != "" {
		jwtAuth, err := middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSURL,
			TLSSkipVerify:   cfg.TLSSkipVerify,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			JWTLeeway:       cfg.JWTLeeway,
			Issuer:          cfg.JWTIssuer,
			Required:        cfg.AuthRequired,
		}, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT", slog.String("error", err.Error()))
			os.Exit(1)
		}
		middlewares = append(middlewares,
			server.JWTAuthWithExclusions(jwtAuth.Middleware(), server.PublicPaths()...))
	} else {
		logger.Info("IM_JWKS_URL не задан: все загрузки анонимные")
	}

	if cfg.OpenAPIValidation {
		validator, err := middleware.OpenAPIValidator(spec)
		if err != nil {
			logger.Error("Ошибка создания OpenAPI валидатора", slog.String("error", err.Error()))
			os.Exit(1)
		}
		middlewares = append(middlewares, validator)
	}

	// 11. HTTP-сервер (блокирующий вызов с graceful shutdown)
	srv := server.New(cfg, logger, apiHandler, middlewares...)
	if err := srv.Run(); err != nil {
		logger.Error("Сервер завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Intake Module остановлен")
}
