// Пакет config — загрузка и валидация конфигурации Intake Module
// из переменных окружения. Необязательный файл .env в рабочей
// директории подгружается до чтения окружения и не перекрывает
// уже заданные переменные.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды хранения.
const (
	BlobBackendLocal = "local"
	BlobBackendS3    = "s3"

	MetadataBackendPostgres = "postgres"
	MetadataBackendMemory   = "memory"
)

// Config содержит все параметры конфигурации Intake Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Blob Store ---

	// Бэкенд хранения содержимого (local, s3)
	BlobBackend string
	// Корневая директория локального хранилища
	DataDir string
	// Staging-директория (по умолчанию <DataDir>/.staging)
	StagingDir string
	// Максимальный размер загружаемого файла в байтах
	MaxFileSize int64

	// S3/MinIO (только при BlobBackend = s3)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool

	// --- Индекс метаданных ---

	// Бэкенд индекса (postgres, memory)
	MetadataBackend string

	// PostgreSQL (только при MetadataBackend = postgres)
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Кэш метаданных ---

	// Максимальное количество записей в LRU-кэше
	CacheMaxSize int
	// TTL записей кэша
	CacheTTL time.Duration
	// Адрес Redis; если задан, кэш хранится в Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// --- JWT (необязательная идентификация владельца) ---

	// URL JWKS endpoint; пусто — все загрузки анонимные
	JWKSURL string
	// Ожидаемый issuer токена (пусто — не проверяется)
	JWTIssuer string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Требовать токен на всех /files endpoints
	AuthRequired bool
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Пропускать проверку TLS JWKS endpoint
	TLSSkipVerify bool

	// --- HTTP API ---

	// Разрешённые CORS origins (пусто — CORS выключен)
	CORSAllowedOrigins []string
	// Валидация запросов по OpenAPI-контракту
	OpenAPIValidation bool

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration

	// --- Мониторинг зависимостей (topologymetrics) ---

	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics
	DephealthGroup string
	// Добавлять лейбл isentry=yes
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
//
//nolint:gocyclo,cyclop,funlen // последовательная загрузка всех параметров
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("ошибка чтения .env: %w", err)
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	// IM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("IM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("IM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("IM_PORT: значение %d вне диапазона 1-65535", cfg.Port)
	}

	// IM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("IM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("IM_LOG_LEVEL: %w", err)
	}

	// IM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("IM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("IM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Blob Store ---

	cfg.BlobBackend = getEnvDefault("IM_BLOB_BACKEND", BlobBackendLocal)
	if cfg.BlobBackend != BlobBackendLocal && cfg.BlobBackend != BlobBackendS3 {
		return nil, fmt.Errorf("IM_BLOB_BACKEND: недопустимое значение %q, допустимые: local, s3", cfg.BlobBackend)
	}

	// IM_DATA_DIR — корневая директория хранения (по умолчанию ./data)
	cfg.DataDir = getEnvDefault("IM_DATA_DIR", "./data")

	// IM_STAGING_DIR — staging-директория (по умолчанию <IM_DATA_DIR>/.staging)
	cfg.StagingDir = getEnvDefault("IM_STAGING_DIR", filepath.Join(cfg.DataDir, ".staging"))

	// IM_MAX_FILE_SIZE — максимальный размер файла (по умолчанию 1 GB)
	cfg.MaxFileSize, err = getEnvInt64("IM_MAX_FILE_SIZE", 1073741824)
	if err != nil {
		return nil, fmt.Errorf("IM_MAX_FILE_SIZE: %w", err)
	}
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("IM_MAX_FILE_SIZE: значение должно быть положительным")
	}

	if cfg.BlobBackend == BlobBackendS3 {
		if cfg.S3Endpoint, err = getEnvRequired("IM_S3_ENDPOINT"); err != nil {
			return nil, err
		}
		if cfg.S3AccessKey, err = getEnvRequired("IM_S3_ACCESS_KEY"); err != nil {
			return nil, err
		}
		if cfg.S3SecretKey, err = getEnvRequired("IM_S3_SECRET_KEY"); err != nil {
			return nil, err
		}
		if cfg.S3Bucket, err = getEnvRequired("IM_S3_BUCKET"); err != nil {
			return nil, err
		}
		cfg.S3Region = getEnvDefault("IM_S3_REGION", "")
		cfg.S3UseSSL, err = getEnvBool("IM_S3_USE_SSL", false)
		if err != nil {
			return nil, fmt.Errorf("IM_S3_USE_SSL: %w", err)
		}
	}

	// --- Индекс метаданных ---

	cfg.MetadataBackend = getEnvDefault("IM_METADATA_BACKEND", MetadataBackendPostgres)
	switch cfg.MetadataBackend {
	case MetadataBackendPostgres:
		if err := loadDatabase(cfg); err != nil {
			return nil, err
		}
	case MetadataBackendMemory:
	default:
		return nil, fmt.Errorf("IM_METADATA_BACKEND: недопустимое значение %q, допустимые: postgres, memory", cfg.MetadataBackend)
	}

	// --- Кэш ---

	cfg.CacheMaxSize, err = getEnvInt("IM_CACHE_MAX_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("IM_CACHE_MAX_SIZE: %w", err)
	}
	if cfg.CacheMaxSize <= 0 {
		return nil, fmt.Errorf("IM_CACHE_MAX_SIZE: значение должно быть положительным")
	}

	cfg.CacheTTL, err = getEnvDuration("IM_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("IM_CACHE_TTL: %w", err)
	}

	cfg.RedisAddr = getEnvDefault("IM_REDIS_ADDR", "")
	cfg.RedisPassword = getEnvDefault("IM_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("IM_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("IM_REDIS_DB: %w", err)
	}

	// --- JWT ---

	cfg.JWKSURL = getEnvDefault("IM_JWKS_URL", "")
	cfg.JWTIssuer = getEnvDefault("IM_JWT_ISSUER", "")

	cfg.JWTLeeway, err = getEnvDuration("IM_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_JWT_LEEWAY: %w", err)
	}

	cfg.AuthRequired, err = getEnvBool("IM_AUTH_REQUIRED", false)
	if err != nil {
		return nil, fmt.Errorf("IM_AUTH_REQUIRED: %w", err)
	}
	if cfg.AuthRequired && cfg.JWKSURL == "" {
		return nil, fmt.Errorf("IM_AUTH_REQUIRED: требуется IM_JWKS_URL")
	}

	cfg.JWKSClientTimeout, err = getEnvDuration("IM_JWKS_CLIENT_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("IM_JWKS_REFRESH_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.TLSSkipVerify, err = getEnvBool("IM_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("IM_TLS_SKIP_VERIFY: %w", err)
	}

	// --- HTTP API ---

	cfg.CORSAllowedOrigins = parseCSV(getEnvDefault("IM_CORS_ALLOWED_ORIGINS", ""))

	cfg.OpenAPIValidation, err = getEnvBool("IM_OPENAPI_VALIDATION", true)
	if err != nil {
		return nil, fmt.Errorf("IM_OPENAPI_VALIDATION: %w", err)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("IM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_HTTP_READ_TIMEOUT: %w", err)
	}

	// Запись большого файла клиенту может идти долго
	cfg.HTTPWriteTimeout, err = getEnvDuration("IM_HTTP_WRITE_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("IM_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("IM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("IM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Мониторинг зависимостей ---

	cfg.DephealthCheckInterval, err = getEnvDuration("IM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("IM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthGroup = getEnvDefault("IM_DEPHEALTH_GROUP", "intake-module")

	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// loadDatabase загружает параметры PostgreSQL.
func loadDatabase(cfg *Config) error {
	var err error

	// IM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("IM_DB_HOST")
	if err != nil {
		return err
	}

	// IM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("IM_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("IM_DB_PORT: %w", err)
	}

	// IM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("IM_DB_NAME")
	if err != nil {
		return err
	}

	// IM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("IM_DB_USER")
	if err != nil {
		return err
	}

	// IM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("IM_DB_PASSWORD")
	if err != nil {
		return err
	}

	// IM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("IM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("IM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без учётных данных (для метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 из переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseCSV разбивает строку по запятым, отбрасывая пустые элементы.
func parseCSV(val string) []string {
	var result []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
