package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
)

// redisKeyPrefix — префикс ключей кэша метаданных в Redis.
const redisKeyPrefix = "im:file:"

// cachedRecord — JSON-представление записи в Redis.
type cachedRecord struct {
	ID               string    `json:"id"`
	Owner            *string   `json:"owner,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	Size             int64     `json:"size"`
	ContentHash      string    `json:"content_hash"`
	StorageLocation  string    `json:"storage_location"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// RedisCache — кэш метаданных в Redis, общий для нескольких экземпляров.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache создаёт кэш поверх готового клиента Redis.
func NewRedisCache(client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "redis_cache")),
	}
}

// Get читает запись из Redis. Сбой Redis логируется и считается промахом.
func (c *RedisCache) Get(ctx context.Context, fileID string) (*model.FileRecord, bool) {
	val, err := c.client.Get(ctx, redisKeyPrefix+fileID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Ошибка чтения кэша",
				slog.String("file_id", fileID),
				slog.String("error", err.Error()),
			)
		}
		cacheMissesTotal.Inc()
		return nil, false
	}

	var cr cachedRecord
	if err := json.Unmarshal(val, &cr); err != nil {
		c.logger.Warn("Повреждённая запись кэша",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		cacheMissesTotal.Inc()
		return nil, false
	}

	cacheHitsTotal.Inc()
	return &model.FileRecord{
		ID:               cr.ID,
		Owner:            cr.Owner,
		OriginalFilename: cr.OriginalFilename,
		ContentType:      cr.ContentType,
		Size:             cr.Size,
		ContentHash:      cr.ContentHash,
		StorageLocation:  cr.StorageLocation,
		UploadedAt:       cr.UploadedAt,
	}, true
}

// Set сохраняет запись с TTL.
func (c *RedisCache) Set(ctx context.Context, record *model.FileRecord) {
	data, err := json.Marshal(encodeCachedRecord(record))
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+record.ID, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Ошибка записи кэша",
			slog.String("file_id", record.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Delete удаляет запись из Redis.
func (c *RedisCache) Delete(ctx context.Context, fileID string) error {
	if err := c.client.Del(ctx, redisKeyPrefix+fileID).Err(); err != nil {
		c.logger.Warn("Ошибка инвалидации кэша",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("инвалидация кэша %s: %w", fileID, err)
	}
	return nil
}

func encodeCachedRecord(r *model.FileRecord) cachedRecord {
	return cachedRecord{
		ID:               r.ID,
		Owner:            r.Owner,
		OriginalFilename: r.OriginalFilename,
		ContentType:      r.ContentType,
		Size:             r.Size,
		ContentHash:      r.ContentHash,
		StorageLocation:  r.StorageLocation,
		UploadedAt:       r.UploadedAt,
	}
}
