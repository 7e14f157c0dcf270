// Пакет service — бизнес-логика Intake Module: приём файлов с
// дедупликацией, выборка метаданных и удаление.
package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
)

// MetadataCache — кэш записей по id для GetFile и скачивания.
// Сбой чтения или записи равносилен промаху. Delete возвращает ошибку:
// удаление файла не продолжается, пока запись может остаться в кэше.
type MetadataCache interface {
	Get(ctx context.Context, fileID string) (*model.FileRecord, bool)
	Set(ctx context.Context, record *model.FileRecord)
	Delete(ctx context.Context, fileID string) error
}

// CacheService — LRU-кэш метаданных файлов с автоматическим TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable; хранит копии записей.
type CacheService struct {
	cache *expirable.LRU[string, *model.FileRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.FileRecord](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// Get возвращает копию записи при hit или (nil, false) при miss.
func (c *CacheService) Get(_ context.Context, fileID string) (*model.FileRecord, bool) {
	val, ok := c.cache.Get(fileID)
	if ok {
		cacheHitsTotal.Inc()
		return val.Clone(), true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(_ context.Context, record *model.FileRecord) {
	c.cache.Add(record.ID, record.Clone())
}

// Delete удаляет запись из кэша.
func (c *CacheService) Delete(_ context.Context, fileID string) error {
	c.cache.Remove(fileID)
	return nil
}

// Len возвращает количество записей в кэше.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
