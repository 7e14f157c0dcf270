// deletion.go — удаление файла: запись скрывается, затем удаляется blob,
// затем сама запись. Порядок исключает состояние «запись видна, blob нет».
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigkaa/goartstore/intake-module/internal/repository"
	"github.com/bigkaa/goartstore/intake-module/internal/storage/blobstore"
)

// DeletionService — удаление файлов.
type DeletionService struct {
	index  repository.FileIndex
	store  blobstore.Store
	cache  MetadataCache
	logger *slog.Logger
}

// NewDeletionService создаёт сервис удаления.
func NewDeletionService(
	index repository.FileIndex,
	store blobstore.Store,
	cache MetadataCache,
	logger *slog.Logger,
) *DeletionService {
	return &DeletionService{
		index:  index,
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "deletion_service")),
	}
}

// Delete удаляет файл по id.
//
//  1. MarkDeleting — запись скрыта от чтения и дедупликации (ErrNotFound, если нет).
//     Затем инвалидация кэша; при ошибке пометка снимается и возвращается
//     DeleteError{Stage: cache}: blob не удаляется, пока запись может
//     остаться в кэше.
//  2. Remove blob — отсутствие blob логируется и не мешает удалению записи;
//     любая другая ошибка снимает пометку и возвращает DeleteError{Stage: blob}.
//  3. Delete записи — ошибка возвращается как DeleteError{Stage: record}.
//  4. Повторная инвалидация кэша (ошибка только логируется: Get перечитывает
//     индекс после Set и не вернёт скрытую запись).
func (s *DeletionService) Delete(ctx context.Context, fileID string) error {
	record, err := s.index.MarkDeleting(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			deletesTotal.WithLabelValues("not_found").Inc()
			return ErrNotFound
		}
		return fmt.Errorf("пометка файла на удаление: %w", err)
	}
	// Дальше запись скрыта: операцию доводим до конца независимо от клиента
	ctx = context.WithoutCancel(ctx)

	if err := s.cache.Delete(ctx, fileID); err != nil {
		s.restore(ctx, fileID)
		deletesTotal.WithLabelValues("cache_error").Inc()
		return &DeleteError{FileID: fileID, Stage: DeleteStageCache, Err: err}
	}

	if err := s.store.Remove(ctx, record.StorageLocation); err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			s.restore(ctx, fileID)
			deletesTotal.WithLabelValues("blob_error").Inc()
			return &DeleteError{FileID: fileID, Stage: DeleteStageBlob, Err: err}
		}
		s.logger.Warn("Blob уже отсутствует, удаляем запись",
			slog.String("file_id", fileID),
			slog.String("location", record.StorageLocation),
		)
	}

	if err := s.index.Delete(ctx, fileID); err != nil {
		s.logger.Error("Blob удалён, запись осталась",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
		deletesTotal.WithLabelValues("record_error").Inc()
		return &DeleteError{FileID: fileID, Stage: DeleteStageRecord, Err: err}
	}

	if err := s.cache.Delete(ctx, fileID); err != nil {
		s.logger.Error("Файл удалён, но запись могла остаться в кэше",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
	deletesTotal.WithLabelValues("ok").Inc()

	s.logger.Info("Файл удалён",
		slog.String("file_id", fileID),
		slog.String("filename", record.OriginalFilename),
		slog.Int64("size", record.Size),
	)
	return nil
}

// restore снимает пометку удаления после сбоя до удаления blob.
func (s *DeletionService) restore(ctx context.Context, fileID string) {
	if err := s.index.UnmarkDeleting(ctx, fileID); err != nil {
		s.logger.Error("Не удалось восстановить запись после сбоя удаления",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}
