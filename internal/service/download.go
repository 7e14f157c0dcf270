// download.go — выдача содержимого файла по id.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
	"github.com/bigkaa/goartstore/intake-module/internal/storage/blobstore"
)

// DownloadService — чтение содержимого файлов.
type DownloadService struct {
	query  *QueryService
	store  blobstore.Store
	logger *slog.Logger
}

// NewDownloadService создаёт сервис скачивания.
func NewDownloadService(query *QueryService, store blobstore.Store, logger *slog.Logger) *DownloadService {
	return &DownloadService{
		query:  query,
		store:  store,
		logger: logger.With(slog.String("component", "download_service")),
	}
}

// Open возвращает запись и поток содержимого. Вызывающий обязан закрыть поток.
// Если blob живой записи отсутствует, это несогласованность: она логируется,
// клиент получает ErrNotFound.
func (s *DownloadService) Open(ctx context.Context, fileID string) (*model.FileRecord, io.ReadCloser, error) {
	record, err := s.query.Get(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Open(ctx, record.StorageLocation)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			// Запись могла быть удалена после попадания в кэш
			_ = s.query.Invalidate(ctx, fileID)
			s.logger.Error("Blob живой записи отсутствует",
				slog.String("file_id", fileID),
				slog.String("location", record.StorageLocation),
			)
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: открытие blob: %w", ErrStorage, err)
	}

	return record, rc, nil
}
