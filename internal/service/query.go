// query.go — выборка метаданных файлов по фильтрам и по id.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
	"github.com/bigkaa/goartstore/intake-module/internal/repository"
)

// dateLayout — формат дат в фильтрах (ISO 8601, только дата).
const dateLayout = "2006-01-02"

// ListParams — сырые строковые параметры выборки. Пустое значение — нет фильтра.
type ListParams struct {
	Filename       string
	FileType       string
	SizeMin        string
	SizeMax        string
	UploadedAfter  string
	UploadedBefore string
}

// BuildFilter разбирает параметры выборки.
//
// Размеры: некорректное или отрицательное значение — ErrValidation.
// Даты: некорректное значение молча отбрасывается (фильтр не применяется).
// uploaded_after включает весь указанный день, uploaded_before — тоже:
// верхняя граница — начало следующего дня, не включительно.
func BuildFilter(p ListParams) (repository.FileFilter, error) {
	var f repository.FileFilter

	if v := strings.TrimSpace(p.Filename); v != "" {
		f.Filename = &v
	}
	if v := strings.TrimSpace(p.FileType); v != "" {
		f.ContentType = &v
	}

	minSize, err := parseSize("size_min", p.SizeMin)
	if err != nil {
		return f, err
	}
	f.MinSize = minSize

	maxSize, err := parseSize("size_max", p.SizeMax)
	if err != nil {
		return f, err
	}
	f.MaxSize = maxSize

	if d, ok := parseDate(p.UploadedAfter); ok {
		f.UploadedFrom = &d
	}
	if d, ok := parseDate(p.UploadedBefore); ok {
		next := d.AddDate(0, 0, 1)
		f.UploadedUntil = &next
	}

	return f, nil
}

// parseSize разбирает размер в байтах: только десятичные цифры, без знака.
func parseSize(name, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.TrimLeft(raw, "0123456789") != "" {
		return nil, fmt.Errorf("%w: %s: ожидаются только цифры, получено %q", ErrValidation, name, raw)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: некорректное число %q", ErrValidation, name, raw)
	}
	return &n, nil
}

// parseDate разбирает дату YYYY-MM-DD как начало дня в UTC.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// QueryService — выборка метаданных файлов.
type QueryService struct {
	index  repository.FileIndex
	cache  MetadataCache
	logger *slog.Logger
}

// NewQueryService создаёт сервис выборки.
func NewQueryService(index repository.FileIndex, cache MetadataCache, logger *slog.Logger) *QueryService {
	return &QueryService{
		index:  index,
		cache:  cache,
		logger: logger.With(slog.String("component", "query_service")),
	}
}

// List возвращает живые записи, удовлетворяющие всем фильтрам, от новых к старым.
func (s *QueryService) List(ctx context.Context, p ListParams) ([]*model.FileRecord, error) {
	start := time.Now()
	queryTotal.Inc()

	filter, err := BuildFilter(p)
	if err != nil {
		return nil, err
	}
	if p.UploadedAfter != "" && filter.UploadedFrom == nil {
		s.logger.Debug("Некорректная дата отброшена",
			slog.String("param", "uploaded_after"),
			slog.String("value", p.UploadedAfter),
		)
	}
	if p.UploadedBefore != "" && filter.UploadedUntil == nil {
		s.logger.Debug("Некорректная дата отброшена",
			slog.String("param", "uploaded_before"),
			slog.String("value", p.UploadedBefore),
		)
	}

	items, err := s.index.Query(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("выборка файлов: %w", err)
	}

	duration := time.Since(start)
	queryDuration.Observe(duration.Seconds())

	s.logger.Debug("Выборка выполнена",
		slog.Int("returned", len(items)),
		slog.Duration("duration", duration),
	)

	return items, nil
}

// Get возвращает запись по id.
// Сначала проверяет кэш, при промахе — запрос к индексу, результат кэшируется.
//
// После Set запись перечитывается из индекса: удаление, начавшееся между
// чтением и Set, уже скрыло запись, и его инвалидация кэша могла пройти
// раньше нашего Set. Тогда запись вытесняется и возвращается ErrNotFound.
func (s *QueryService) Get(ctx context.Context, fileID string) (*model.FileRecord, error) {
	if record, ok := s.cache.Get(ctx, fileID); ok {
		return record, nil
	}

	record, err := s.getFromIndex(ctx, fileID)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, record)

	if _, err := s.getFromIndex(ctx, fileID); err != nil {
		_ = s.Invalidate(ctx, fileID)
		if errors.Is(err, ErrNotFound) {
			s.logger.Debug("Запись удалена во время чтения, вытеснена из кэша",
				slog.String("file_id", fileID),
			)
		}
		return nil, err
	}

	return record, nil
}

func (s *QueryService) getFromIndex(ctx context.Context, fileID string) (*model.FileRecord, error) {
	record, err := s.index.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение метаданных файла: %w", err)
	}
	return record, nil
}

// Invalidate удаляет запись из кэша.
func (s *QueryService) Invalidate(ctx context.Context, fileID string) error {
	return s.cache.Delete(ctx, fileID)
}
