// ingest.go — приём файла с дедупликацией по SHA-256.
// Поток пишется в staging и одновременно хэшируется; запись в индексе
// создаётся только после вычисления хэша по всему содержимому.
// Единственный арбитр уникальности — индекс метаданных: при гонке
// проигравший удаляет свой blob и возвращает запись победителя.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
	"github.com/bigkaa/goartstore/intake-module/internal/hashing"
	"github.com/bigkaa/goartstore/intake-module/internal/repository"
	"github.com/bigkaa/goartstore/intake-module/internal/storage/blobstore"
)

const (
	// DefaultContentType — MIME-тип, если клиент его не указал.
	DefaultContentType = "application/octet-stream"
	// maxFilenameLength — максимальная длина имени файла в символах.
	maxFilenameLength = 255
)

// IngestParams — входные данные загрузки.
type IngestParams struct {
	// Owner — владелец (nil для анонимной загрузки)
	Owner *string
	// OriginalFilename — имя файла от клиента
	OriginalFilename string
	// ContentType — MIME-тип от клиента (может содержать параметры)
	ContentType string
	// Content — поток содержимого
	Content io.Reader
}

// IngestResult — результат загрузки.
type IngestResult struct {
	// Record — созданная запись или существующая (для дубликата)
	Record *model.FileRecord
	// Duplicate — содержимое уже было у владельца
	Duplicate bool
	// SavedBytes — сэкономленный объём (размер дубликата, 0 для новой записи)
	SavedBytes int64
}

// IngestService — конвейер приёма файлов.
type IngestService struct {
	index  repository.FileIndex
	store  blobstore.Store
	now    func() time.Time
	logger *slog.Logger
}

// NewIngestService создаёт конвейер приёма.
func NewIngestService(index repository.FileIndex, store blobstore.Store, logger *slog.Logger) *IngestService {
	return &IngestService{
		index:  index,
		store:  store,
		now:    time.Now,
		logger: logger.With(slog.String("component", "ingest_service")),
	}
}

// Ingest принимает файл: staging + SHA-256 → поиск дубликата → commit → запись.
//
// Ошибки: ErrValidation (пустой поток, некорректное имя), ErrStorage (чтение
// потока или запись в хранилище), ErrConflict (победитель гонки исчез).
func (s *IngestService) Ingest(ctx context.Context, p IngestParams) (*IngestResult, error) {
	if err := validateFilename(p.OriginalFilename); err != nil {
		uploadsTotal.WithLabelValues(uploadResultRejected).Inc()
		return nil, err
	}
	contentType := NormalizeContentType(p.ContentType)

	// Staging с одновременным хэшированием
	hasher := hashing.New()
	staged, err := s.store.Stage(ctx, io.TeeReader(p.Content, hasher))
	if err != nil {
		uploadsTotal.WithLabelValues(uploadResultFailed).Inc()
		return nil, fmt.Errorf("%w: приём содержимого: %w", ErrStorage, err)
	}
	digest := hasher.Sum()

	if staged.Size != digest.Size {
		s.discard(staged)
		uploadsTotal.WithLabelValues(uploadResultFailed).Inc()
		return nil, fmt.Errorf("%w: записано %d байт, хэшировано %d", ErrStorage, staged.Size, digest.Size)
	}
	if digest.Size == 0 {
		s.discard(staged)
		uploadsTotal.WithLabelValues(uploadResultRejected).Inc()
		return nil, fmt.Errorf("%w: пустой файл", ErrValidation)
	}
	ingestedBytesTotal.Add(float64(digest.Size))

	// Поиск дубликата у владельца
	existing, err := s.index.FindByOwnerAndHash(ctx, p.Owner, digest.Hex)
	switch {
	case err == nil:
		s.discard(staged)
		return s.duplicate(existing, p.OriginalFilename), nil
	case !errors.Is(err, repository.ErrNotFound):
		s.discard(staged)
		uploadsTotal.WithLabelValues(uploadResultFailed).Inc()
		return nil, fmt.Errorf("поиск дубликата: %w", err)
	}

	// Уникальное содержимое: фиксируем blob
	location, err := s.store.Commit(ctx, staged, digest.Hex)
	if err != nil {
		s.discard(staged)
		uploadsTotal.WithLabelValues(uploadResultFailed).Inc()
		return nil, fmt.Errorf("%w: фиксация blob: %w", ErrStorage, err)
	}

	record := &model.FileRecord{
		ID:               uuid.NewString(),
		Owner:            p.Owner,
		OriginalFilename: p.OriginalFilename,
		ContentType:      contentType,
		Size:             digest.Size,
		ContentHash:      digest.Hex,
		StorageLocation:  location,
		UploadedAt:       s.now().UTC(),
	}

	if err := s.index.Insert(ctx, record); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return s.resolveRace(ctx, p, digest, location)
		}
		s.removeBlob(ctx, location)
		uploadsTotal.WithLabelValues(uploadResultFailed).Inc()
		return nil, fmt.Errorf("сохранение записи: %w", err)
	}

	uploadsTotal.WithLabelValues(uploadResultCreated).Inc()
	s.logger.Info("Файл сохранён",
		slog.String("file_id", record.ID),
		slog.String("filename", record.OriginalFilename),
		slog.String("owner", record.OwnerString()),
		slog.Int64("size", record.Size),
		slog.String("hash", record.ContentHash),
	)

	return &IngestResult{Record: record}, nil
}

// resolveRace обрабатывает проигрыш гонки: параллельная загрузка того же
// содержимого успела вставить запись между поиском и вставкой.
func (s *IngestService) resolveRace(ctx context.Context, p IngestParams, digest hashing.Digest, ownLocation string) (*IngestResult, error) {
	dedupRacesTotal.Inc()
	s.removeBlob(ctx, ownLocation)

	winner, err := s.index.FindByOwnerAndHash(ctx, p.Owner, digest.Hex)
	if err != nil {
		uploadsTotal.WithLabelValues(uploadResultFailed).Inc()
		if errors.Is(err, repository.ErrNotFound) {
			// Победитель удалён до повторного чтения
			return nil, fmt.Errorf("%w: запись-победитель для %s исчезла", ErrConflict, digest.Hex)
		}
		return nil, fmt.Errorf("повторный поиск после конфликта: %w", err)
	}

	s.logger.Debug("Гонка дедупликации разрешена",
		slog.String("winner_id", winner.ID),
		slog.String("hash", digest.Hex),
	)
	return s.duplicate(winner, p.OriginalFilename), nil
}

func (s *IngestService) duplicate(existing *model.FileRecord, uploadedName string) *IngestResult {
	uploadsTotal.WithLabelValues(uploadResultDuplicate).Inc()
	savedBytesTotal.Add(float64(existing.Size))

	s.logger.Info("Дубликат файла",
		slog.String("file_id", existing.ID),
		slog.String("filename", uploadedName),
		slog.String("owner", existing.OwnerString()),
		slog.Int64("saved_bytes", existing.Size),
	)

	return &IngestResult{
		Record:     existing,
		Duplicate:  true,
		SavedBytes: existing.Size,
	}
}

// discard удаляет staged-объект; ошибка только логируется.
func (s *IngestService) discard(staged *blobstore.Staged) {
	if err := s.store.Discard(staged); err != nil {
		s.logger.Warn("Не удалось удалить staged-объект",
			slog.String("staged_id", staged.ID),
			slog.String("error", err.Error()),
		)
	}
}

// removeBlob удаляет собственный зафиксированный blob, не имеющий записи.
// Выполняется и при отменённом контексте запроса.
func (s *IngestService) removeBlob(ctx context.Context, location string) {
	err := s.store.Remove(context.WithoutCancel(ctx), location)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.logger.Error("Не удалось удалить blob без записи",
			slog.String("location", location),
			slog.String("error", err.Error()),
		)
	}
}

// validateFilename проверяет имя файла от клиента.
func validateFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: имя файла не указано", ErrValidation)
	case !utf8.ValidString(name):
		return fmt.Errorf("%w: имя файла не в UTF-8", ErrValidation)
	case utf8.RuneCountInString(name) > maxFilenameLength:
		return fmt.Errorf("%w: имя файла длиннее %d символов", ErrValidation, maxFilenameLength)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: имя файла содержит NUL", ErrValidation)
	}
	return nil
}

// NormalizeContentType отбрасывает параметры MIME-типа и приводит к нижнему регистру.
// Пустой или некорректный тип заменяется на application/octet-stream.
func NormalizeContentType(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return DefaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil || mediaType == "" {
		return DefaultContentType
	}
	return mediaType
}
