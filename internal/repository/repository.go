// Пакет repository — индекс метаданных файлов.
// Основная реализация — PostgreSQL через pgx (чистый SQL, без ORM);
// MemoryIndex — in-memory реализация для локального запуска и тестов.
// Уникальность (owner, content_hash) среди живых записей обеспечивается
// самим индексом: частичный уникальный индекс в PostgreSQL, проверка
// под мьютексом в MemoryIndex.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена (или помечена на удаление).
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — живая запись с тем же (owner, content_hash) уже существует.
	ErrConflict = errors.New("запись с таким содержимым уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// FileIndex — операции индекса метаданных.
// Записи, помеченные на удаление, невидимы для всех операций чтения
// и не участвуют в проверке уникальности.
type FileIndex interface {
	// FindByOwnerAndHash возвращает живую запись или ErrNotFound.
	FindByOwnerAndHash(ctx context.Context, owner *string, contentHash string) (*model.FileRecord, error)
	// Insert добавляет запись. ErrConflict при нарушении уникальности.
	Insert(ctx context.Context, rec *model.FileRecord) error
	// GetByID возвращает живую запись или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	// Query возвращает живые записи по фильтру, от новых к старым.
	Query(ctx context.Context, filter FileFilter) ([]*model.FileRecord, error)
	// MarkDeleting скрывает запись на время удаления blob.
	// ErrNotFound, если записи нет или она уже удаляется.
	MarkDeleting(ctx context.Context, id string) (*model.FileRecord, error)
	// UnmarkDeleting возвращает запись в видимое состояние.
	UnmarkDeleting(ctx context.Context, id string) error
	// Delete удаляет запись. ErrNotFound, если записи нет.
	Delete(ctx context.Context, id string) error
}

// FileFilter — конъюнктивный фильтр запроса.
// Все поля — указатели, nil = фильтр не применяется.
type FileFilter struct {
	// Filename — подстрока имени файла без учёта регистра
	Filename *string
	// ContentType — подстрока MIME-типа без учёта регистра
	ContentType *string
	// MinSize — минимальный размер (включительно)
	MinSize *int64
	// MaxSize — максимальный размер (включительно)
	MaxSize *int64
	// UploadedFrom — нижняя граница uploaded_at (включительно)
	UploadedFrom *time.Time
	// UploadedUntil — верхняя граница uploaded_at (не включительно)
	UploadedUntil *time.Time
}

// Matches проверяет запись по фильтру. Семантика совпадает с SQL-реализацией.
func (f FileFilter) Matches(rec *model.FileRecord) bool {
	if f.Filename != nil && *f.Filename != "" && !containsFold(rec.OriginalFilename, *f.Filename) {
		return false
	}
	if f.ContentType != nil && *f.ContentType != "" && !containsFold(rec.ContentType, *f.ContentType) {
		return false
	}
	if f.MinSize != nil && rec.Size < *f.MinSize {
		return false
	}
	if f.MaxSize != nil && rec.Size > *f.MaxSize {
		return false
	}
	if f.UploadedFrom != nil && rec.UploadedAt.Before(*f.UploadedFrom) {
		return false
	}
	if f.UploadedUntil != nil && !rec.UploadedAt.Before(*f.UploadedUntil) {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// escapeLike экранирует метасимволы LIKE (\, %, _) в пользовательском вводе.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// newerFirst — порядок выдачи: uploaded_at DESC, id DESC.
func newerFirst(a, b *model.FileRecord) bool {
	if !a.UploadedAt.Equal(b.UploadedAt) {
		return a.UploadedAt.After(b.UploadedAt)
	}
	return a.ID > b.ID
}
