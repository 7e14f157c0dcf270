// Пакет blobstore — хранилище содержимого файлов.
// Содержимое сначала пишется в staging-область (невидимую читателям),
// затем фиксируется под непрозрачным ключом (location). Бэкенды:
// локальная файловая система (FileStore) и S3/MinIO (S3Store).
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/intake-module/internal/hashing"
)

var (
	// ErrNotFound — blob по указанному location отсутствует.
	ErrNotFound = errors.New("blob не найден")
	// ErrInvalidLocation — location не является допустимым ключом.
	ErrInvalidLocation = errors.New("недопустимый location")
)

// Store — операции над blob-объектами.
// Remove возвращает ErrNotFound, если объект уже отсутствует.
type Store interface {
	// Stage записывает поток во временный объект, невидимый читателям.
	Stage(ctx context.Context, r io.Reader) (*Staged, error)
	// Commit делает staged-объект постоянным и возвращает его location.
	// contentHash используется только для шардирования ключа.
	Commit(ctx context.Context, s *Staged, contentHash string) (string, error)
	// Discard удаляет staged-объект. Повторный вызов безопасен.
	Discard(s *Staged) error
	// Open открывает зафиксированный blob для чтения.
	Open(ctx context.Context, location string) (io.ReadCloser, error)
	// Remove удаляет зафиксированный blob.
	Remove(ctx context.Context, location string) error
	// Exists проверяет наличие blob.
	Exists(ctx context.Context, location string) (bool, error)
	// Check проверяет доступность хранилища (для readiness).
	Check(ctx context.Context) error
}

// NewLocation формирует ключ вида <h0h1>/<h2h3>/<uuid>.
// Два первых байта хэша распределяют объекты по каталогам,
// UUID гарантирует уникальность ключа даже для одинакового содержимого.
func NewLocation(contentHash string) (string, error) {
	if !hashing.IsValidHex(contentHash) {
		return "", fmt.Errorf("%w: некорректный хэш %q", ErrInvalidLocation, contentHash)
	}
	return path.Join(contentHash[0:2], contentHash[2:4], uuid.NewString()), nil
}

// ValidateLocation отклоняет абсолютные пути и выход за пределы хранилища.
func ValidateLocation(location string) error {
	if location == "" || strings.HasPrefix(location, "/") || strings.Contains(location, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}
	for _, seg := range strings.Split(location, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidLocation, location)
		}
	}
	return nil
}

// ctxReader прерывает чтение при отмене контекста.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
