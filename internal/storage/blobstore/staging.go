package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Staged — временный объект в staging-области.
type Staged struct {
	// ID — имя временного файла
	ID string
	// Size — количество записанных байт
	Size int64

	path string
	mu   sync.Mutex
	done bool
}

// release помечает объект как использованный и возвращает путь,
// если он ещё не был зафиксирован или удалён.
func (s *Staged) release() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return "", false
	}
	s.done = true
	return s.path, true
}

// Staging — локальная staging-область, общая для всех бэкендов.
type Staging struct {
	dir string
}

// NewStaging создаёт staging-область, при необходимости создаёт директорию.
func NewStaging(dir string) (*Staging, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать staging-директорию %s: %w", dir, err)
	}
	return &Staging{dir: dir}, nil
}

// Dir возвращает путь staging-директории.
func (st *Staging) Dir() string {
	return st.dir
}

// Stage записывает поток во временный файл.
// Паттерн: temp файл → запись → fsync → close. При ошибке файл удаляется.
func (st *Staging) Stage(ctx context.Context, r io.Reader) (*Staged, error) {
	id := uuid.NewString()
	tmpPath := filepath.Join(st.dir, id+".tmp")

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, &ctxReader{ctx: ctx, r: r})
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	return &Staged{ID: id, Size: size, path: tmpPath}, nil
}

// Discard удаляет временный файл. Для уже зафиксированного объекта — no-op.
func (st *Staging) Discard(s *Staged) error {
	if s == nil {
		return nil
	}
	p, ok := s.release()
	if !ok {
		return nil
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления временного файла %s: %w", s.ID, err)
	}
	return nil
}
