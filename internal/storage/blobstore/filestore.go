package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStore — blob-хранилище на локальной файловой системе.
// Staging-директория должна находиться на той же файловой системе,
// что и dataDir: фиксация выполняется атомарным rename.
type FileStore struct {
	*Staging

	// dataDir — корневая директория хранения (IM_DATA_DIR)
	dataDir string
}

// NewFileStore создаёт FileStore. Пустой stagingDir означает <dataDir>/.staging.
func NewFileStore(dataDir, stagingDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	if stagingDir == "" {
		stagingDir = filepath.Join(dataDir, ".staging")
	}

	staging, err := NewStaging(stagingDir)
	if err != nil {
		return nil, err
	}

	return &FileStore{Staging: staging, dataDir: dataDir}, nil
}

// Commit перемещает staged-файл в постоянное место.
func (fs *FileStore) Commit(_ context.Context, s *Staged, contentHash string) (string, error) {
	location, err := NewLocation(contentHash)
	if err != nil {
		return "", err
	}
	fullPath := fs.fullPath(location)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("ошибка создания директории %s: %w", filepath.Dir(fullPath), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return "", fmt.Errorf("staged-объект %s уже использован", s.ID)
	}

	// Атомарный rename
	if err := os.Rename(s.path, fullPath); err != nil {
		return "", fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	s.done = true

	return location, nil
}

// Open открывает blob для чтения. Возвращаемый *os.File поддерживает Seek.
func (fs *FileStore) Open(_ context.Context, location string) (io.ReadCloser, error) {
	if err := ValidateLocation(location); err != nil {
		return nil, err
	}

	f, err := os.Open(fs.fullPath(location))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", location, err)
	}

	return f, nil
}

// Remove удаляет blob с диска.
// Пустые каталоги шардов не удаляются: параллельный Commit может их использовать.
func (fs *FileStore) Remove(_ context.Context, location string) error {
	if err := ValidateLocation(location); err != nil {
		return err
	}

	err := os.Remove(fs.fullPath(location))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, location)
		}
		return fmt.Errorf("ошибка удаления файла %s: %w", location, err)
	}
	return nil
}

// Exists проверяет существование blob на диске.
func (fs *FileStore) Exists(_ context.Context, location string) (bool, error) {
	if err := ValidateLocation(location); err != nil {
		return false, err
	}

	_, err := os.Stat(fs.fullPath(location))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("ошибка проверки файла %s: %w", location, err)
	}
}

// Check проверяет, что директория данных доступна.
func (fs *FileStore) Check(_ context.Context) error {
	info, err := os.Stat(fs.dataDir)
	if err != nil {
		return fmt.Errorf("директория данных недоступна: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s не является директорией", fs.dataDir)
	}
	return nil
}

// DataDir возвращает путь к директории данных.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

func (fs *FileStore) fullPath(location string) string {
	return filepath.Join(fs.dataDir, filepath.FromSlash(location))
}
