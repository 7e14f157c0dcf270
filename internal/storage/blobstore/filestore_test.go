package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const helloHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	return fs
}

// stagingEntries возвращает количество файлов в staging-директории.
func stagingEntries(t *testing.T, fs *FileStore) int {
	t.Helper()
	entries, err := os.ReadDir(fs.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	return len(entries)
}

// TestNewFileStore_CreatesDirectories проверяет создание директорий данных и staging.
func TestNewFileStore_CreatesDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	fs, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	if fs.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, fs.DataDir())
	}
	if fs.Dir() != filepath.Join(dir, ".staging") {
		t.Errorf("неожиданная staging-директория %s", fs.Dir())
	}
	if err := fs.Check(context.Background()); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestStageCommitOpen(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	staged, err := fs.Stage(ctx, strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if staged.Size != 5 {
		t.Errorf("Size: ожидалось 5, получено %d", staged.Size)
	}

	location, err := fs.Commit(ctx, staged, helloHash)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !strings.HasPrefix(location, "2c/f2/") {
		t.Errorf("location должен шардироваться по хэшу: %s", location)
	}
	if n := stagingEntries(t, fs); n != 0 {
		t.Errorf("после Commit в staging осталось %d файлов", n)
	}

	rc, err := fs.Open(ctx, location)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("содержимое: ожидалось hello, получено %q", data)
	}

	// Discard после Commit — no-op
	if err := fs.Discard(staged); err != nil {
		t.Errorf("Discard после Commit: %v", err)
	}
	if ok, _ := fs.Exists(ctx, location); !ok {
		t.Error("blob пропал после Discard зафиксированного объекта")
	}
}

// Одинаковое содержимое получает разные location.
func TestCommit_UniqueLocations(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	var locations []string
	for range 2 {
		staged, err := fs.Stage(ctx, strings.NewReader("hello"))
		if err != nil {
			t.Fatalf("Stage: %v", err)
		}
		loc, err := fs.Commit(ctx, staged, helloHash)
		if err != nil {
			t.Fatalf("Commit: %v", err)
		}
		locations = append(locations, loc)
	}
	if locations[0] == locations[1] {
		t.Errorf("ожидались разные location, получен %s дважды", locations[0])
	}
}

func TestDiscard_RemovesStagedFile(t *testing.T) {
	fs := newTestStore(t)

	staged, err := fs.Stage(context.Background(), strings.NewReader("temporary"))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if n := stagingEntries(t, fs); n != 1 {
		t.Fatalf("ожидался 1 staged-файл, найдено %d", n)
	}

	if err := fs.Discard(staged); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := fs.Discard(staged); err != nil {
		t.Errorf("повторный Discard: %v", err)
	}
	if n := stagingEntries(t, fs); n != 0 {
		t.Errorf("после Discard осталось %d файлов", n)
	}

	if _, err := fs.Commit(context.Background(), staged, helloHash); err == nil {
		t.Error("Commit удалённого staged-объекта должен вернуть ошибку")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("обрыв соединения")
}

// Ошибка чтения не оставляет временных файлов.
func TestStage_ReadError(t *testing.T) {
	fs := newTestStore(t)

	r := io.MultiReader(strings.NewReader("partial"), failingReader{})
	if _, err := fs.Stage(context.Background(), r); err == nil {
		t.Fatal("ожидалась ошибка Stage")
	}
	if n := stagingEntries(t, fs); n != 0 {
		t.Errorf("после ошибки осталось %d временных файлов", n)
	}
}

func TestStage_CancelledContext(t *testing.T) {
	fs := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fs.Stage(ctx, strings.NewReader("hello")); !errors.Is(err, context.Canceled) {
		t.Errorf("ожидалась context.Canceled, получено %v", err)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	fs := newTestStore(t)

	staged, _ := fs.Stage(ctx, strings.NewReader("hello"))
	location, err := fs.Commit(ctx, staged, helloHash)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := fs.Remove(ctx, location); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := fs.Remove(ctx, location); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Remove: ожидалась ErrNotFound, получено %v", err)
	}
	if _, err := fs.Open(ctx, location); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open после Remove: ожидалась ErrNotFound, получено %v", err)
	}
	if ok, err := fs.Exists(ctx, location); err != nil || ok {
		t.Errorf("Exists после Remove: ok=%v err=%v", ok, err)
	}
}

func TestValidateLocation(t *testing.T) {
	tests := []struct {
		location string
		valid    bool
	}{
		{"2c/f2/0d6e4079-6f2e-4c5a-9d1a-1b2c3d4e5f60", true},
		{"", false},
		{"/etc/passwd", false},
		{"2c/../../etc/passwd", false},
		{"2c//f2", false},
		{"./2c", false},
		{`2c\f2`, false},
	}
	for _, tt := range tests {
		err := ValidateLocation(tt.location)
		if tt.valid && err != nil {
			t.Errorf("ValidateLocation(%q): неожиданная ошибка %v", tt.location, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidLocation) {
			t.Errorf("ValidateLocation(%q): ожидалась ErrInvalidLocation, получено %v", tt.location, err)
		}
	}
}

func TestNewLocation_InvalidHash(t *testing.T) {
	if _, err := NewLocation("not-a-hash"); !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("ожидалась ErrInvalidLocation, получено %v", err)
	}
}
