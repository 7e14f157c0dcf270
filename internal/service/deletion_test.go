package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
	"github.com/bigkaa/goartstore/intake-module/internal/repository"
	"github.com/bigkaa/goartstore/intake-module/internal/storage/blobstore"
)

// failingStore — хранилище, у которого Remove всегда завершается ошибкой.
type failingStore struct {
	blobstore.Store
	removeErr error
}

func (f *failingStore) Remove(context.Context, string) error {
	return f.removeErr
}

func TestDelete_RemovesRecordAndBlob(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	res := upload(t, env.ingest, nil, "a.txt", "hello")
	id := res.Record.ID

	// Прогреваем кэш
	if _, err := env.query.Get(ctx, id); err != nil {
		t.Fatalf("Get: %v", err)
	}

	if err := env.delete.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := env.query.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("после удаления ожидалась ErrNotFound, получено %v", err)
	}
	list, _ := env.query.List(ctx, ListParams{})
	if len(list) != 0 {
		t.Errorf("после удаления List вернул %d записей", len(list))
	}
	if countBlobs(t, env.dir) != 0 {
		t.Errorf("blob не удалён")
	}

	// То же содержимое после удаления — новая запись, не дубликат
	again := upload(t, env.ingest, nil, "a.txt", "hello")
	if again.Duplicate || again.Record.ID == id {
		t.Error("после удаления загрузка должна создать новую запись")
	}
}

func TestDelete_UnknownID(t *testing.T) {
	env := setupTestEnv(t)

	if err := env.delete.Delete(context.Background(), "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидалась ErrNotFound, получено %v", err)
	}
}

// Отсутствующий blob не мешает удалению записи.
func TestDelete_BlobAlreadyMissing(t *testing.T) {
	env := setupTestEnv(t)
	res := upload(t, env.ingest, nil, "a.txt", "hello")

	if err := os.Remove(filepath.Join(env.dir, filepath.FromSlash(res.Record.StorageLocation))); err != nil {
		t.Fatalf("os.Remove: %v", err)
	}

	if err := env.delete.Delete(context.Background(), res.Record.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if env.index.Count() != 0 {
		t.Error("запись должна быть удалена")
	}
}

// Ошибка удаления blob: запись восстанавливается и остаётся видимой.
func TestDelete_BlobRemoveFails(t *testing.T) {
	env := setupTestEnv(t)
	res := upload(t, env.ingest, nil, "a.txt", "hello")

	store := &failingStore{Store: env.store, removeErr: errors.New("диск только для чтения")}
	svc := NewDeletionService(env.index, store, NewCacheService(10, 0), testLogger())

	err := svc.Delete(context.Background(), res.Record.ID)
	var de *DeleteError
	if !errors.As(err, &de) || de.Stage != DeleteStageBlob {
		t.Fatalf("ожидалась DeleteError{Stage: blob}, получено %v", err)
	}

	if _, err := env.query.Get(context.Background(), res.Record.ID); err != nil {
		t.Errorf("запись должна остаться видимой: %v", err)
	}
	dup := upload(t, env.ingest, nil, "b.txt", "hello")
	if !dup.Duplicate {
		t.Error("восстановленная запись должна участвовать в дедупликации")
	}
}

// Ошибка удаления записи после удаления blob.
func TestDelete_RecordDeleteFails(t *testing.T) {
	env := setupTestEnv(t)
	res := upload(t, env.ingest, nil, "a.txt", "hello")
	rec := res.Record

	idx := &mockFileIndex{
		markDeletingFn: func(context.Context, string) (*model.FileRecord, error) {
			return rec, nil
		},
		deleteFn: func(context.Context, string) error {
			return errors.New("соединение с БД потеряно")
		},
	}
	svc := NewDeletionService(idx, env.store, NewCacheService(10, 0), testLogger())

	err := svc.Delete(context.Background(), rec.ID)
	var de *DeleteError
	if !errors.As(err, &de) || de.Stage != DeleteStageRecord {
		t.Fatalf("ожидалась DeleteError{Stage: record}, получено %v", err)
	}
	if de.FileID != rec.ID {
		t.Errorf("FileID = %q", de.FileID)
	}
	if countBlobs(t, env.dir) != 0 {
		t.Error("blob должен быть удалён до ошибки записи")
	}
}

// Отмена контекста клиента после пометки не прерывает удаление.
func TestDelete_IgnoresCancelAfterMark(t *testing.T) {
	env := setupTestEnv(t)
	res := upload(t, env.ingest, nil, "a.txt", "hello")
	rec := res.Record

	ctx, cancel := context.WithCancel(context.Background())
	idx := &mockFileIndex{
		markDeletingFn: func(context.Context, string) (*model.FileRecord, error) {
			cancel()
			return rec, nil
		},
		deleteFn: func(ctx context.Context, _ string) error {
			return ctx.Err()
		},
	}
	svc := NewDeletionService(idx, env.store, NewCacheService(10, 0), testLogger())

	if err := svc.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

// pausingIndex останавливает первый GetByID после чтения записи
// до закрытия resume.
type pausingIndex struct {
	repository.FileIndex
	once   sync.Once
	read   chan struct{}
	resume chan struct{}
}

func (p *pausingIndex) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	rec, err := p.FileIndex.GetByID(ctx, id)
	p.once.Do(func() {
		close(p.read)
		<-p.resume
	})
	return rec, err
}

// Удаление между чтением записи и её кэшированием не оставляет
// удалённую запись в кэше.
func TestDelete_ConcurrentGetDoesNotResurrect(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	res := upload(t, env.ingest, nil, "a.txt", "hello")
	id := res.Record.ID

	cache := NewCacheService(100, time.Minute)
	idx := &pausingIndex{
		FileIndex: env.index,
		read:      make(chan struct{}),
		resume:    make(chan struct{}),
	}
	query := NewQueryService(idx, cache, testLogger())
	deletion := NewDeletionService(env.index, env.store, cache, testLogger())

	type getResult struct {
		rec *model.FileRecord
		err error
	}
	done := make(chan getResult, 1)
	go func() {
		rec, err := query.Get(ctx, id)
		done <- getResult{rec: rec, err: err}
	}()

	<-idx.read
	if err := deletion.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	close(idx.resume)

	if got := <-done; !errors.Is(got.err, ErrNotFound) {
		t.Errorf("Get во время удаления: ожидалась ErrNotFound, получено rec=%v err=%v", got.rec, got.err)
	}
	if _, err := query.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("после удаления ожидалась ErrNotFound, получено %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("удалённая запись осталась в кэше (len=%d)", cache.Len())
	}
}

// failingCache — кэш, у которого Delete всегда завершается ошибкой.
type failingCache struct {
	*CacheService
	deleteErr error
}

func (f *failingCache) Delete(context.Context, string) error {
	return f.deleteErr
}

// Сбой инвалидации кэша: blob не трогается, запись восстанавливается.
func TestDelete_CacheInvalidationFails(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	res := upload(t, env.ingest, nil, "a.txt", "hello")

	cache := &failingCache{CacheService: NewCacheService(10, time.Minute), deleteErr: errors.New("redis недоступен")}
	svc := NewDeletionService(env.index, env.store, cache, testLogger())

	err := svc.Delete(ctx, res.Record.ID)
	var de *DeleteError
	if !errors.As(err, &de) || de.Stage != DeleteStageCache {
		t.Fatalf("ожидалась DeleteError{Stage: cache}, получено %v", err)
	}

	if _, err := env.query.Get(ctx, res.Record.ID); err != nil {
		t.Errorf("запись должна остаться видимой: %v", err)
	}
	if countBlobs(t, env.dir) != 1 {
		t.Error("blob не должен удаляться при сбое инвалидации кэша")
	}
}
