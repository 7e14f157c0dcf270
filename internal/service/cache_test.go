package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
)

func testRecord(id string) *model.FileRecord {
	return &model.FileRecord{
		ID:               id,
		Owner:            model.StringPtr("alice"),
		OriginalFilename: "test.txt",
		ContentType:      "text/plain",
		Size:             1024,
		ContentHash:      helloHash,
		StorageLocation:  "2c/f2/" + id,
		UploadedAt:       time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(100, 5*time.Minute)

	if _, ok := cache.Get(ctx, "test-uuid-1"); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	cache.Set(ctx, testRecord("test-uuid-1"))
	got, ok := cache.Get(ctx, "test-uuid-1")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.ID != "test-uuid-1" || got.OriginalFilename != "test.txt" {
		t.Errorf("получена запись %+v", got)
	}
}

// Кэш хранит копии: изменение полученной записи не портит кэш.
func TestCacheService_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set(ctx, testRecord("copy"))

	got, _ := cache.Get(ctx, "copy")
	got.OriginalFilename = "changed.txt"
	*got.Owner = "mallory"

	again, _ := cache.Get(ctx, "copy")
	if again.OriginalFilename != "test.txt" || *again.Owner != "alice" {
		t.Errorf("кэш изменён через возвращённую запись: %+v", again)
	}
}

// TestCacheService_Delete проверяет инвалидацию.
func TestCacheService_Delete(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set(ctx, testRecord("delete-me"))

	if err := cache.Delete(ctx, "delete-me"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, ok := cache.Get(ctx, "delete-me"); ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(100, 50*time.Millisecond)
	cache.Set(ctx, testRecord("ttl-test"))

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get(ctx, "ttl-test"); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_MaxSize проверяет вытеснение при переполнении.
func TestCacheService_MaxSize(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(3, 5*time.Minute)

	for _, id := range []string{"a", "b", "c", "d"} {
		cache.Set(ctx, testRecord(id))
	}

	if cache.Len() != 3 {
		t.Errorf("Len = %d, ожидалось 3", cache.Len())
	}
	if _, ok := cache.Get(ctx, "a"); ok {
		t.Error("самая старая запись должна быть вытеснена")
	}
}

// --- RedisCache ---

func TestRedisCache_SetGet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, 5*time.Minute, testLogger())
	ctx := context.Background()
	rec := testRecord("r-1")

	data, _ := json.Marshal(encodeCachedRecord(rec))
	mock.ExpectSet("im:file:r-1", data, 5*time.Minute).SetVal("OK")
	mock.ExpectGet("im:file:r-1").SetVal(string(data))

	cache.Set(ctx, rec)
	got, ok := cache.Get(ctx, "r-1")
	if !ok {
		t.Fatal("ожидался cache hit")
	}
	if got.ID != rec.ID || got.ContentHash != rec.ContentHash || !got.UploadedAt.Equal(rec.UploadedAt) {
		t.Errorf("получена запись %+v", got)
	}
	if got.Owner == nil || *got.Owner != "alice" {
		t.Errorf("Owner = %v", got.Owner)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisCache_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Minute, testLogger())

	mock.ExpectGet("im:file:absent").RedisNil()
	mock.ExpectGet("im:file:broken").SetErr(errors.New("connection refused"))
	mock.ExpectGet("im:file:garbage").SetVal("{not json")

	for _, id := range []string{"absent", "broken", "garbage"} {
		if _, ok := cache.Get(context.Background(), id); ok {
			t.Errorf("%s: ожидался cache miss", id)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRedisCache_Delete(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Minute, testLogger())

	mock.ExpectDel("im:file:gone").SetVal(1)
	mock.ExpectDel("im:file:fail").SetErr(redis.ErrClosed)

	if err := cache.Delete(context.Background(), "gone"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	// Сбой Redis возвращается вызывающему
	if err := cache.Delete(context.Background(), "fail"); !errors.Is(err, redis.ErrClosed) {
		t.Errorf("ожидалась redis.ErrClosed, получено %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
