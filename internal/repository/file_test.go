package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/intake-module/internal/database"
)

// --- Тесты buildFilterWhere ---

// TestBuildFilterWhere_Empty — без фильтров остаётся только условие видимости.
func TestBuildFilterWhere_Empty(t *testing.T) {
	where, args := buildFilterWhere(FileFilter{}, 1)

	if where != "WHERE NOT deleting" {
		t.Errorf("where = %q, ожидалось 'WHERE NOT deleting'", where)
	}
	if len(args) != 0 {
		t.Errorf("args count = %d, ожидался 0", len(args))
	}
}

func TestBuildFilterWhere_Filename(t *testing.T) {
	name := "report"
	where, args := buildFilterWhere(FileFilter{Filename: &name}, 1)

	if !strings.Contains(where, "original_filename ILIKE $1") {
		t.Errorf("where = %q, ожидался ILIKE по original_filename", where)
	}
	if args[0] != "%report%" {
		t.Errorf("args[0] = %v, ожидался '%%report%%'", args[0])
	}
}

// Пустая строка фильтра не применяется.
func TestBuildFilterWhere_EmptyStringIgnored(t *testing.T) {
	empty := ""
	where, args := buildFilterWhere(FileFilter{Filename: &empty, ContentType: &empty}, 1)

	if strings.Contains(where, "ILIKE") {
		t.Errorf("where = %q, пустой фильтр не должен применяться", where)
	}
	if len(args) != 0 {
		t.Errorf("args count = %d, ожидался 0", len(args))
	}
}

func TestBuildFilterWhere_EscapesLikeMetacharacters(t *testing.T) {
	name := `50%_off\`
	_, args := buildFilterWhere(FileFilter{Filename: &name}, 1)

	want := `%50\%\_off\\%`
	if args[0] != want {
		t.Errorf("args[0] = %v, ожидался %s", args[0], want)
	}
}

// TestBuildFilterWhere_AllFilters проверяет нумерацию аргументов при всех фильтрах.
func TestBuildFilterWhere_AllFilters(t *testing.T) {
	name := "a"
	ct := "text"
	minSize := int64(1)
	maxSize := int64(100)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	where, args := buildFilterWhere(FileFilter{
		Filename:      &name,
		ContentType:   &ct,
		MinSize:       &minSize,
		MaxSize:       &maxSize,
		UploadedFrom:  &from,
		UploadedUntil: &until,
	}, 1)

	expected := []string{
		"NOT deleting",
		"original_filename ILIKE $1",
		"content_type ILIKE $2",
		"size >= $3",
		"size <= $4",
		"uploaded_at >= $5",
		"uploaded_at < $6",
	}
	for _, e := range expected {
		if !strings.Contains(where, e) {
			t.Errorf("where = %q, ожидалось содержание %q", where, e)
		}
	}
	if len(args) != 6 {
		t.Fatalf("args count = %d, ожидалось 6", len(args))
	}
	if args[2] != int64(1) || args[3] != int64(100) {
		t.Errorf("size args = %v, %v", args[2], args[3])
	}
	if args[4] != from || args[5] != until {
		t.Errorf("date args = %v, %v", args[4], args[5])
	}
}

// TestBuildFilterWhere_StartArg проверяет смещение нумерации параметров.
func TestBuildFilterWhere_StartArg(t *testing.T) {
	minSize := int64(10)
	where, _ := buildFilterWhere(FileFilter{MinSize: &minSize}, 3)

	if !strings.Contains(where, "size >= $3") {
		t.Errorf("where = %q, ожидалось 'size >= $3'", where)
	}
}

func TestIsUniqueViolation_Nil(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Error("nil не является нарушением уникальности")
	}
	if isOwnerHashViolation(nil) {
		t.Error("nil не является нарушением индекса (owner, content_hash)")
	}
}

// Конфликт распознаётся по имени индекса, созданного миграцией.
func TestIsOwnerHashViolation_IndexName(t *testing.T) {
	if OwnerHashIndex != database.DedupIndex {
		t.Fatalf("OwnerHashIndex = %q, в миграции %q", OwnerHashIndex, database.DedupIndex)
	}

	dup := &pgconn.PgError{Code: "23505", ConstraintName: database.DedupIndex}
	if !isOwnerHashViolation(dup) {
		t.Error("нарушение индекса дедупликации не распознано")
	}
	other := &pgconn.PgError{Code: "23505", ConstraintName: "files_storage_location_key"}
	if isOwnerHashViolation(other) {
		t.Error("нарушение другого уникального ключа принято за гонку дедупликации")
	}
}
