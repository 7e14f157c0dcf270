package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
)

// fileColumns — список столбцов таблицы files для SELECT-запросов.
const fileColumns = `id, owner, original_filename, content_type, size,
	content_hash, storage_location, uploaded_at`

// OwnerHashIndex — имя частичного уникального индекса (owner, content_hash).
// Нарушение именно этого индекса означает проигранную гонку дедупликации.
const OwnerHashIndex = "files_owner_content_hash_live_key"

// fileRepo — реализация FileIndex через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт PostgreSQL-индекс метаданных.
func NewFileRepository(db DBTX) FileIndex {
	return &fileRepo{db: db}
}

// FindByOwnerAndHash ищет живую запись владельца с указанным хэшем.
// NULL-владелец сравнивается как обычное значение (IS NOT DISTINCT FROM).
func (r *fileRepo) FindByOwnerAndHash(ctx context.Context, owner *string, contentHash string) (*model.FileRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM files
		WHERE owner IS NOT DISTINCT FROM $1 AND content_hash = $2 AND NOT deleting`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, owner, contentHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка поиска файла по хэшу: %w", err)
	}
	return f, nil
}

// Insert добавляет запись. Нарушение уникальности (owner, content_hash)
// возвращается как ErrConflict.
func (r *fileRepo) Insert(ctx context.Context, rec *model.FileRecord) error {
	query := `
		INSERT INTO files (id, owner, original_filename, content_type, size,
			content_hash, storage_location, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.Owner, rec.OriginalFilename, rec.ContentType, rec.Size,
		rec.ContentHash, rec.StorageLocation, rec.UploadedAt,
	)
	if err != nil {
		if isOwnerHashViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

// GetByID возвращает живую запись по UUID или ErrNotFound.
// Строка, не являющаяся UUID, не может быть идентификатором — ErrNotFound.
func (r *fileRepo) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`SELECT %s FROM files WHERE id = $1 AND NOT deleting`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// Query выполняет выборку с динамическими фильтрами.
func (r *fileRepo) Query(ctx context.Context, filter FileFilter) ([]*model.FileRecord, error) {
	where, args := buildFilterWhere(filter, 1)

	query := fmt.Sprintf(`SELECT %s FROM files %s ORDER BY uploaded_at DESC, id DESC`, fileColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки файлов: %w", err)
	}
	defer rows.Close()

	result := make([]*model.FileRecord, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	return result, nil
}

// MarkDeleting помечает запись как удаляемую и возвращает её.
func (r *fileRepo) MarkDeleting(ctx context.Context, id string) (*model.FileRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(`
		UPDATE files SET deleting = TRUE
		WHERE id = $1 AND NOT deleting
		RETURNING %s`, fileColumns)

	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка пометки файла на удаление: %w", err)
	}
	return f, nil
}

// UnmarkDeleting снимает пометку удаления.
// ErrConflict, если за время удаления появилась живая запись с тем же содержимым.
func (r *fileRepo) UnmarkDeleting(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	query := `UPDATE files SET deleting = FALSE WHERE id = $1 AND deleting`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		if isOwnerHashViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка снятия пометки удаления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет запись по UUID.
func (r *fileRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanFile сканирует строку результата в FileRecord.
func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	if err := row.Scan(
		&f.ID, &f.Owner, &f.OriginalFilename, &f.ContentType, &f.Size,
		&f.ContentHash, &f.StorageLocation, &f.UploadedAt,
	); err != nil {
		return nil, err
	}
	f.UploadedAt = f.UploadedAt.UTC()
	return f, nil
}

// buildFilterWhere строит WHERE-условие и аргументы для выборки файлов.
// Записи, помеченные на удаление, исключаются всегда.
// startArg — номер первого $-параметра.
func buildFilterWhere(filter FileFilter, startArg int) (whereClause string, args []any) {
	conditions := []string{"NOT deleting"}
	argNum := startArg

	// Подстрока имени файла (ILIKE, метасимволы экранируются)
	if filter.Filename != nil && *filter.Filename != "" {
		conditions = append(conditions, fmt.Sprintf("original_filename ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(*filter.Filename)+"%")
		argNum++
	}

	// Подстрока MIME-типа
	if filter.ContentType != nil && *filter.ContentType != "" {
		conditions = append(conditions, fmt.Sprintf("content_type ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(*filter.ContentType)+"%")
		argNum++
	}

	if filter.MinSize != nil {
		conditions = append(conditions, fmt.Sprintf("size >= $%d", argNum))
		args = append(args, *filter.MinSize)
		argNum++
	}

	if filter.MaxSize != nil {
		conditions = append(conditions, fmt.Sprintf("size <= $%d", argNum))
		args = append(args, *filter.MaxSize)
		argNum++
	}

	if filter.UploadedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("uploaded_at >= $%d", argNum))
		args = append(args, *filter.UploadedFrom)
		argNum++
	}

	// Верхняя граница не включительно: начало следующего дня
	if filter.UploadedUntil != nil {
		conditions = append(conditions, fmt.Sprintf("uploaded_at < $%d", argNum))
		args = append(args, *filter.UploadedUntil)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// isOwnerHashViolation — нарушение именно индекса (owner, content_hash).
// Коллизии id/storage_location остаются обычными ошибками.
func isOwnerHashViolation(err error) bool {
	if !isUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	errors.As(err, &pgErr)
	return pgErr.ConstraintName == OwnerHashIndex
}
