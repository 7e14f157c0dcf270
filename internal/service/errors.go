// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound — файл не найден.
	ErrNotFound = errors.New("файл не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrStorage — ошибка чтения потока или записи в хранилище.
	ErrStorage = errors.New("ошибка хранилища")
	// ErrConflict — конфликт дедупликации, который не удалось разрешить.
	ErrConflict = errors.New("конфликт дедупликации")
)

// DeleteStage — этап удаления, на котором произошёл сбой.
type DeleteStage string

const (
	// DeleteStageBlob — не удалось удалить blob; запись восстановлена.
	DeleteStageBlob DeleteStage = "blob"
	// DeleteStageRecord — blob удалён, запись осталась (скрыта).
	DeleteStageRecord DeleteStage = "record"
	// DeleteStageCache — не удалось инвалидировать кэш; запись восстановлена.
	DeleteStageCache DeleteStage = "cache"
)

// DeleteError — частичный сбой удаления.
type DeleteError struct {
	FileID string
	Stage  DeleteStage
	Err    error
}

func (e *DeleteError) Error() string {
	switch e.Stage {
	case DeleteStageRecord:
		return fmt.Sprintf("удаление файла %s: blob удалён, запись осталась: %v", e.FileID, e.Err)
	case DeleteStageCache:
		return fmt.Sprintf("удаление файла %s: ошибка инвалидации кэша: %v", e.FileID, e.Err)
	default:
		return fmt.Sprintf("удаление файла %s: ошибка удаления blob: %v", e.FileID, e.Err)
	}
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}
