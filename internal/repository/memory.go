package repository

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
)

// dedupKey — ключ уникальности (owner, content_hash).
// anonymous отделяет NULL-владельца от владельца с пустой строкой.
type dedupKey struct {
	anonymous bool
	owner     string
	hash      string
}

func keyOf(owner *string, hash string) dedupKey {
	if owner == nil {
		return dedupKey{anonymous: true, hash: hash}
	}
	return dedupKey{owner: *owner, hash: hash}
}

// memEntry — запись индекса с флагом удаления.
type memEntry struct {
	rec      *model.FileRecord
	deleting bool
}

// MemoryIndex — потокобезопасный in-memory индекс метаданных.
// Состояние не переживает перезапуск процесса.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	// live — (owner, hash) → id для записей без пометки удаления
	live   map[dedupKey]string
	logger *slog.Logger
}

// NewMemoryIndex создаёт пустой in-memory индекс.
func NewMemoryIndex(logger *slog.Logger) *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string]*memEntry),
		live:    make(map[dedupKey]string),
		logger:  logger.With(slog.String("component", "memory_index")),
	}
}

// FindByOwnerAndHash возвращает копию живой записи или ErrNotFound.
func (m *MemoryIndex) FindByOwnerAndHash(_ context.Context, owner *string, contentHash string) (*model.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.live[keyOf(owner, contentHash)]
	if !ok {
		return nil, ErrNotFound
	}
	return m.entries[id].rec.Clone(), nil
}

// Insert добавляет копию записи.
func (m *MemoryIndex) Insert(_ context.Context, rec *model.FileRecord) error {
	key := keyOf(rec.Owner, rec.ContentHash)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.live[key]; exists {
		return ErrConflict
	}
	if _, exists := m.entries[rec.ID]; exists {
		return ErrConflict
	}

	m.entries[rec.ID] = &memEntry{rec: rec.Clone()}
	m.live[key] = rec.ID

	m.logger.Debug("Запись добавлена в индекс",
		slog.String("file_id", rec.ID),
		slog.Int("total", len(m.entries)),
	)
	return nil
}

// GetByID возвращает копию живой записи.
func (m *MemoryIndex) GetByID(_ context.Context, id string) (*model.FileRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok || e.deleting {
		return nil, ErrNotFound
	}
	return e.rec.Clone(), nil
}

// Query возвращает копии живых записей, отсортированные от новых к старым.
func (m *MemoryIndex) Query(_ context.Context, filter FileFilter) ([]*model.FileRecord, error) {
	m.mu.RLock()
	result := make([]*model.FileRecord, 0, len(m.entries))
	for _, e := range m.entries {
		if e.deleting || !filter.Matches(e.rec) {
			continue
		}
		result = append(result, e.rec.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return newerFirst(result[i], result[j])
	})
	return result, nil
}

// MarkDeleting скрывает запись и освобождает ключ уникальности.
func (m *MemoryIndex) MarkDeleting(_ context.Context, id string) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || e.deleting {
		return nil, ErrNotFound
	}
	e.deleting = true
	delete(m.live, keyOf(e.rec.Owner, e.rec.ContentHash))
	return e.rec.Clone(), nil
}

// UnmarkDeleting возвращает запись в видимое состояние.
func (m *MemoryIndex) UnmarkDeleting(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || !e.deleting {
		return ErrNotFound
	}
	key := keyOf(e.rec.Owner, e.rec.ContentHash)
	if _, taken := m.live[key]; taken {
		return ErrConflict
	}
	e.deleting = false
	m.live[key] = id
	return nil
}

// Delete удаляет запись.
func (m *MemoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return ErrNotFound
	}
	if !e.deleting {
		delete(m.live, keyOf(e.rec.Owner, e.rec.ContentHash))
	}
	delete(m.entries, id)
	return nil
}

// Count возвращает количество записей, включая удаляемые.
func (m *MemoryIndex) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
