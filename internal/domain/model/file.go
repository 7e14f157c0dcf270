// Пакет model — доменные модели Intake Module.
// FileRecord — метаданные одного уникального по содержимому файла.
package model

import "time"

// FileRecord — запись индекса метаданных.
// Запись создаётся только после вычисления SHA-256 по всему содержимому
// и никогда не редактируется: удаляется вместе с blob-объектом.
type FileRecord struct {
	// ID — идентификатор записи (UUID v4)
	ID string

	// Owner — владелец файла (sub из JWT); nil для анонимной загрузки.
	// Анонимные загрузки делят одно пространство дедупликации.
	Owner *string

	// OriginalFilename — имя файла, переданное клиентом
	OriginalFilename string

	// ContentType — MIME-тип, заявленный клиентом (без параметров)
	ContentType string

	// Size — размер содержимого в байтах, совпадает с длиной blob
	Size int64

	// ContentHash — SHA-256 содержимого, 64 символа hex в нижнем регистре
	ContentHash string

	// StorageLocation — непрозрачный ключ blob в Blob Store
	StorageLocation string

	// UploadedAt — момент загрузки (UTC)
	UploadedAt time.Time
}

// OwnerString возвращает владельца или пустую строку для анонимной записи.
func (f *FileRecord) OwnerString() string {
	if f.Owner == nil {
		return ""
	}
	return *f.Owner
}

// Clone возвращает копию записи, не разделяющую указатель Owner.
func (f *FileRecord) Clone() *FileRecord {
	c := *f
	if f.Owner != nil {
		o := *f.Owner
		c.Owner = &o
	}
	return &c
}

// StringPtr возвращает указатель на копию строки, nil для пустой.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
