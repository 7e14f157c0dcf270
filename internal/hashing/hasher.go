// Пакет hashing — инкрементальное вычисление SHA-256 для дедупликации.
// Hasher реализует io.Writer и подключается к потоку загрузки через
// io.TeeReader: содержимое никогда не буферизуется целиком.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"io"
)

// ErrFinalized — запись в Hasher после вызова Sum.
var ErrFinalized = errors.New("хэш уже вычислен, запись запрещена")

// HexLen — длина hex-представления SHA-256.
const HexLen = sha256.Size * 2

// Digest — результат хэширования полного потока.
type Digest struct {
	// Hex — SHA-256 в нижнем регистре (64 символа)
	Hex string
	// Size — количество хэшированных байт
	Size int64
}

// Hasher — потоковый SHA-256 со счётчиком байт.
// Не потокобезопасен: один Hasher обслуживает один поток загрузки.
type Hasher struct {
	h    hash.Hash
	size int64
	sum  *Digest
}

// New создаёт пустой Hasher.
func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Write добавляет блок данных. После Sum возвращает ErrFinalized.
func (h *Hasher) Write(p []byte) (int, error) {
	if h.sum != nil {
		return 0, ErrFinalized
	}
	n, _ := h.h.Write(p) // hash.Hash.Write не возвращает ошибок
	h.size += int64(n)
	return n, nil
}

// Size возвращает количество байт, переданных на данный момент.
func (h *Hasher) Size() int64 {
	return h.size
}

// Sum завершает хэширование и возвращает дайджест.
// Повторные вызовы возвращают тот же результат.
func (h *Hasher) Sum() Digest {
	if h.sum == nil {
		h.sum = &Digest{
			Hex:  hex.EncodeToString(h.h.Sum(nil)),
			Size: h.size,
		}
	}
	return *h.sum
}

// SumReader вычисляет дайджест всего содержимого reader.
func SumReader(r io.Reader) (Digest, error) {
	h := New()
	if _, err := io.Copy(h, r); err != nil {
		return Digest{}, err
	}
	return h.Sum(), nil
}

// IsValidHex проверяет, что строка — hex SHA-256 в нижнем регистре.
func IsValidHex(s string) bool {
	if len(s) != HexLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
