package hashing

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// sha256("hello")
const helloHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

// sha256("")
const emptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

func TestHasher_KnownDigest(t *testing.T) {
	h := New()
	if _, err := h.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	d := h.Sum()
	if d.Hex != helloHash {
		t.Errorf("Hex: хотели %s, получили %s", helloHash, d.Hex)
	}
	if d.Size != 5 {
		t.Errorf("Size: хотели 5, получили %d", d.Size)
	}
}

func TestHasher_EmptyStream(t *testing.T) {
	d := New().Sum()
	if d.Hex != emptyHash {
		t.Errorf("Hex пустого потока: хотели %s, получили %s", emptyHash, d.Hex)
	}
	if d.Size != 0 {
		t.Errorf("Size: хотели 0, получили %d", d.Size)
	}
}

// Разбиение на блоки не влияет на результат.
func TestHasher_ChunkingIndependent(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 10_000)

	whole, err := SumReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("SumReader: %v", err)
	}

	for _, chunk := range []int{1, 7, 4096, 65536} {
		h := New()
		for off := 0; off < len(data); off += chunk {
			end := min(off+chunk, len(data))
			if _, err := h.Write(data[off:end]); err != nil {
				t.Fatalf("Write: %v", err)
			}
		}
		got := h.Sum()
		if got != whole {
			t.Errorf("блок %d: хотели %+v, получили %+v", chunk, whole, got)
		}
	}
}

func TestHasher_WriteAfterSum(t *testing.T) {
	h := New()
	_, _ = h.Write([]byte("hello"))
	first := h.Sum()

	if _, err := h.Write([]byte("more")); !errors.Is(err, ErrFinalized) {
		t.Errorf("ожидалась ErrFinalized, получено %v", err)
	}
	if second := h.Sum(); second != first {
		t.Errorf("повторный Sum изменил результат: %+v != %+v", second, first)
	}
}

func TestHasher_TeeReader(t *testing.T) {
	h := New()
	var staged bytes.Buffer

	n, err := io.Copy(&staged, io.TeeReader(strings.NewReader("hello"), h))
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != h.Size() {
		t.Errorf("записано %d байт, хэшировано %d", n, h.Size())
	}
	if h.Sum().Hex != helloHash {
		t.Errorf("неожиданный хэш %s", h.Sum().Hex)
	}
}

func TestIsValidHex(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{helloHash, true},
		{strings.ToUpper(helloHash), false},
		{helloHash[:63], false},
		{strings.Repeat("g", 64), false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidHex(tt.in); got != tt.want {
			t.Errorf("IsValidHex(%q) = %v, хотели %v", tt.in, got, tt.want)
		}
	}
}
