package hashutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	h := NewHasher(AlgorithmBlake3, 0)
	a := h.Hash([]byte("fn foo(){}"))
	b := h.Hash([]byte("fn foo(){}"))
	if a != b {
		t.Fatalf("hash not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashSHA256Deterministic(t *testing.T) {
	h := NewHasher(AlgorithmSHA256, 0)
	a := h.Hash([]byte("content"))
	b := h.Hash([]byte("content"))
	if a != b {
		t.Fatalf("sha256 hash not deterministic")
	}
}

func TestHashFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.rs")
	if err := os.WriteFile(path, []byte("fn foo(){}"), 0644); err != nil {
		t.Fatal(err)
	}

	h := NewHasher(AlgorithmBlake3, 0)
	digest, size, err := h.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if size != int64(len("fn foo(){}")) {
		t.Errorf("size = %d, want %d", size, len("fn foo(){}"))
	}
	if digest != h.Hash([]byte("fn foo(){}")) {
		t.Errorf("HashFile digest does not match Hash() of the same bytes")
	}
}

func TestHashFileTooLargeBoundary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.txt")
	content := strings.Repeat("a", 100)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Exactly at the cap: accepted.
	h := NewHasher(AlgorithmBlake3, int64(len(content)))
	if _, _, err := h.HashFile(path); err != nil {
		t.Errorf("file at exactly max size should be accepted, got %v", err)
	}

	// One byte over: rejected with ErrFileTooLarge.
	h2 := NewHasher(AlgorithmBlake3, int64(len(content)-1))
	_, _, err := h2.HashFile(path)
	if err == nil {
		t.Fatal("expected ErrFileTooLarge")
	}
	var tooLarge *ErrFileTooLarge
	if !asErrFileTooLarge(err, &tooLarge) {
		t.Fatalf("expected *ErrFileTooLarge, got %T: %v", err, err)
	}
}

func asErrFileTooLarge(err error, target **ErrFileTooLarge) bool {
	if e, ok := err.(*ErrFileTooLarge); ok {
		*target = e
		return true
	}
	return false
}

func TestIsBinaryContent(t *testing.T) {
	cases := []struct {
		name   string
		sample []byte
		want   bool
	}{
		{"empty", []byte{}, false},
		{"text", []byte("package main\n\nfunc main() {}\n"), false},
		{"nul_byte", []byte("abc\x00def"), true},
		{"many_control_bytes", []byte{0x01, 0x02, 0x03, 0x04, 'a', 'b'}, true},
		{"tabs_and_newlines_ok", []byte("a\tb\nc\rd"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsBinaryContent(c.sample); got != c.want {
				t.Errorf("IsBinaryContent(%q) = %v, want %v", c.sample, got, c.want)
			}
		})
	}
}

func TestIsBinaryFile(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "a.go")
	os.WriteFile(textPath, []byte("package main\n"), 0644)
	binPath := filepath.Join(dir, "a.bin")
	os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 'x', 'y'}, 0644)

	if bin, err := IsBinary(textPath); err != nil || bin {
		t.Errorf("text file misclassified as binary: %v, err=%v", bin, err)
	}
	if bin, err := IsBinary(binPath); err != nil || !bin {
		t.Errorf("binary file misclassified as text: %v, err=%v", bin, err)
	}
}
