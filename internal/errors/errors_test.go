package errors

import (
	"errors"
	"testing"
	"time"

	"github.com/standardbeagle/lspcached/internal/types"
)

func TestScanError(t *testing.T) {
	underlying := errors.New("file too large")
	err := NewScanError("hash", "/path/to/file", underlying, ErrorTypeFileTooLarge)

	if err.Type != ErrorTypeFileTooLarge {
		t.Errorf("Type = %v, want ErrorTypeFileTooLarge", err.Type)
	}
	if !errors.Is(err, underlying) {
		t.Errorf("expected Unwrap() to reach underlying error")
	}
	want := "file_too_large hash failed for /path/to/file: file too large"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if err.Timestamp.IsZero() || time.Since(err.Timestamp) > time.Second {
		t.Errorf("Timestamp looks wrong: %v", err.Timestamp)
	}
}

func TestRequestErrorDoesNotPoison(t *testing.T) {
	underlying := errors.New("server exited")
	err := NewRequestError(ErrorTypeLsp, types.OpDefinition, "a.rs:10:5", underlying)

	if err.Operation != types.OpDefinition {
		t.Errorf("Operation = %v, want Definition", err.Operation)
	}
	if !errors.Is(err, underlying) {
		t.Errorf("expected Unwrap() to reach underlying error")
	}
}

func TestStoreError(t *testing.T) {
	underlying := errors.New("disk full")
	err := NewStoreError("store_edges", underlying)
	want := "store store_edges failed: disk full"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be positive")
	err := NewConfigError("ttl_seconds", "-1", underlying)
	want := `config error for field ttl_seconds (value "-1"): must be positive`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMultiError(t *testing.T) {
	e1 := errors.New("e1")
	e2 := errors.New("e2")

	if got := NewMultiError(nil).Error(); got != "no errors" {
		t.Errorf("empty MultiError.Error() = %q", got)
	}
	if got := NewMultiError([]error{e1}).Error(); got != "e1" {
		t.Errorf("single MultiError.Error() = %q", got)
	}
	multi := NewMultiError([]error{e1, nil, e2, nil})
	if len(multi.Errors) != 2 {
		t.Fatalf("expected nils filtered, got %d errors", len(multi.Errors))
	}
	if len(multi.Unwrap()) != 2 {
		t.Errorf("Unwrap() should return all filtered errors")
	}
}
