// Package errors provides the typed error taxonomy used across the caching
// daemon: scan/file errors that are recovered locally (skip + warning) and
// request-scoped errors that are surfaced to the calling client, per the
// local-vs-surfaced split of the error-handling design.
package errors

import (
	"fmt"
	"time"

	"github.com/standardbeagle/lspcached/internal/types"
)

// ErrorType classifies an error for logging, metrics, and client responses.
type ErrorType string

const (
	ErrorTypeIO               ErrorType = "io"
	ErrorTypeFileTooLarge     ErrorType = "file_too_large"
	ErrorTypeTooDeep          ErrorType = "too_deep"
	ErrorTypeInvalidPath      ErrorType = "invalid_path"
	ErrorTypeTimeout          ErrorType = "timeout"
	ErrorTypeLsp              ErrorType = "lsp_error"
	ErrorTypeStoreWrite       ErrorType = "store_write_failure"
	ErrorTypeCorruption       ErrorType = "cache_corruption"
	ErrorTypeConfig           ErrorType = "config"
	ErrorTypeParserUnavailable ErrorType = "parser_not_available"
	ErrorTypeInternal         ErrorType = "internal"
)

// ScanError is a per-file error recovered locally by a detector/watcher/
// analysis scan: it never fails the containing scan, only that one file.
type ScanError struct {
	Type       ErrorType
	FilePath   string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewScanError creates a ScanError, stamping the current time.
func NewScanError(op, path string, err error, errType ErrorType) *ScanError {
	return &ScanError{
		Type:       errType,
		FilePath:   path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.FilePath, e.Underlying)
}

func (e *ScanError) Unwrap() error { return e.Underlying }

// RequestError is a per-request error surfaced to the IPC client that issued
// the query; it never poisons the cache (no negative-cache insertion).
type RequestError struct {
	Type       ErrorType
	Operation  types.Operation
	Key        string
	Underlying error
	Timestamp  time.Time
}

// NewRequestError creates a RequestError for operation op against key.
func NewRequestError(errType ErrorType, op types.Operation, key string, err error) *RequestError {
	return &RequestError{
		Type:       errType,
		Operation:  op,
		Key:        key,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s query failed for %s: %v", e.Type, e.Operation, e.Key, e.Underlying)
}

func (e *RequestError) Unwrap() error { return e.Underlying }

// StoreError represents a persistent-store transaction failure. The caller's
// current request fails; the underlying engine's transaction guarantees that
// already-written portions of the batch are rolled back.
type StoreError struct {
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Operation: op, Underlying: err, Timestamp: time.Now()}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Operation, e.Underlying)
}

func (e *StoreError) Unwrap() error { return e.Underlying }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
}

func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Underlying: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %q): %v", e.Field, e.Value, e.Underlying)
}

func (e *ConfigError) Unwrap() error { return e.Underlying }

// MultiError aggregates independent warnings collected during a scan (one
// containing operation, many recoverable per-file failures).
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
	}
}

func (e *MultiError) Unwrap() []error { return e.Errors }
