package errs

import (
	"errors"
	"fmt"
)

var ErrRecordNotFound = errors.New("record not found")

// ErrUnknownKind is returned before any storage or provider access when an
// analysis kind is outside the closed set.
var ErrUnknownKind = errors.New("unrecognized analysis kind")

var errorInvalidParamFmt = "invalid request params: %s %v"
var errorRecordNotFoundFmt = "%s not found by %s: %w"
var errorMissingParamFmt = "missing required param: %s"

func NewInvalidParamErr(name string, value interface{}) error {
	return fmt.Errorf(errorInvalidParamFmt, name, value)
}

// NewRecordNotFoundErr wraps ErrRecordNotFound so callers can match it with errors.Is.
func NewRecordNotFoundErr(name string, value interface{}) error {
	return fmt.Errorf(errorRecordNotFoundFmt, name, fmt.Sprint(value), ErrRecordNotFound)
}

func NewMissingParamError(name string) error {
	return fmt.Errorf(errorMissingParamFmt, name)
}

// ArchiveError means the uploaded archive could not be opened or its central
// directory could not be parsed.
type ArchiveError struct {
	Op  string
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("[ARCHIVE] %s: %v", e.Op, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

func NewArchiveError(op string, err error) error {
	return &ArchiveError{Op: op, Err: err}
}

// StorageError is any failure talking to the relational store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("[DB] failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// ProviderError is a failed call to the language-model provider. Nothing is
// cached when it is returned.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[LLM] %s request failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("[LLM] %s request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func NewProviderError(provider string, statusCode int, err error) error {
	return &ProviderError{Provider: provider, StatusCode: statusCode, Err: err}
}

// ConfigurationError reports a setup problem, such as a missing credential,
// as opposed to a transient failure.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("[CONFIG] %s: %s", e.Setting, e.Reason)
}

func NewConfigurationError(setting, reason string) error {
	return &ConfigurationError{Setting: setting, Reason: reason}
}

// IngestError wraps the archive or storage failure that aborted an ingestion.
type IngestError struct {
	AppName string
	Err     error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %q failed: %v", e.AppName, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

func NewIngestError(appName string, err error) error {
	return &IngestError{AppName: appName, Err: err}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

func IsArchive(err error) bool {
	var target *ArchiveError
	return errors.As(err, &target)
}

func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}

func IsProvider(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
