package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrInvalidConfig indicates a missing credential or an invalid setting
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoDocumentsFound indicates the source directory yielded no usable text
	ErrNoDocumentsFound = errors.New("no documents found")

	// ErrIndexNotFound indicates no index has been built at the configured path
	ErrIndexNotFound = errors.New("index not found")

	// ErrCorruptIndex indicates the persisted index is unreadable or incompatible
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrEmptyInput indicates an index build over zero entries
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates vectors of different dimensions were compared
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrProvider indicates an embedding or generation call failed
	ErrProvider = errors.New("provider error")
)

// ProviderError describes a failed call to an external model service.
type ProviderError struct {
	Op         string // "embed" or "generate"
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (status %d): %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// StageError tags an error with the pipeline stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Stage wraps err with the given stage; nil stays nil.
func Stage(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the outermost stage recorded on err, or "".
func StageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// IsRetryable reports whether err is a provider failure worth retrying.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}
