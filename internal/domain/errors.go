package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures. Every component raises exactly one
// kind; the orchestrator adds context but never changes it.
type ErrorKind string

const (
	ErrValidation  ErrorKind = "validation"
	ErrStorage     ErrorKind = "storage"
	ErrCompression ErrorKind = "compression"
	ErrCorruption  ErrorKind = "corruption"
	ErrTool        ErrorKind = "tool"
	ErrTimeout     ErrorKind = "timeout"
)

// EngineError is the typed failure surface of the engine. ExitCode and
// Stderr are populated for ErrTool only.
type EngineError struct {
	Kind     ErrorKind
	Message  string
	Cause    error
	ExitCode int
	Stderr   string
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

func NewValidationError(message string, cause error) *EngineError {
	return &EngineError{Kind: ErrValidation, Message: message, Cause: cause}
}

func NewStorageError(message string, cause error) *EngineError {
	return &EngineError{Kind: ErrStorage, Message: message, Cause: cause}
}

func NewCompressionError(message string, cause error) *EngineError {
	return &EngineError{Kind: ErrCompression, Message: message, Cause: cause}
}

func NewCorruptionError(message string, cause error) *EngineError {
	return &EngineError{Kind: ErrCorruption, Message: message, Cause: cause}
}

func NewTimeoutError(message string, cause error) *EngineError {
	return &EngineError{Kind: ErrTimeout, Message: message, Cause: cause}
}

func NewToolError(message string, exitCode int, stderr string) *EngineError {
	return &EngineError{Kind: ErrTool, Message: message, ExitCode: exitCode, Stderr: stderr}
}

// KindOf returns the engine error kind of err, or "" when err is not an
// EngineError.
func KindOf(err error) ErrorKind {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}
