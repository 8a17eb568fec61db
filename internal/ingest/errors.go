package ingest

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a specific ingestion failure class.
type ErrorCode string

const (
	// Document-level failures. These abort the whole request.
	ErrPasswordRequired  ErrorCode = "PASSWORD_REQUIRED"
	ErrIncorrectPassword ErrorCode = "INCORRECT_PASSWORD"
	ErrEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrNoExtractableText ErrorCode = "NO_EXTRACTABLE_TEXT"
	ErrInputRejected     ErrorCode = "INPUT_REJECTED"

	// Per page/chunk failures. Logged and skipped; the pipeline continues
	// with whatever pages succeeded.
	ErrExternalCallFailed ErrorCode = "EXTERNAL_CALL_FAILED"
	ErrSchemaViolation    ErrorCode = "SCHEMA_VIOLATION"
)

// IngestError is a structured error for ingestion failures.
type IngestError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *IngestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *IngestError) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, message string, cause error) *IngestError {
	return &IngestError{Code: code, Message: message, Cause: cause}
}

// CodeOf returns the ErrorCode carried by err, or "" for errors outside the
// ingestion taxonomy.
func CodeOf(err error) ErrorCode {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Code
	}
	return ""
}
