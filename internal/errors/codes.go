// Package errors defines the caller-facing error kinds shared by the note store,
// the embedding provider, the vector index and the HTTP layer.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error kind.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the note is absent or not owned by the caller.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeEmbeddingProvider indicates the embedding call failed or timed out.
	ErrCodeEmbeddingProvider ErrorCode = "EMBEDDING_PROVIDER"
	// ErrCodeVectorIndex indicates the vector index call failed or timed out.
	ErrCodeVectorIndex ErrorCode = "VECTOR_INDEX"
	// ErrCodeStoreUnavailable indicates the note store failed.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeIndexPending indicates the note was written but its vector is not in sync yet.
	ErrCodeIndexPending ErrorCode = "INDEX_PENDING"
)

// Context keys attached to provider and index errors.
const (
	ContextKeyStatus  = "status"
	ContextKeyTimeout = "timeout"
	ContextKeyNoteID  = "note_id"
)

// Error represents a structured error.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *Error) GetCode() ErrorCode {
	return e.Code
}

// Status returns the upstream HTTP status recorded on the error, or 0.
func (e *Error) Status() int {
	if v, ok := e.Context[ContextKeyStatus].(int); ok {
		return v
	}
	return 0
}

// Timeout reports whether the error was caused by a bounded wait expiring.
func (e *Error) Timeout() bool {
	if v, ok := e.Context[ContextKeyTimeout].(bool); ok && v {
		return true
	}
	return stderrors.Is(e.Cause, context.DeadlineExceeded)
}

// Retryable reports whether repeating the call may succeed.
// Timeouts, transport failures (no status), 429 and 5xx are retryable.
func (e *Error) Retryable() bool {
	switch e.Code {
	case ErrCodeEmbeddingProvider, ErrCodeVectorIndex, ErrCodeStoreUnavailable:
	default:
		return false
	}
	if e.Timeout() {
		return true
	}
	status := e.Status()
	return status == 0 || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: msg}
}

// InvalidArgumentf creates an invalid argument error with a formatted message.
func InvalidArgumentf(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *Error {
	return &Error{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// EmbeddingProvider creates an embedding provider error.
func EmbeddingProvider(msg string, cause error) *Error {
	return timeoutAware(&Error{Code: ErrCodeEmbeddingProvider, Message: msg, Cause: cause})
}

// VectorIndex creates a vector index error.
func VectorIndex(msg string, cause error) *Error {
	return timeoutAware(&Error{Code: ErrCodeVectorIndex, Message: msg, Cause: cause})
}

// StoreUnavailable creates a note store error.
func StoreUnavailable(msg string, cause error) *Error {
	return &Error{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

// IndexPending creates a partial success error for a note whose vector is out of sync.
func IndexPending(noteID string, cause error) *Error {
	e := &Error{Code: ErrCodeIndexPending, Message: "note saved but vector index update is pending", Cause: cause}
	return e.WithContext(ContextKeyNoteID, noteID)
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

func timeoutAware(e *Error) *Error {
	if stderrors.Is(e.Cause, context.DeadlineExceeded) {
		e.WithContext(ContextKeyTimeout, true)
	}
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if e, ok := As(err); ok {
		return e.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an *Error.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if e, ok := As(err); ok {
		return e.Code
	}
	return defaultCode
}
