package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Kind groups errors by how a caller is expected to react to them.
type Kind string

const (
	KindInternal        Kind = "internal"
	KindConfiguration   Kind = "configuration"
	KindRetrieval       Kind = "retrieval"
	KindExternalService Kind = "external_service"
	KindWorkflowLimit   Kind = "workflow_limit"
)

// AppError wraps an underlying error with an HTTP status, a safe message and
// a classification used by the planner's retry and halt logic.
type AppError struct {
	Err       error
	Status    int
	Message   string
	Kind      Kind
	Retryable bool
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
		Kind:    KindInternal,
	}
}

// Configuration reports invalid parameters or missing credentials. It is
// always fatal and is expected before any run starts.
func Configuration(message string, args ...any) *AppError {
	return &AppError{
		Err:     fmt.Errorf(message, args...),
		Status:  http.StatusInternalServerError,
		Message: "configuration error",
		Kind:    KindConfiguration,
	}
}

// Retrieval wraps an embedding or vector index failure. It stays retryable
// when the cause was a transient provider error.
func Retrieval(err error, message string) *AppError {
	return &AppError{
		Err:       err,
		Status:    http.StatusBadGateway,
		Message:   message,
		Kind:      KindRetrieval,
		Retryable: IsRetryable(err),
	}
}

// External wraps a failure of a pricing, weather or model provider call.
func External(err error, service string, retryable bool) *AppError {
	return &AppError{
		Err:       err,
		Status:    http.StatusBadGateway,
		Message:   service + " call failed",
		Kind:      KindExternalService,
		Retryable: retryable,
	}
}

// WorkflowLimit signals that a run exceeded its step budget or its retry cap.
func WorkflowLimit(message string, args ...any) *AppError {
	return &AppError{
		Err:     fmt.Errorf(message, args...),
		Status:  http.StatusInternalServerError,
		Message: "workflow limit exceeded",
		Kind:    KindWorkflowLimit,
	}
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// KindOf returns the Kind of the outermost AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable reports whether err was classified as transient.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}
