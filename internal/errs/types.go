package errs

import (
	"fmt"
	"time"
)

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

type NotFoundError struct {
	ErrorMessage
}

type ValidationError struct {
	ErrorMessage
}

// ThrottledError is returned when a client exceeded its request window.
type ThrottledError struct {
	ErrorMessage
	RetryAfter time.Duration
}

// QueueFullError is returned when the render queue cannot accept more work.
type QueueFullError struct {
	ErrorMessage
	RetryAfter time.Duration
}

// QueueTimeoutError is returned when a render waited too long for a slot.
type QueueTimeoutError struct {
	ErrorMessage
	RetryAfter time.Duration
}

// ExternalServiceError wraps a failure of a collaborator outside this process.
type ExternalServiceError struct {
	ErrorMessage
	Service   string
	Transient bool
	Err       error
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// StorageError wraps a failed cache directory operation.
type StorageError struct {
	ErrorMessage
	Operation string
	Err       error
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewThrottledError(retryAfter time.Duration) *ThrottledError {
	return &ThrottledError{
		ErrorMessage: ErrorMessage{Message: "too many requests"},
		RetryAfter:   retryAfter,
	}
}

func NewQueueFullError(retryAfter time.Duration) *QueueFullError {
	return &QueueFullError{
		ErrorMessage: ErrorMessage{Message: "render queue is full, try again shortly"},
		RetryAfter:   retryAfter,
	}
}

func NewQueueTimeoutError(retryAfter time.Duration) *QueueTimeoutError {
	return &QueueTimeoutError{
		ErrorMessage: ErrorMessage{Message: "render queue wait time exceeded, try again shortly"},
		RetryAfter:   retryAfter,
	}
}

func NewExternalServiceError(service string, transient bool, err error) *ExternalServiceError {
	return &ExternalServiceError{
		ErrorMessage: ErrorMessage{Message: fmt.Sprintf("%s: %v", service, err)},
		Service:      service,
		Transient:    transient,
		Err:          err,
	}
}

func NewStorageError(operation string, err error) *StorageError {
	return &StorageError{
		ErrorMessage: ErrorMessage{Message: fmt.Sprintf("cache %s: %v", operation, err)},
		Operation:    operation,
		Err:          err,
	}
}
