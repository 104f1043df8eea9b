package queue

import "errors"

var (
	// ErrQueueFull is returned by Enqueue when MaxQueueSize items are already waiting.
	ErrQueueFull = errors.New("queue at capacity")

	// ErrQueueTimeout is delivered to an item that waited longer than QueueTimeout
	// before a concurrency slot became free.
	ErrQueueTimeout = errors.New("queue wait time exceeded")

	// ErrQueueClosed is returned once Shutdown has been called, and delivered to
	// items still waiting at that point.
	ErrQueueClosed = errors.New("queue is shut down")
)

// PanicError wraps a panic raised by an executed function.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return "execute panicked" }
