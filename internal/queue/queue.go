// Package queue is a bounded-concurrency FIFO admission controller.
//
// At most MaxConcurrent functions run at once. Further work waits in FIFO order,
// up to MaxQueueSize waiting items; beyond that Enqueue fails immediately rather
// than blocking. Wait time is only checked when an item reaches the head of the
// queue during a drain, so an item can sit past its deadline while nothing
// frees up; a full queue is the backpressure signal in that case.
//
// Work that has been granted a slot always runs to completion. Its context is
// detached from the caller's cancellation.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GregMSThompson/chart-renderer/pkg/clock"
)

type Config struct {
	MaxConcurrent int
	MaxQueueSize  int
	QueueTimeout  time.Duration
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Active    int
	Queued    int
	Rejected  uint64
	TimedOut  uint64
	Completed uint64
}

type result[T any] struct {
	value T
	err   error
}

type item[T any] struct {
	ctx        context.Context
	execute    func(context.Context) (T, error)
	done       chan result[T]
	enqueuedAt time.Time
}

type Queue[T any] struct {
	clock         clock.Clock
	maxConcurrent int
	maxQueueSize  int
	queueTimeout  time.Duration

	mu        sync.Mutex
	items     []*item[T]
	active    int
	closed    bool
	rejected  uint64
	timedOut  uint64
	completed uint64

	inflight sync.WaitGroup
}

func New[T any](clk clock.Clock, cfg Config) (*Queue[T], error) {
	if cfg.MaxConcurrent <= 0 {
		return nil, fmt.Errorf("max concurrent must be > 0, got: %d", cfg.MaxConcurrent)
	}
	if cfg.MaxQueueSize <= 0 {
		return nil, fmt.Errorf("max queue size must be > 0, got: %d", cfg.MaxQueueSize)
	}
	if cfg.QueueTimeout <= 0 {
		return nil, fmt.Errorf("queue timeout must be > 0, got: %s", cfg.QueueTimeout)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Queue[T]{
		clock:         clk,
		maxConcurrent: cfg.MaxConcurrent,
		maxQueueSize:  cfg.MaxQueueSize,
		queueTimeout:  cfg.QueueTimeout,
		items:         make([]*item[T], 0, cfg.MaxQueueSize),
	}, nil
}

// Enqueue admits execute and blocks until it has run or been rejected.
//
// It returns ErrQueueFull without waiting when the queue is saturated. If ctx
// is cancelled while the item is still waiting, Enqueue returns ctx.Err() but
// the item keeps its place; its result is discarded.
func (q *Queue[T]) Enqueue(ctx context.Context, execute func(context.Context) (T, error)) (T, error) {
	var zero T

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return zero, ErrQueueClosed
	}
	if len(q.items) >= q.maxQueueSize {
		q.rejected++
		q.mu.Unlock()
		return zero, ErrQueueFull
	}
	it := &item[T]{
		ctx:        context.WithoutCancel(ctx),
		execute:    execute,
		done:       make(chan result[T], 1),
		enqueuedAt: q.clock.Now(),
	}
	q.items = append(q.items, it)
	q.drainLocked()
	q.mu.Unlock()

	select {
	case res := <-it.done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// drainLocked starts waiting items while slots are free. Callers hold q.mu.
func (q *Queue[T]) drainLocked() {
	for q.active < q.maxConcurrent && len(q.items) > 0 {
		it := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]

		if q.clock.Now().Sub(it.enqueuedAt) > q.queueTimeout {
			q.timedOut++
			it.done <- result[T]{err: ErrQueueTimeout}
			continue
		}

		q.active++
		q.inflight.Add(1)
		go q.run(it)
	}
}

func (q *Queue[T]) run(it *item[T]) {
	defer q.inflight.Done()

	value, err := q.execute(it)

	q.mu.Lock()
	q.active--
	q.completed++
	q.drainLocked()
	q.mu.Unlock()

	it.done <- result[T]{value: value, err: err}
}

// execute isolates a panic to the item that raised it.
func (q *Queue[T]) execute(it *item[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return it.execute(it.ctx)
}

// Stats returns current counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Active:    q.active,
		Queued:    len(q.items),
		Rejected:  q.rejected,
		TimedOut:  q.timedOut,
		Completed: q.completed,
	}
}

// Shutdown stops admission, rejects everything still waiting with
// ErrQueueClosed and waits for running items to finish or ctx to expire.
func (q *Queue[T]) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	waiting := q.items
	q.items = nil
	q.mu.Unlock()

	for _, it := range waiting {
		it.done <- result[T]{err: ErrQueueClosed}
	}

	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
