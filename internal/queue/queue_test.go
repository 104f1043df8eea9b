package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/chart-renderer/pkg/clock"
)

var epoch = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

func newQueue(t *testing.T, cfg Config) (*Queue[int], *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	q, err := New[int](clk, cfg)
	require.NoError(t, err)
	return q, clk
}

// blocker returns an execute func that signals when started and waits for release.
func blocker(value int, started chan<- struct{}, release <-chan struct{}) func(context.Context) (int, error) {
	return func(context.Context) (int, error) {
		if started != nil {
			started <- struct{}{}
		}
		<-release
		return value, nil
	}
}

type outcome struct {
	value int
	err   error
}

func enqueueAsync(q *Queue[int], fn func(context.Context) (int, error)) <-chan outcome {
	ch := make(chan outcome, 1)
	go func() {
		v, err := q.Enqueue(context.Background(), fn)
		ch <- outcome{v, err}
	}()
	return ch
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero_concurrency", Config{MaxConcurrent: 0, MaxQueueSize: 1, QueueTimeout: time.Second}},
		{"zero_queue_size", Config{MaxConcurrent: 1, MaxQueueSize: 0, QueueTimeout: time.Second}},
		{"zero_timeout", Config{MaxConcurrent: 1, MaxQueueSize: 1, QueueTimeout: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := New[int](clock.NewManual(epoch), tt.cfg)
			assert.Error(t, err)
			assert.Nil(t, q)
		})
	}
}

func TestEnqueue_ReturnsResult(t *testing.T) {
	q, _ := newQueue(t, Config{MaxConcurrent: 2, MaxQueueSize: 2, QueueTimeout: time.Second})

	v, err := q.Enqueue(context.Background(), func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, uint64(1), q.Stats().Completed)
}

func TestEnqueue_ErrorOnlyAffectsItsCaller(t *testing.T) {
	q, _ := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: 4, QueueTimeout: time.Second})
	boom := errors.New("boom")

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	first := enqueueAsync(q, func(context.Context) (int, error) {
		started <- struct{}{}
		<-release
		return 0, boom
	})
	<-started
	second := enqueueAsync(q, func(context.Context) (int, error) { return 7, nil })
	require.Eventually(t, func() bool { return q.Stats().Queued == 1 }, time.Second, time.Millisecond)

	close(release)
	got := <-first
	assert.ErrorIs(t, got.err, boom)
	got = <-second
	require.NoError(t, got.err)
	assert.Equal(t, 7, got.value)
}

func TestEnqueue_PanicIsIsolated(t *testing.T) {
	q, _ := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: 1, QueueTimeout: time.Second})

	_, err := q.Enqueue(context.Background(), func(context.Context) (int, error) { panic("render exploded") })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "render exploded", pe.Value)

	v, err := q.Enqueue(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Zero(t, q.Stats().Active)
}

func TestEnqueue_ConcurrencyNeverExceedsLimit(t *testing.T) {
	const maxConcurrent = 3
	q, _ := newQueue(t, Config{MaxConcurrent: maxConcurrent, MaxQueueSize: 100, QueueTimeout: time.Hour})

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Enqueue(context.Background(), func(context.Context) (int, error) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
				return 0, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(maxConcurrent))
	assert.Equal(t, uint64(30), q.Stats().Completed)
}

func TestEnqueue_RejectsBeyondQueueSize(t *testing.T) {
	const maxQueueSize = 3
	q, _ := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: maxQueueSize, QueueTimeout: time.Hour})

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	running := enqueueAsync(q, blocker(0, started, release))
	<-started

	const total = 5
	var waiting []<-chan outcome
	rejected := 0
	for i := 0; i < total; i++ {
		if q.Stats().Queued >= maxQueueSize {
			_, err := q.Enqueue(context.Background(), blocker(i, nil, release))
			require.ErrorIs(t, err, ErrQueueFull)
			rejected++
			continue
		}
		waiting = append(waiting, enqueueAsync(q, blocker(i, nil, release)))
		want := len(waiting)
		require.Eventually(t, func() bool { return q.Stats().Queued == want }, time.Second, time.Millisecond)
	}

	assert.Equal(t, total-maxQueueSize, rejected)
	assert.Equal(t, uint64(total-maxQueueSize), q.Stats().Rejected)

	close(release)
	require.NoError(t, (<-running).err)
	for _, ch := range waiting {
		require.NoError(t, (<-ch).err)
	}
}

func TestEnqueue_FIFOOrder(t *testing.T) {
	q, _ := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: 10, QueueTimeout: time.Hour})

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	head := enqueueAsync(q, blocker(0, started, release))
	<-started

	var mu sync.Mutex
	var order []int
	var waiting []<-chan outcome
	for i := 1; i <= 4; i++ {
		i := i
		waiting = append(waiting, enqueueAsync(q, func(context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		}))
		require.Eventually(t, func() bool { return q.Stats().Queued == i }, time.Second, time.Millisecond)
	}

	close(release)
	<-head
	for _, ch := range waiting {
		<-ch
	}
	assert.Equal(t, []int{1, 2, 3, 4}, order)
}

func TestEnqueue_TimeoutCheckedAtDequeue(t *testing.T) {
	q, clk := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: 10 * time.Second})

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	head := enqueueAsync(q, blocker(0, started, release))
	<-started

	var ran atomic.Bool
	stale := enqueueAsync(q, func(context.Context) (int, error) {
		ran.Store(true)
		return 1, nil
	})
	require.Eventually(t, func() bool { return q.Stats().Queued == 1 }, time.Second, time.Millisecond)

	clk.Advance(11 * time.Second)
	assert.Equal(t, 1, q.Stats().Queued, "expired items are only examined when a slot frees")

	close(release)
	require.NoError(t, (<-head).err)
	got := <-stale
	assert.ErrorIs(t, got.err, ErrQueueTimeout)
	assert.False(t, ran.Load(), "timed out item must not execute")

	st := q.Stats()
	assert.Equal(t, uint64(1), st.TimedOut)
	assert.Zero(t, st.Active)
}

func TestEnqueue_TimedOutItemDoesNotConsumeSlot(t *testing.T) {
	q, clk := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: 10 * time.Second})

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	head := enqueueAsync(q, blocker(0, started, release))
	<-started

	stale := enqueueAsync(q, blocker(1, nil, release))
	require.Eventually(t, func() bool { return q.Stats().Queued == 1 }, time.Second, time.Millisecond)
	clk.Advance(11 * time.Second)
	fresh := enqueueAsync(q, func(context.Context) (int, error) { return 2, nil })
	require.Eventually(t, func() bool { return q.Stats().Queued == 2 }, time.Second, time.Millisecond)

	close(release)
	<-head
	assert.ErrorIs(t, (<-stale).err, ErrQueueTimeout)
	got := <-fresh
	require.NoError(t, got.err)
	assert.Equal(t, 2, got.value)
}

func TestEnqueue_CallerCancellationLeavesItemQueued(t *testing.T) {
	q, _ := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: time.Hour})

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	head := enqueueAsync(q, blocker(0, started, release))
	<-started

	var ran atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(ctx, func(context.Context) (int, error) {
			ran.Store(true)
			return 0, nil
		})
		errCh <- err
	}()
	require.Eventually(t, func() bool { return q.Stats().Queued == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	<-head
	assert.Eventually(t, ran.Load, time.Second, time.Millisecond)
}

func TestShutdown_RejectsWaitingAndNewWork(t *testing.T) {
	q, _ := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: 5, QueueTimeout: time.Hour})

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	head := enqueueAsync(q, blocker(9, started, release))
	<-started
	waiting := enqueueAsync(q, blocker(1, nil, release))
	require.Eventually(t, func() bool { return q.Stats().Queued == 1 }, time.Second, time.Millisecond)

	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- q.Shutdown(context.Background()) }()

	assert.ErrorIs(t, (<-waiting).err, ErrQueueClosed)
	_, err := q.Enqueue(context.Background(), blocker(2, nil, release))
	assert.ErrorIs(t, err, ErrQueueClosed)

	close(release)
	got := <-head
	require.NoError(t, got.err)
	assert.Equal(t, 9, got.value)
	require.NoError(t, <-shutdownErr)
}

func TestShutdown_ContextExpires(t *testing.T) {
	q, _ := newQueue(t, Config{MaxConcurrent: 1, MaxQueueSize: 1, QueueTimeout: time.Hour})

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{}, 1)
	enqueueAsync(q, blocker(0, started, release))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Shutdown(ctx), context.DeadlineExceeded)
}
