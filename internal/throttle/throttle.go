// Package throttle implements a per-client fixed-window request counter.
//
// Each identifier owns a window that starts on its first request (not aligned
// to the epoch). Inside a window at most MaxRequests checks succeed; the first
// check after the window has passed opens a new one. Because windows reset
// wholesale, a client can spend its full allowance at the end of one window and
// again at the start of the next, so the burst at a boundary is up to twice
// MaxRequests.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GregMSThompson/chart-renderer/pkg/clock"
)

type Config struct {
	MaxRequests   int
	Window        time.Duration
	SweepInterval time.Duration
}

type entry struct {
	count         int
	windowResetAt time.Time
}

type Throttle struct {
	// immutable
	clock         clock.Clock
	maxRequests   int
	window        time.Duration
	sweepInterval time.Duration

	mu      sync.Mutex
	entries map[string]*entry

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(clk clock.Clock, cfg Config) (*Throttle, error) {
	if cfg.MaxRequests <= 0 {
		return nil, fmt.Errorf("max requests must be > 0, got: %d", cfg.MaxRequests)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("window must be > 0, got: %s", cfg.Window)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Throttle{
		clock:         clk,
		maxRequests:   cfg.MaxRequests,
		window:        cfg.Window,
		sweepInterval: cfg.SweepInterval,
		entries:       make(map[string]*entry),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// Check records one request for identifier and reports whether it is allowed.
func (t *Throttle) Check(identifier string) bool {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[identifier]
	if !ok || now.After(e.windowResetAt) {
		t.entries[identifier] = &entry{count: 1, windowResetAt: now.Add(t.window)}
		return true
	}
	if e.count >= t.maxRequests {
		return false
	}
	e.count++
	return true
}

// Remaining returns how many more checks identifier may pass in its current window.
func (t *Throttle) Remaining(identifier string) int {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[identifier]
	if !ok || now.After(e.windowResetAt) {
		return t.maxRequests
	}
	if e.count >= t.maxRequests {
		return 0
	}
	return t.maxRequests - e.count
}

// RetryAfter returns how long identifier has to wait before its window resets.
// Zero means a check would start a fresh window right now.
func (t *Throttle) RetryAfter(identifier string) time.Duration {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[identifier]
	if !ok || now.After(e.windowResetAt) {
		return 0
	}
	return e.windowResetAt.Sub(now)
}

// Sweep drops every entry whose window has expired and returns the number removed.
func (t *Throttle) Sweep() int {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, e := range t.entries {
		if now.After(e.windowResetAt) {
			delete(t.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identifiers.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Start runs the periodic sweep until ctx is cancelled or Stop is called.
// A zero sweep interval disables the background sweep.
func (t *Throttle) Start(ctx context.Context) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	if t.sweepInterval <= 0 {
		close(t.done)
		return
	}
	go func() {
		defer close(t.done)
		ticker := time.NewTicker(t.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stop:
				return
			case <-ticker.C:
				t.Sweep()
			}
		}
	}()
}

// Stop halts the background sweep started by Start and waits for it to exit.
func (t *Throttle) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	if t.started.Load() {
		<-t.done
	}
}
