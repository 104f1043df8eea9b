package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/chart-renderer/pkg/clock"
)

var epoch = time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)

func newThrottle(t *testing.T, max int, window time.Duration) (*Throttle, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	th, err := New(clk, Config{MaxRequests: max, Window: window})
	require.NoError(t, err)
	return th, clk
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero_max", Config{MaxRequests: 0, Window: time.Second}},
		{"negative_max", Config{MaxRequests: -1, Window: time.Second}},
		{"zero_window", Config{MaxRequests: 10, Window: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := New(clock.NewManual(epoch), tt.cfg)
			assert.Error(t, err)
			assert.Nil(t, th)
		})
	}
}

func TestCheck_AllowsExactlyMaxRequestsPerWindow(t *testing.T) {
	th, clk := newThrottle(t, 5, time.Minute)

	for i := 0; i < 5; i++ {
		require.True(t, th.Check("1.2.3.4"), "request %d should be allowed", i+1)
	}
	assert.False(t, th.Check("1.2.3.4"), "6th request should be denied")
	assert.Equal(t, 0, th.Remaining("1.2.3.4"))

	clk.Advance(time.Minute + time.Millisecond)
	assert.True(t, th.Check("1.2.3.4"), "new window should allow again")
	assert.Equal(t, 4, th.Remaining("1.2.3.4"))
}

func TestCheck_WindowEndIsInclusive(t *testing.T) {
	th, clk := newThrottle(t, 1, time.Minute)

	require.True(t, th.Check("a"))
	clk.Advance(time.Minute)
	assert.False(t, th.Check("a"), "window resets only once now is past windowResetAt")

	clk.Advance(time.Nanosecond)
	assert.True(t, th.Check("a"))
}

func TestCheck_IdentifiersAreIndependent(t *testing.T) {
	th, _ := newThrottle(t, 1, time.Minute)

	assert.True(t, th.Check("a"))
	assert.False(t, th.Check("a"))
	assert.True(t, th.Check("b"))
}

func TestCheck_BoundaryBurst(t *testing.T) {
	th, clk := newThrottle(t, 3, time.Minute)

	require.True(t, th.Check("burst"))
	clk.Advance(59 * time.Second)
	require.True(t, th.Check("burst"))
	require.True(t, th.Check("burst"))

	clk.Advance(2 * time.Second)
	allowed := 0
	for i := 0; i < 3; i++ {
		if th.Check("burst") {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed, "fixed window permits a full allowance right after rollover")
}

func TestRemaining_UnknownIdentifier(t *testing.T) {
	th, _ := newThrottle(t, 7, time.Minute)
	assert.Equal(t, 7, th.Remaining("never-seen"))
}

func TestRetryAfter(t *testing.T) {
	th, clk := newThrottle(t, 1, time.Minute)

	assert.Zero(t, th.RetryAfter("a"))
	th.Check("a")
	clk.Advance(20 * time.Second)
	assert.Equal(t, 40*time.Second, th.RetryAfter("a"))
}

func TestSweep_RemovesExpiredEntries(t *testing.T) {
	th, clk := newThrottle(t, 10, time.Minute)

	th.Check("old")
	clk.Advance(30 * time.Second)
	th.Check("new")
	require.Equal(t, 2, th.Len())

	clk.Advance(31 * time.Second)
	assert.Equal(t, 1, th.Sweep())
	assert.Equal(t, 1, th.Len())
	assert.Equal(t, 9, th.Remaining("new"))
}

func TestStartStop(t *testing.T) {
	clk := clock.NewManual(epoch)
	th, err := New(clk, Config{MaxRequests: 1, Window: time.Millisecond, SweepInterval: time.Millisecond})
	require.NoError(t, err)

	th.Check("a")
	clk.Advance(time.Second)

	th.Start(context.Background())
	defer th.Stop()

	assert.Eventually(t, func() bool { return th.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStart_DisabledSweep(t *testing.T) {
	th, _ := newThrottle(t, 1, time.Minute)
	th.Start(context.Background())
	th.Stop()
	th.Stop()
}
