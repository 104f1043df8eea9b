package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GregMSThompson/chart-renderer/pkg/clock"
	"github.com/GregMSThompson/chart-renderer/pkg/helpers"
)

const ttl = time.Hour

func newCache(t *testing.T) (*artifactCache, *clock.Manual, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "charts")
	clk := clock.NewManual(time.Now())
	c, err := NewArtifactCache(dir, ttl, clk)
	require.NoError(t, err)
	return c, clk, dir
}

func digestFor(t *testing.T, v string) string {
	t.Helper()
	d, err := Key(map[string]any{"v": v})
	require.NoError(t, err)
	return d
}

func TestNewArtifactCache_RejectsZeroTTL(t *testing.T) {
	_, err := NewArtifactCache(t.TempDir(), 0, nil)
	assert.Error(t, err)
}

func TestCache_RoundTrip(t *testing.T) {
	c, _, _ := newCache(t)
	ctx := helpers.TestCtx()
	k := digestFor(t, "a")

	_, ok := c.Get(ctx, k)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, k, []byte("png-bytes")))
	got, ok := c.Get(ctx, k)
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes"), got)
}

func TestCache_ExpiresLazily(t *testing.T) {
	c, clk, dir := newCache(t)
	ctx := helpers.TestCtx()
	k := digestFor(t, "a")
	require.NoError(t, c.Put(ctx, k, []byte("x")))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Count)

	clk.Advance(ttl + time.Minute)
	_, ok := c.Get(ctx, k)
	assert.False(t, ok)

	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
	_, err = os.Stat(filepath.Join(dir, k+".png"))
	assert.True(t, os.IsNotExist(err))
}

func TestCache_OverwriteIsIdempotent(t *testing.T) {
	c, _, _ := newCache(t)
	ctx := helpers.TestCtx()
	k := digestFor(t, "a")

	require.NoError(t, c.Put(ctx, k, []byte("same")))
	require.NoError(t, c.Put(ctx, k, []byte("same")))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, int64(4), stats.TotalSize)
}

func TestCache_RejectsInvalidDigest(t *testing.T) {
	c, _, _ := newCache(t)
	ctx := helpers.TestCtx()

	assert.Error(t, c.Put(ctx, "../escape", []byte("x")))
	_, ok := c.Get(ctx, "../escape")
	assert.False(t, ok)
}

func TestCache_StatsClearSweep(t *testing.T) {
	c, clk, dir := newCache(t)
	ctx := helpers.TestCtx()

	old := digestFor(t, "old")
	require.NoError(t, c.Put(ctx, old, []byte("12345")))
	past := time.Now().Add(-2 * ttl)
	require.NoError(t, os.Chtimes(filepath.Join(dir, old+".png"), past, past))

	fresh := digestFor(t, "fresh")
	require.NoError(t, c.Put(ctx, fresh, []byte("123")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, int64(8), stats.TotalSize)
	require.NotNil(t, stats.Oldest)
	require.NotNil(t, stats.Newest)
	assert.True(t, stats.Oldest.Before(*stats.Newest))

	removed, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	clk.Advance(time.Minute)
	cleared, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.Nil(t, stats.Oldest)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err, "non-artifact files are left alone")
}

func TestCache_StatsOnMissingDirectory(t *testing.T) {
	c, _, dir := newCache(t)
	require.NoError(t, os.RemoveAll(dir))

	_, err := c.Stats(helpers.TestCtx())
	assert.Error(t, err)
}
