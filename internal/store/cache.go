package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/errs"
	"github.com/GregMSThompson/chart-renderer/pkg/clock"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

const (
	artifactExt = ".png"
	tempPrefix  = ".tmp-"
)

// artifactCache stores rendered charts as <digest>.png files. Entries expire
// lazily: Get removes a file whose mtime is older than the TTL. Sweep does
// the same for the whole directory and only bounds disk usage.
type artifactCache struct {
	dir   string
	ttl   time.Duration
	clock clock.Clock
}

func NewArtifactCache(dir string, ttl time.Duration, clk clock.Clock) (*artifactCache, error) {
	if ttl <= 0 {
		return nil, errs.NewValidationError("cache ttl must be > 0")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.NewStorageError("init", err)
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &artifactCache{dir: dir, ttl: ttl, clock: clk}, nil
}

func (c *artifactCache) path(digest string) string {
	return filepath.Join(c.dir, digest+artifactExt)
}

func (c *artifactCache) expired(mtime time.Time) bool {
	return c.clock.Now().Sub(mtime) > c.ttl
}

// Get returns the cached bytes for digest. Every failure is reported as a
// miss; I/O errors are logged.
func (c *artifactCache) Get(ctx context.Context, digest string) ([]byte, bool) {
	log := logger.FromContext(ctx)
	if !ValidDigest(digest) {
		return nil, false
	}
	p := c.path(digest)

	info, err := os.Stat(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("cache stat failed", "digest", digest, "error", err)
		}
		return nil, false
	}
	if c.expired(info.ModTime()) {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn("cache expiry delete failed", "digest", digest, "error", err)
		}
		return nil, false
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("cache read failed", "digest", digest, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Put writes data under digest. The file is written to a temporary name and
// renamed into place so readers never see a partial artifact.
func (c *artifactCache) Put(ctx context.Context, digest string, data []byte) error {
	if !ValidDigest(digest) {
		return errs.NewValidationError("invalid cache digest")
	}
	tmp := filepath.Join(c.dir, tempPrefix+uuid.New().String())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.NewStorageError("write", err)
	}
	if err := os.Rename(tmp, c.path(digest)); err != nil {
		_ = os.Remove(tmp)
		return errs.NewStorageError("write", err)
	}
	logger.FromContext(ctx).Debug("cache entry written", "digest", digest, "bytes", len(data))
	return nil
}

// entries lists the artifact files in the cache directory.
func (c *artifactCache) entries() ([]fs.FileInfo, error) {
	dirEntries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, err
	}
	out := make([]fs.FileInfo, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, artifactExt) || !ValidDigest(strings.TrimSuffix(name, artifactExt)) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func (c *artifactCache) Stats(ctx context.Context) (dto.CacheStats, error) {
	infos, err := c.entries()
	if err != nil {
		return dto.CacheStats{}, errs.NewStorageError("stats", err)
	}
	var stats dto.CacheStats
	for _, info := range infos {
		mtime := info.ModTime()
		stats.Count++
		stats.TotalSize += info.Size()
		if stats.Oldest == nil || mtime.Before(*stats.Oldest) {
			stats.Oldest = &mtime
		}
		if stats.Newest == nil || mtime.After(*stats.Newest) {
			stats.Newest = &mtime
		}
	}
	return stats, nil
}

// Clear deletes every artifact and returns how many were removed.
func (c *artifactCache) Clear(ctx context.Context) (int, error) {
	return c.remove(ctx, "clear", func(fs.FileInfo) bool { return true })
}

// Sweep deletes expired artifacts and returns how many were removed.
func (c *artifactCache) Sweep(ctx context.Context) (int, error) {
	return c.remove(ctx, "sweep", func(info fs.FileInfo) bool { return c.expired(info.ModTime()) })
}

func (c *artifactCache) remove(ctx context.Context, op string, match func(fs.FileInfo) bool) (int, error) {
	infos, err := c.entries()
	if err != nil {
		return 0, errs.NewStorageError(op, err)
	}
	removed := 0
	for _, info := range infos {
		if !match(info) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, info.Name())); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.FromContext(ctx).Warn("cache delete failed", "operation", op, "file", info.Name(), "error", err)
			}
			continue
		}
		removed++
	}
	return removed, nil
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (c *artifactCache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log := logger.FromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.Sweep(ctx)
			if err != nil {
				log.Warn("cache sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("cache sweep removed expired entries", "removed", n)
			}
		}
	}
}
