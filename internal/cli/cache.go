package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/GregMSThompson/chart-renderer/internal/config"
	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/services"
	"github.com/GregMSThompson/chart-renderer/internal/store"
	"github.com/GregMSThompson/chart-renderer/pkg/clock"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

type cacheOptions struct {
	dir string
	ttl time.Duration
}

// NewCacheCommand operates on the cache directory directly, for use on the
// host running the server.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &cacheOptions{}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clean the chart cache directory",
	}
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "cache directory (default from CACHE_DIR / config)")
	cmd.PersistentFlags().DurationVar(&opts.ttl, "ttl", 0, "entry TTL (default from CACHE_TTL / config)")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show entry count, total size and age range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, err := openCache(cmd, opts)
			if err != nil {
				return err
			}
			stats, err := svc.Stats(ctx)
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "entries: %d\nbytes:   %d\n", stats.Count, stats.TotalSize)
			if stats.Oldest != nil {
				fmt.Fprintf(w, "oldest:  %s\nnewest:  %s\n", stats.Oldest.Format(time.RFC3339), stats.Newest.Format(time.RFC3339))
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete every cached chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, err := openCache(cmd, opts)
			if err != nil {
				return err
			}
			out, err := svc.Clear(ctx)
			if err != nil {
				return err
			}
			return printCleared(cmd, rootOpts, out.Cleared)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete cached charts older than the TTL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, ctx, err := openCache(cmd, opts)
			if err != nil {
				return err
			}
			out, err := svc.Sweep(ctx)
			if err != nil {
				return err
			}
			return printCleared(cmd, rootOpts, out.Cleared)
		},
	})

	return cmd
}

type cacheAdmin interface {
	Stats(ctx context.Context) (dto.CacheStats, error)
	Clear(ctx context.Context) (dto.CacheClearResponse, error)
	Sweep(ctx context.Context) (dto.CacheClearResponse, error)
}

func openCache(cmd *cobra.Command, opts *cacheOptions) (cacheAdmin, context.Context, error) {
	dir, ttl := opts.dir, opts.ttl
	if dir == "" || ttl == 0 {
		cfg, err := config.New()
		if err != nil {
			return nil, nil, err
		}
		if dir == "" {
			dir = cfg.CacheDir
		}
		if ttl == 0 {
			ttl = cfg.CacheTTL
		}
	}

	c, err := store.NewArtifactCache(dir, ttl, clock.System{})
	if err != nil {
		return nil, nil, err
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	return services.NewCacheService(c), logger.ToContext(context.Background(), log), nil
}

func printCleared(cmd *cobra.Command, rootOpts *RootOptions, n int) error {
	if rootOpts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), map[string]int{"cleared": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
	return nil
}
