package bootstrap

import (
	"context"
	"log/slog"

	"firebase.google.com/go/v4/auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/GregMSThompson/chart-renderer/internal/config"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

type Bootstrap struct {
	Log      *slog.Logger
	Registry *prometheus.Registry
	// Firebase is nil unless admin access through Firebase claims is enabled.
	Firebase *auth.Client
}

func Run(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	var err error
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)

	bs.Registry = prometheus.NewRegistry()
	bs.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.FirebaseAdmin {
		bs.Firebase, err = InitFirebase(ctx, cfg.FirebaseProjectID)
		if err != nil {
			return bs, err
		}
	}

	return bs, nil
}
