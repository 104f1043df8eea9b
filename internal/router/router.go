package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/chart-renderer/internal/handlers"
	"github.com/GregMSThompson/chart-renderer/internal/middleware"
)

type Options struct {
	// TrustProxy derives the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

func NewRouter(deps *handlers.Deps, opts Options) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	if opts.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.NewLoggerMiddleware(deps.Log).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)

	hh := handlers.NewHealthHandlers(deps)
	ch := handlers.NewChartHandlers(deps)
	cah := handlers.NewCacheHandlers(deps)

	r.Get("/healthz", hh.Healthz)
	ch.ChartRoutes(r)
	r.Mount("/cache", cah.CacheRoutes())
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	return r
}
