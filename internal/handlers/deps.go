package handlers

import (
	"log/slog"

	"github.com/GregMSThompson/chart-renderer/internal/middleware"
	"github.com/GregMSThompson/chart-renderer/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	ChartSvc        chartService
	CacheSvc        cacheService
	Middleware      *middleware.Middleware
}
