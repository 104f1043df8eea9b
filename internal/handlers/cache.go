package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/middleware"
	"github.com/GregMSThompson/chart-renderer/internal/response"
)

type cacheService interface {
	Stats(ctx context.Context) (dto.CacheStats, error)
	Clear(ctx context.Context) (dto.CacheClearResponse, error)
	Sweep(ctx context.Context) (dto.CacheClearResponse, error)
}

type cacheHandlers struct {
	ResponseHandler response.ResponseHandler
	CacheSvc        cacheService
	Middleware      *middleware.Middleware
}

func NewCacheHandlers(deps *Deps) *cacheHandlers {
	return &cacheHandlers{
		ResponseHandler: deps.ResponseHandler,
		CacheSvc:        deps.CacheSvc,
		Middleware:      deps.Middleware,
	}
}

func (h *cacheHandlers) CacheRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.Middleware.AdminOnly)
	r.Get("/", h.GetStats)
	r.Delete("/", h.Clear)
	r.Post("/sweep", h.Sweep)
	return r
}

func (h *cacheHandlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.CacheSvc.Stats(r.Context())
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, stats)
}

func (h *cacheHandlers) Clear(w http.ResponseWriter, r *http.Request) {
	out, err := h.CacheSvc.Clear(r.Context())
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, out)
}

func (h *cacheHandlers) Sweep(w http.ResponseWriter, r *http.Request) {
	out, err := h.CacheSvc.Sweep(r.Context())
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, out)
}
