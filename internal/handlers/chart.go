package handlers

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/response"
)

type chartService interface {
	Chart(ctx context.Context, clientID string, raw url.Values) (dto.ChartImage, error)
	Describe(ctx context.Context, raw url.Values) (dto.ResolveResponse, error)
}

type chartHandlers struct {
	ResponseHandler response.ResponseHandler
	ChartSvc        chartService
}

func NewChartHandlers(deps *Deps) *chartHandlers {
	return &chartHandlers{
		ResponseHandler: deps.ResponseHandler,
		ChartSvc:        deps.ChartSvc,
	}
}

// ChartRoutes registers the public chart endpoints at the root of r.
func (h *chartHandlers) ChartRoutes(r chi.Router) {
	r.Get("/chart.png", h.GetChart)
	r.Get("/chart/state", h.GetChartState)
}

func (h *chartHandlers) GetChart(w http.ResponseWriter, r *http.Request) {
	img, err := h.ChartSvc.Chart(r.Context(), clientID(r), r.URL.Query())
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteImage(w, r, img)
}

func (h *chartHandlers) GetChartState(w http.ResponseWriter, r *http.Request) {
	out, err := h.ChartSvc.Describe(r.Context(), r.URL.Query())
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, out)
}

// clientID identifies the caller for throttling. RemoteAddr already holds the
// forwarded address when the RealIP middleware is installed.
func clientID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
