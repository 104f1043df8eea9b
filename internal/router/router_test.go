package router

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/handlers"
	"github.com/GregMSThompson/chart-renderer/internal/middleware"
	"github.com/GregMSThompson/chart-renderer/internal/response"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

type stubChartService struct {
	clientID string
}

func (s *stubChartService) Chart(_ context.Context, clientID string, _ url.Values) (dto.ChartImage, error) {
	s.clientID = clientID
	return dto.ChartImage{Data: []byte("png"), Cache: dto.CacheHit}, nil
}

func (s *stubChartService) Describe(context.Context, url.Values) (dto.ResolveResponse, error) {
	return dto.ResolveResponse{}, nil
}

type stubCacheService struct{}

func (stubCacheService) Stats(context.Context) (dto.CacheStats, error) { return dto.CacheStats{}, nil }
func (stubCacheService) Clear(context.Context) (dto.CacheClearResponse, error) {
	return dto.CacheClearResponse{}, nil
}
func (stubCacheService) Sweep(context.Context) (dto.CacheClearResponse, error) {
	return dto.CacheClearResponse{}, nil
}

func newDeps(chart *stubChartService) *handlers.Deps {
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))
	return &handlers.Deps{
		Log:             log,
		ResponseHandler: response.New(log),
		ChartSvc:        chart,
		CacheSvc:        stubCacheService{},
		Middleware:      middleware.NewMiddleware(nil, "secret"),
	}
}

func TestRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusAccepted) })
	r := NewRouter(newDeps(&stubChartService{}), Options{Metrics: metrics})

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/chart.png?c=USA", http.StatusOK},
		{http.MethodGet, "/chart/state", http.StatusOK},
		{http.MethodGet, "/cache", http.StatusUnauthorized},
		{http.MethodGet, "/metrics", http.StatusAccepted},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rr.Code)
			}
		})
	}
}

func TestTrustProxy(t *testing.T) {
	for _, trust := range []bool{false, true} {
		chart := &stubChartService{}
		r := NewRouter(newDeps(chart), Options{TrustProxy: trust})

		req := httptest.NewRequest(http.MethodGet, "/chart.png", nil)
		req.RemoteAddr = "10.0.0.1:4000"
		req.Header.Set("X-Real-IP", "198.51.100.9")
		r.ServeHTTP(httptest.NewRecorder(), req)

		want := "10.0.0.1"
		if trust {
			want = "198.51.100.9"
		}
		if chart.clientID != want {
			t.Fatalf("trust=%v: expected client %q, got %q", trust, want, chart.clientID)
		}
	}
}
