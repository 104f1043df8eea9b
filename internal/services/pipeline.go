package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/GregMSThompson/chart-renderer/internal/chartstate"
	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/errs"
	"github.com/GregMSThompson/chart-renderer/internal/metrics"
	"github.com/GregMSThompson/chart-renderer/internal/queue"
	"github.com/GregMSThompson/chart-renderer/internal/render"
	"github.com/GregMSThompson/chart-renderer/internal/store"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

const (
	stageFetch  = "fetch"
	stageRender = "render"
)

type chartThrottle interface {
	Check(id string) bool
	RetryAfter(id string) time.Duration
}

type chartCache interface {
	Get(ctx context.Context, digest string) ([]byte, bool)
	Put(ctx context.Context, digest string, data []byte) error
}

type renderQueue interface {
	Enqueue(ctx context.Context, execute func(context.Context) (dto.ChartImage, error)) (dto.ChartImage, error)
}

type seriesFetcher interface {
	Fetch(ctx context.Context, state chartstate.State) (dto.RawSeries, error)
}

type chartRenderer interface {
	Render(ctx context.Context, state chartstate.State, data dto.RawSeries, opts render.Options) ([]byte, error)
}

type PipelineDeps struct {
	Throttle chartThrottle
	Resolver *chartstate.Resolver
	Cache    chartCache
	Queue    renderQueue
	Fetcher  seriesFetcher
	Renderer chartRenderer
	Metrics  *metrics.Metrics
}

type PipelineConfig struct {
	// BusyRetryAfter is the Retry-After hint sent when the queue rejects work.
	BusyRetryAfter time.Duration
	// Dedupe collapses concurrent renders of the same digest into one.
	Dedupe bool
}

type pipelineService struct {
	throttle   chartThrottle
	resolver   *chartstate.Resolver
	cache      chartCache
	queue      renderQueue
	fetcher    seriesFetcher
	renderer   chartRenderer
	metrics    *metrics.Metrics
	retryAfter time.Duration

	group  *singleflight.Group
	writes sync.WaitGroup
}

func NewPipelineService(deps PipelineDeps, cfg PipelineConfig) *pipelineService {
	s := &pipelineService{
		throttle:   deps.Throttle,
		resolver:   deps.Resolver,
		cache:      deps.Cache,
		queue:      deps.Queue,
		fetcher:    deps.Fetcher,
		renderer:   deps.Renderer,
		metrics:    deps.Metrics,
		retryAfter: cfg.BusyRetryAfter,
	}
	if cfg.Dedupe {
		s.group = &singleflight.Group{}
	}
	return s
}

// Chart runs one request through the pipeline: throttle, resolve, cache
// lookup and, on a miss, a queued fetch and render.
func (s *pipelineService) Chart(ctx context.Context, clientID string, raw url.Values) (dto.ChartImage, error) {
	if !s.throttle.Check(clientID) {
		s.metrics.Request(metrics.ResultThrottled)
		return dto.ChartImage{}, errs.NewThrottledError(s.throttle.RetryAfter(clientID))
	}

	res := s.resolver.Resolve(ctx, raw)
	s.metrics.ResolverPasses(res.Passes)
	if logger.IsDebugEnabled(ctx) {
		logger.FromContext(ctx).Debug("chart state resolved",
			"canonical", s.resolver.Registry().Encode(res.State).Encode(),
			"changes", len(res.Log),
			"passes", res.Passes)
	}
	opts := render.ParseOptions(raw)

	digest, err := chartDigest(res.State, opts)
	if err != nil {
		s.metrics.Request(metrics.ResultError)
		return dto.ChartImage{}, err
	}
	log, ctx := logger.With(ctx, "digest", digest)

	if data, ok := s.cache.Get(ctx, digest); ok {
		s.metrics.Request(metrics.ResultHit)
		return dto.ChartImage{Data: data, Digest: digest, Cache: dto.CacheHit}, nil
	}

	img, err := s.renderOnce(ctx, digest, res.State, opts)
	if err != nil {
		return dto.ChartImage{}, s.admissionError(ctx, err)
	}
	img.Digest = digest
	img.Cache = dto.CacheMiss

	if img.Placeholder {
		s.metrics.Request(metrics.ResultPlaceholder)
	} else {
		s.metrics.Request(metrics.ResultMiss)
	}
	log.Debug("chart rendered", "bytes", len(img.Data), "placeholder", img.Placeholder)
	return img, nil
}

// renderOnce renders through the queue, sharing the result between
// concurrent callers of the same digest when dedupe is on. A shared render
// is not tied to any one caller's cancellation; each caller stops waiting on
// its own context.
func (s *pipelineService) renderOnce(ctx context.Context, digest string, state chartstate.State, opts render.Options) (dto.ChartImage, error) {
	if s.group == nil {
		return s.renderAndStore(ctx, digest, state, opts)
	}
	flight := context.WithoutCancel(ctx)
	ch := s.group.DoChan(digest, func() (any, error) {
		return s.renderAndStore(flight, digest, state, opts)
	})
	select {
	case res := <-ch:
		if res.Shared {
			logger.FromContext(ctx).Debug("render shared with concurrent request")
		}
		img, _ := res.Val.(dto.ChartImage)
		return img, res.Err
	case <-ctx.Done():
		return dto.ChartImage{}, ctx.Err()
	}
}

func (s *pipelineService) renderAndStore(ctx context.Context, digest string, state chartstate.State, opts render.Options) (dto.ChartImage, error) {
	img, err := s.queue.Enqueue(ctx, func(ctx context.Context) (dto.ChartImage, error) {
		return s.produce(ctx, state, opts)
	})
	if err != nil {
		return dto.ChartImage{}, err
	}
	if !img.Placeholder {
		s.storeAsync(ctx, digest, img.Data)
	}
	return img, nil
}

// produce fetches and draws the chart. Failures in either step degrade to a
// placeholder image instead of an error.
func (s *pipelineService) produce(ctx context.Context, state chartstate.State, opts render.Options) (dto.ChartImage, error) {
	start := time.Now()
	data, err := s.fetcher.Fetch(ctx, state)
	s.metrics.Fetch(time.Since(start))
	if err != nil {
		return s.placeholder(ctx, stageFetch, state, opts, err)
	}

	start = time.Now()
	png, err := s.renderer.Render(ctx, state, data, opts)
	s.metrics.Render(time.Since(start))
	if err != nil {
		return s.placeholder(ctx, stageRender, state, opts, err)
	}
	return dto.ChartImage{Data: png}, nil
}

func (s *pipelineService) placeholder(ctx context.Context, stage string, state chartstate.State, opts render.Options, cause error) (dto.ChartImage, error) {
	logger.FromContext(ctx).Warn("serving placeholder chart", "stage", stage, "error", cause)
	s.metrics.Placeholder(stage)

	png, err := render.Placeholder(opts, state.Bool(chartstate.FieldDarkMode), render.PlaceholderMessage)
	if err != nil {
		return dto.ChartImage{}, fmt.Errorf("placeholder after %s failure: %w", stage, err)
	}
	return dto.ChartImage{Data: png, Placeholder: true}, nil
}

// storeAsync writes the artifact in the background. Failures are logged and
// never reach the response.
func (s *pipelineService) storeAsync(ctx context.Context, digest string, data []byte) {
	ctx = context.WithoutCancel(ctx)
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		log := logger.FromContext(ctx)
		defer func() {
			if r := recover(); r != nil {
				s.metrics.CacheWriteError()
				log.Error("cache write panicked", "panic", r)
			}
		}()
		if err := s.cache.Put(ctx, digest, data); err != nil {
			s.metrics.CacheWriteError()
			log.Error("cache write failed", "error", err)
		}
	}()
}

func (s *pipelineService) admissionError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrQueueClosed):
		s.metrics.Request(metrics.ResultBusy)
		return errs.NewQueueFullError(s.retryAfter)
	case errors.Is(err, queue.ErrQueueTimeout):
		s.metrics.Request(metrics.ResultBusy)
		return errs.NewQueueTimeoutError(s.retryAfter)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.metrics.Request(metrics.ResultCanceled)
		logger.FromContext(ctx).Info("chart request abandoned by client", "error", err)
		return err
	default:
		s.metrics.Request(metrics.ResultError)
		logger.FromContext(ctx).Error("chart render failed", "error", err)
		return err
	}
}

// Shutdown waits for background cache writes to finish.
func (s *pipelineService) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *pipelineService) Describe(ctx context.Context, raw url.Values) (dto.ResolveResponse, error) {
	return Describe(ctx, s.resolver, raw)
}

// Describe resolves raw without rendering and reports how each field got
// its value, along with the cache digest the chart would be stored under.
func Describe(ctx context.Context, resolver *chartstate.Resolver, raw url.Values) (dto.ResolveResponse, error) {
	res := resolver.Resolve(ctx, raw)
	digest, err := chartDigest(res.State, render.ParseOptions(raw))
	if err != nil {
		return dto.ResolveResponse{}, err
	}
	return describe(resolver.Registry(), res, digest), nil
}

func chartDigest(state chartstate.State, opts render.Options) (string, error) {
	return store.Key(map[string]any{
		"state":  state.Map(),
		"output": opts.CacheParams(),
	})
}

func describe(reg *chartstate.Registry, res chartstate.Result, digest string) dto.ResolveResponse {
	overrides := make([]string, 0, len(res.Overrides))
	for _, f := range res.Overrides.Fields() {
		overrides = append(overrides, string(f))
	}
	changes := make([]dto.ChangeEntry, 0, len(res.Log))
	for _, e := range res.Log {
		changes = append(changes, dto.ChangeEntry{
			Field:    string(e.Field),
			Before:   e.Before,
			After:    e.After,
			Reason:   e.Reason,
			Priority: e.Priority.String(),
		})
	}
	return dto.ResolveResponse{
		View:      string(res.State.View()),
		State:     res.State.Map(),
		Overrides: overrides,
		Changes:   changes,
		Converged: res.Converged,
		Digest:    digest,
		Canonical: reg.Encode(res.State).Encode(),
	}
}
