package services

import (
	"context"

	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

// artifactStore is the admin view of the artifact cache.
type artifactStore interface {
	Stats(ctx context.Context) (dto.CacheStats, error)
	Clear(ctx context.Context) (int, error)
	Sweep(ctx context.Context) (int, error)
}

type cacheService struct {
	store artifactStore
}

func NewCacheService(store artifactStore) *cacheService {
	return &cacheService{store: store}
}

func (s *cacheService) Stats(ctx context.Context) (dto.CacheStats, error) {
	return s.store.Stats(ctx)
}

func (s *cacheService) Clear(ctx context.Context) (dto.CacheClearResponse, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return dto.CacheClearResponse{}, err
	}
	logger.FromContext(ctx).Info("cache cleared", "removed", n)
	return dto.CacheClearResponse{Cleared: n}, nil
}

func (s *cacheService) Sweep(ctx context.Context) (dto.CacheClearResponse, error) {
	n, err := s.store.Sweep(ctx)
	if err != nil {
		return dto.CacheClearResponse{}, err
	}
	logger.FromContext(ctx).Info("cache swept", "removed", n)
	return dto.CacheClearResponse{Cleared: n}, nil
}
