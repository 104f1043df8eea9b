package services

import (
	"context"
	"errors"
	"testing"

	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/pkg/helpers"
)

type fakeArtifactStore struct {
	stats   dto.CacheStats
	removed int
	err     error
	cleared bool
	swept   bool
}

func (s *fakeArtifactStore) Stats(context.Context) (dto.CacheStats, error) {
	return s.stats, s.err
}

func (s *fakeArtifactStore) Clear(context.Context) (int, error) {
	s.cleared = true
	return s.removed, s.err
}

func (s *fakeArtifactStore) Sweep(context.Context) (int, error) {
	s.swept = true
	return s.removed, s.err
}

func TestCacheService_Stats(t *testing.T) {
	store := &fakeArtifactStore{stats: dto.CacheStats{Count: 3, TotalSize: 1024}}
	svc := NewCacheService(store)

	got, err := svc.Stats(helpers.TestCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 3 || got.TotalSize != 1024 {
		t.Fatalf("unexpected stats: %+v", got)
	}
}

func TestCacheService_ClearAndSweep(t *testing.T) {
	store := &fakeArtifactStore{removed: 2}
	svc := NewCacheService(store)

	out, err := svc.Clear(helpers.TestCtx())
	if err != nil || out.Cleared != 2 || !store.cleared {
		t.Fatalf("clear: got %+v, %v", out, err)
	}
	out, err = svc.Sweep(helpers.TestCtx())
	if err != nil || out.Cleared != 2 || !store.swept {
		t.Fatalf("sweep: got %+v, %v", out, err)
	}
}

func TestCacheService_PropagatesErrors(t *testing.T) {
	boom := errors.New("disk gone")
	svc := NewCacheService(&fakeArtifactStore{err: boom})

	if _, err := svc.Clear(helpers.TestCtx()); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if _, err := svc.Sweep(helpers.TestCtx()); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}
