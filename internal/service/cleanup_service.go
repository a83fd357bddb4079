package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/compsight/compsight-api/internal/repository"
)

// CleanupService removes expired lookup cache entries. Reads already treat
// stale entries as absent; this keeps the table from growing unbounded.
type CleanupService struct {
	cache  repository.CacheRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(cache repository.CacheRepository, ttl time.Duration, logger *slog.Logger) *CleanupService {
	return &CleanupService{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "cleanup"),
	}
}

// PurgeExpired removes entries past the TTL and reports the count.
func (s *CleanupService) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.cache.PurgeExpired(ctx, s.ttl)
	if err != nil {
		s.logger.Error("cache purge failed", "error", err)
		return 0, err
	}
	if purged > 0 {
		remaining, countErr := s.cache.Count(ctx)
		if countErr != nil {
			s.logger.Warn("cache count failed", "error", countErr)
			s.logger.Info("purged expired cache entries", "count", purged)
		} else {
			s.logger.Info("purged expired cache entries", "count", purged, "remaining", remaining)
		}
	}
	return purged, nil
}

// RunScheduled runs the purge immediately and then at the given interval
// until the context is cancelled.
func (s *CleanupService) RunScheduled(ctx context.Context, interval time.Duration) {
	s.logger.Info("starting scheduled cache cleanup", "interval", interval.String(), "ttl", s.ttl.String())

	if _, err := s.PurgeExpired(ctx); err != nil {
		s.logger.Error("initial cleanup failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduled cleanup stopped")
			return
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil {
				s.logger.Error("scheduled cleanup failed", "error", err)
			}
		}
	}
}
