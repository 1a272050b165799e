package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
)

// CacheWarmingService keeps the procedure catalog hot in the cache. It reads
// through the cached repository, so every read populates the cache.
type CacheWarmingService struct {
	procedures repositories.ProcedureRepository
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(procedures repositories.ProcedureRepository) *CacheWarmingService {
	return &CacheWarmingService{procedures: procedures}
}

// WarmCache loads the active catalog and every active procedure detail
func (s *CacheWarmingService) WarmCache(ctx context.Context) error {
	logger := observability.LoggerFromContext(ctx)

	active := true
	procedures, err := s.procedures.List(ctx, repositories.ProcedureFilter{IsActive: &active})
	if err != nil {
		return fmt.Errorf("failed to warm procedure list: %w", err)
	}

	warmed := 0
	for _, p := range procedures {
		if _, err := s.procedures.GetByID(ctx, p.ID); err != nil {
			logger.Warn().Err(err).Str("procedure_id", p.ID).Msg("failed to warm procedure")
			continue
		}
		warmed++
	}

	logger.Debug().Int("procedures", warmed).Msg("procedure cache warmed")
	return nil
}

// StartPeriodicWarming warms the cache now and then every interval until ctx is done
func (s *CacheWarmingService) StartPeriodicWarming(ctx context.Context, interval time.Duration) {
	logger := observability.GetLogger()

	if err := s.WarmCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial cache warming failed")
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("stopping cache warming service")
				return
			case <-ticker.C:
				if err := s.WarmCache(ctx); err != nil {
					logger.Warn().Err(err).Msg("periodic cache warming failed")
				}
			}
		}
	}()
	logger.Info().Dur("interval", interval).Msg("started periodic cache warming")
}
