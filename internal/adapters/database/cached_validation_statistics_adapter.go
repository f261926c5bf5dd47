package database

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
	"github.com/zatekoja/opticalqc/internal/domain/repositories"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
)

// CachedValidationStatisticsAdapter wraps a statistics repository with caching
type CachedValidationStatisticsAdapter struct {
	adapter repositories.ValidationStatisticsRepository
	cache   providers.CacheProvider
	ttl     int
	metrics *observability.Metrics
}

// NewCachedValidationStatisticsAdapter creates a cached statistics adapter.
// ttlSeconds of zero or less disables caching.
func NewCachedValidationStatisticsAdapter(
	adapter repositories.ValidationStatisticsRepository,
	cache providers.CacheProvider,
	ttlSeconds int,
	metrics *observability.Metrics,
) *CachedValidationStatisticsAdapter {
	return &CachedValidationStatisticsAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
		metrics: metrics,
	}
}

func statisticsCacheKey(companyID string) string {
	if companyID == "" {
		return "validation:stats:all"
	}
	return "validation:stats:company:" + companyID
}

// GetStatistics returns cached statistics when fresh, otherwise computes and caches them.
func (a *CachedValidationStatisticsAdapter) GetStatistics(ctx context.Context, companyID string) (*entities.ValidationStatistics, error) {
	if a.ttl <= 0 {
		return a.adapter.GetStatistics(ctx, companyID)
	}

	cacheKey := statisticsCacheKey(companyID)

	cached, err := a.cache.Get(ctx, cacheKey)
	switch {
	case err == nil:
		var stats entities.ValidationStatistics
		decodeErr := json.Unmarshal(cached, &stats)
		if decodeErr == nil {
			observability.RecordCacheHit(ctx, a.metrics, cacheKey)
			return &stats, nil
		}
		log.Warn().Err(decodeErr).Str("key", cacheKey).Msg("Failed to unmarshal cached validation statistics")
	case !errors.Is(err, providers.ErrCacheMiss):
		log.Warn().Err(err).Str("key", cacheKey).Msg("Statistics cache unavailable")
	}
	observability.RecordCacheMiss(ctx, a.metrics, cacheKey)

	stats, err := a.adapter.GetStatistics(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, a.ttl); err != nil {
			log.Warn().Err(err).Str("key", cacheKey).Msg("Failed to cache validation statistics")
		}
	}

	return stats, nil
}

// InvalidateStatistics drops the cached statistics for companyID and the
// cross-company aggregate.
func (a *CachedValidationStatisticsAdapter) InvalidateStatistics(ctx context.Context, companyID string) error {
	keys := []string{statisticsCacheKey("")}
	if companyID != "" {
		keys = append(keys, statisticsCacheKey(companyID))
	}
	return a.cache.Delete(ctx, keys...)
}
