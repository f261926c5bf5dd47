package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/opticalqc/internal/adapters/cache"
	"github.com/zatekoja/opticalqc/internal/adapters/database"
	"github.com/zatekoja/opticalqc/internal/adapters/events"
	"github.com/zatekoja/opticalqc/internal/adapters/tracing"
	"github.com/zatekoja/opticalqc/internal/application/services"
	"github.com/zatekoja/opticalqc/internal/application/validation"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
	"github.com/zatekoja/opticalqc/internal/domain/repositories"
	"github.com/zatekoja/opticalqc/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/opticalqc/internal/infrastructure/clients/redis"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
	"github.com/zatekoja/opticalqc/pkg/config"
)

// cacheKeyPrefix namespaces every key this service writes to Redis.
const cacheKeyPrefix = "opticalqc:"

// Container wires the validation services to their stores.
type Container struct {
	Config  *config.Config
	Metrics *observability.Metrics

	Postgres *postgres.Client
	Redis    *redis.Client

	// EventBus and Cache are nil when Redis is unavailable.
	EventBus providers.EventBus
	Cache    providers.CacheProvider

	Orders     repositories.OrderRepository
	Statistics repositories.ValidationStatisticsRepository

	Engine            *validation.Engine
	Validation        *services.ValidationService
	Sweep             *services.SweepService
	StatisticsService *services.ValidationStatisticsService

	// CacheInvalidator is nil unless both the cache and the event bus exist.
	CacheInvalidator *services.StatisticsCacheInvalidator
}

// BuildRules loads the rules file and applies any routing thresholds set in
// cfg. Thresholds left unset keep the rules file value.
func BuildRules(cfg config.ValidationConfig) (validation.Rules, error) {
	rules, err := validation.LoadRules(cfg.RulesPath)
	if err != nil {
		return validation.Rules{}, err
	}

	routing := rules.Routing
	if cfg.SimpleMax != nil {
		routing.SimpleMax = *cfg.SimpleMax
	}
	if cfg.ComplexMin != nil {
		routing.ComplexMin = *cfg.ComplexMin
	}
	if cfg.AutoApproveMinConfidence != nil {
		routing.AutoApproveMinConfidence = *cfg.AutoApproveMinConfidence
	}
	rules = rules.WithRouting(routing)
	if err := rules.Validate(); err != nil {
		return validation.Rules{}, fmt.Errorf("invalid validation rules: %w", err)
	}
	return rules, nil
}

// New connects to PostgreSQL and Redis and builds the services. PostgreSQL is
// required; without Redis the services run with no event publishing and no
// statistics cache.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*Container, error) {
	rules, err := BuildRules(cfg.Validation)
	if err != nil {
		return nil, err
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}

	c := &Container{
		Config:   cfg,
		Metrics:  metrics,
		Postgres: pgClient,
		Engine:   validation.NewEngine(rules),
	}

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable; event publishing and statistics cache disabled")
	} else {
		c.Redis = redisClient
		c.Cache = cache.NewRedisAdapter(redisClient, cacheKeyPrefix)
		c.EventBus = events.NewBreakerEventBus(events.NewRedisEventBus(redisClient), events.BreakerSettings{
			MaxFailures: uint32(cfg.Validation.PublishBreakerFailures),
			Timeout:     cfg.Validation.PublishBreakerTimeout,
		})
	}

	c.Orders = database.NewOrderAdapter(pgClient)

	c.Statistics = database.NewValidationStatisticsAdapter(pgClient.DBX())
	if c.Cache != nil {
		cached := database.NewCachedValidationStatisticsAdapter(
			c.Statistics, c.Cache, cfg.Validation.StatsCacheTTLSeconds, metrics)
		c.Statistics = cached
		if c.EventBus != nil {
			c.CacheInvalidator = services.NewStatisticsCacheInvalidator(c.EventBus, cached)
		}
	}

	c.Validation = services.NewValidationService(c.Orders, tracing.NewOMAParser(), c.EventBus, c.Engine, metrics)
	c.Sweep = services.NewSweepService(
		c.Orders, c.Validation, cfg.Validation.SweepConcurrency, cfg.Validation.SweepBatchSize, metrics)
	c.StatisticsService = services.NewValidationStatisticsService(c.Statistics)

	log.Info().
		Float64("simple_max", rules.Routing.SimpleMax).
		Float64("complex_min", rules.Routing.ComplexMin).
		Float64("auto_approve_min_confidence", rules.Routing.AutoApproveMinConfidence).
		Bool("events_enabled", c.EventBus != nil).
		Msg("Validation services initialized")

	return c, nil
}

// Close releases the event bus and store connections.
func (c *Container) Close() error {
	if c.CacheInvalidator != nil {
		c.CacheInvalidator.Stop()
	}

	var errs []error
	if c.EventBus != nil {
		errs = append(errs, c.EventBus.Close())
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.Postgres != nil {
		errs = append(errs, c.Postgres.Close())
	}
	return errors.Join(errs...)
}
