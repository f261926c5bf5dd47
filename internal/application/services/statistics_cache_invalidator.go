package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
)

const invalidationTimeout = 5 * time.Second

// StatisticsInvalidator drops cached statistics for a company.
type StatisticsInvalidator interface {
	InvalidateStatistics(ctx context.Context, companyID string) error
}

// StatisticsCacheInvalidator keeps cached statistics in step with new
// validations by listening on the order.validated channel.
type StatisticsCacheInvalidator struct {
	eventBus    providers.EventBus
	invalidator StatisticsInvalidator
	logger      zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewStatisticsCacheInvalidator(eventBus providers.EventBus, invalidator StatisticsInvalidator) *StatisticsCacheInvalidator {
	return &StatisticsCacheInvalidator{
		eventBus:    eventBus,
		invalidator: invalidator,
		logger:      observability.WithComponent("stats_cache_invalidator"),
	}
}

// Start subscribes and processes events until Stop is called or ctx ends.
func (s *StatisticsCacheInvalidator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	events, err := s.eventBus.Subscribe(ctx, providers.EventChannelOrderValidated)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", providers.EventChannelOrderValidated, err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, events)

	s.logger.Info().Msg("Statistics cache invalidation started")
	return nil
}

// Stop ends processing and waits for the worker to exit. Safe to call more
// than once or before Start.
func (s *StatisticsCacheInvalidator) Stop() {
	s.once.Do(func() {
		if s.cancel == nil {
			return
		}
		s.cancel()
		<-s.done
		s.logger.Info().Msg("Statistics cache invalidation stopped")
	})
}

func (s *StatisticsCacheInvalidator) run(ctx context.Context, events <-chan *entities.ValidationEvent) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event != nil {
				s.handle(event)
			}
		}
	}
}

func (s *StatisticsCacheInvalidator) handle(event *entities.ValidationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidationTimeout)
	defer cancel()

	if err := s.invalidator.InvalidateStatistics(ctx, event.CompanyID); err != nil {
		s.logger.Warn().Err(err).
			Str("order_id", event.OrderID).
			Str("company_id", event.CompanyID).
			Msg("Failed to invalidate cached statistics")
		return
	}
	s.logger.Debug().Str("company_id", event.CompanyID).Msg("Invalidated cached statistics")
}
