package services

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/repositories"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

// ErrSweepInProgress is returned when a sweep is requested while another runs.
var ErrSweepInProgress = apperrors.NewConflictError("a validation sweep is already running")

// OrderValidator validates a single order.
type OrderValidator interface {
	ValidateOrder(ctx context.Context, orderID string) (*entities.ValidationResult, error)
}

// SweepService validates every pending order with a bounded worker pool.
type SweepService struct {
	orders      repositories.OrderRepository
	validator   OrderValidator
	concurrency int
	batchSize   int
	metrics     *observability.Metrics

	running sync.Mutex
}

// NewSweepService creates a new sweep service
func NewSweepService(
	orders repositories.OrderRepository,
	validator OrderValidator,
	concurrency, batchSize int,
	metrics *observability.Metrics,
) *SweepService {
	if concurrency < 1 {
		concurrency = 1
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &SweepService{
		orders:      orders,
		validator:   validator,
		concurrency: concurrency,
		batchSize:   batchSize,
		metrics:     metrics,
	}
}

// ValidatePendingOrders validates every pending order, reading them in pages
// of batchSize. A failing order is counted in Errors and never stops the
// sweep. Processed counts orders that validated successfully, each of which
// is either auto-approved or needs review.
func (s *SweepService) ValidatePendingOrders(ctx context.Context) (*entities.BatchStats, error) {
	if !s.running.TryLock() {
		return nil, ErrSweepInProgress
	}
	defer s.running.Unlock()

	ctx, span := observability.StartSpan(ctx, "SweepService.ValidatePendingOrders")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)
	started := time.Now()

	var (
		mu      sync.Mutex
		stats   entities.BatchStats
		pending int
		cursor  *entities.PendingOrder
	)

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	validate := func(id string) error {
		result, err := s.validator.ValidateOrder(ctx, id)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			stats.Errors++
			logger.Error().Err(err).Str("order_id", id).Msg("Order validation failed during sweep")
			return nil
		}
		stats.Processed++
		if result.AutoApproved {
			stats.AutoApproved++
		} else {
			stats.NeedsReview++
		}
		return nil
	}

pages:
	for ctx.Err() == nil {
		page, err := s.orders.ListPending(ctx, cursor, s.batchSize)
		if err != nil {
			_ = g.Wait()
			observability.RecordError(span, err)
			if pending == 0 {
				return nil, err
			}
			logger.Error().Err(err).Int("pending", pending).Msg("Failed to list next page of pending orders")
			return &stats, err
		}

		for _, order := range page {
			if ctx.Err() != nil {
				break pages
			}
			pending++
			g.Go(func() error { return validate(order.ID) })
		}

		if len(page) < s.batchSize {
			break
		}
		cursor = &page[len(page)-1]
	}
	_ = g.Wait()

	elapsed := time.Since(started)
	observability.RecordSweep(ctx, s.metrics, elapsed, stats.Errors)
	span.SetAttributes(
		attribute.Int("sweep.pending", pending),
		attribute.Int("sweep.processed", stats.Processed),
		attribute.Int("sweep.errors", stats.Errors),
	)

	logger.Info().
		Int("pending", pending).
		Int("processed", stats.Processed).
		Int("auto_approved", stats.AutoApproved).
		Int("needs_review", stats.NeedsReview).
		Int("errors", stats.Errors).
		Dur("duration", elapsed).
		Msg("Validation sweep finished")

	if err := ctx.Err(); err != nil {
		return &stats, err
	}
	return &stats, nil
}

// RunScheduled sweeps every interval until ctx is done. A tick that arrives
// while a sweep is still running is skipped.
func (s *SweepService) RunScheduled(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	logger := observability.LoggerFromContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", interval).Msg("Scheduled validation sweeps started")

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Scheduled validation sweeps stopped")
			return
		case <-ticker.C:
			if _, err := s.ValidatePendingOrders(ctx); err != nil {
				if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
					logger.Debug().Msg("Skipping scheduled sweep, previous sweep still running")
					continue
				}
				if ctx.Err() == nil {
					logger.Error().Err(err).Msg("Scheduled validation sweep failed")
				}
			}
		}
	}
}
