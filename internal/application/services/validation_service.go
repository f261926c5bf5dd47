package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"

	"github.com/zatekoja/opticalqc/internal/application/validation"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
	"github.com/zatekoja/opticalqc/internal/domain/repositories"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

// Reasons recorded when an order is validated without tracing data.
const (
	reasonNoTracingFile      = "no tracing file supplied"
	reasonUnrecognizedFormat = "tracing file is not in a recognized format"
)

// ValidationService validates single orders: it loads the order, parses its
// tracing file, runs the engine, stores the result and announces it.
type ValidationService struct {
	orders  repositories.OrderRepository
	parser  providers.TracingParser
	events  providers.EventBus
	engine  *validation.Engine
	metrics *observability.Metrics
	now     func() time.Time
}

// NewValidationService creates a new validation service. events and metrics may be nil.
func NewValidationService(
	orders repositories.OrderRepository,
	parser providers.TracingParser,
	events providers.EventBus,
	engine *validation.Engine,
	metrics *observability.Metrics,
) *ValidationService {
	return &ValidationService{
		orders:  orders,
		parser:  parser,
		events:  events,
		engine:  engine,
		metrics: metrics,
		now:     time.Now,
	}
}

// ValidateOrder validates one order. Only a missing order or a failure to load
// it is returned as an error; tracing, storage and publishing problems are
// logged and the result is still returned.
func (s *ValidationService) ValidateOrder(ctx context.Context, orderID string) (*entities.ValidationResult, error) {
	ctx, span := observability.StartSpan(ctx, "ValidationService.ValidateOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if strings.TrimSpace(orderID) == "" {
		return nil, apperrors.NewValidationError("order id is required")
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	ctx = observability.ContextWithOrder(ctx, order.ID, order.CompanyID)
	logger := observability.LoggerFromContext(ctx)

	tracing, reason := s.loadTracing(order)
	if tracing == nil {
		logger.Warn().Str("reason", reason).Msg("Validating order without tracing data")
	}

	result := s.engine.Assess(validation.Input{
		OrderID:                  order.ID,
		CompanyID:                order.CompanyID,
		Prescription:             order.Prescription,
		Tracing:                  tracing,
		TracingUnavailableReason: reason,
	})
	result.ID = uuid.NewString()
	result.ValidatedAt = s.now().UTC()

	span.SetAttributes(
		attribute.String("validation.queue", string(result.RecommendedQueue)),
		attribute.Bool("validation.auto_approved", result.AutoApproved),
		attribute.Float64("validation.confidence", result.Confidence),
		attribute.Int("validation.complexity_score", result.Complexity.OverallScore),
	)

	if err := s.orders.SaveValidationResult(ctx, &result); err != nil {
		observability.RecordError(span, err)
		logger.Error().Err(err).Msg("Failed to persist validation result")
	}

	s.publish(ctx, &result)

	observability.RecordValidation(ctx, s.metrics, string(result.RecommendedQueue), result.AutoApproved,
		result.Confidence, result.Complexity.OverallScore)
	observability.EmitAuditRecord(ctx, "order validated",
		otellog.String("order_id", result.OrderID),
		otellog.String("company_id", result.CompanyID),
		otellog.String("queue", string(result.RecommendedQueue)),
		otellog.Bool("auto_approved", result.AutoApproved),
		otellog.Float64("confidence", result.Confidence),
		otellog.Int("issues", len(result.Issues)),
	)

	logger.Info().
		Str("queue", string(result.RecommendedQueue)).
		Bool("auto_approved", result.AutoApproved).
		Float64("confidence", result.Confidence).
		Int("complexity_score", result.Complexity.OverallScore).
		Int("issues", len(result.Issues)).
		Msg("Order validated")

	return &result, nil
}

// loadTracing parses the order's tracing file. On failure it returns nil and
// the reason validation proceeds without tracing data.
func (s *ValidationService) loadTracing(order *entities.Order) (*entities.TracingData, string) {
	if !order.HasTracingPayload() || s.parser == nil {
		return nil, reasonNoTracingFile
	}
	if !s.parser.IsValidTracingFile(order.TracingPayload) {
		return nil, reasonUnrecognizedFormat
	}
	tracing, err := s.parser.ParseTracingFile(order.TracingPayload)
	if err != nil {
		return nil, fmt.Sprintf("tracing file could not be parsed: %v", err)
	}
	return tracing, ""
}

// publish announces the result on the global and company channels.
func (s *ValidationService) publish(ctx context.Context, result *entities.ValidationResult) {
	if s.events == nil {
		return
	}

	event := entities.NewValidationEvent(result, s.engine.Tier(result.Complexity.OverallScore))
	channels := []string{providers.EventChannelOrderValidated}
	if result.CompanyID != "" {
		channels = append(channels, providers.GetCompanyChannel(result.CompanyID))
	}

	for _, channel := range channels {
		if err := s.events.Publish(ctx, channel, event); err != nil {
			observability.RecordPublishFailure(ctx, s.metrics, channel)
			observability.LoggerFromContext(ctx).Warn().
				Err(apperrors.NewPublishError("failed to publish validation event", err)).
				Str("channel", channel).
				Msg("Validation event not published")
		}
	}
}
