package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/opticalqc/internal/application/services"
	"github.com/zatekoja/opticalqc/internal/application/validation"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

const samplePayload = "SPH=2.00;2.00\nCYL=-0.75;-0.75\nAX=90;90\nTRCFMT=1;120;E;B;F\n"

func eye() entities.EyeValues {
	return entities.EyeValues{
		Sphere:   entities.Float64(2.00),
		Cylinder: entities.Float64(-0.75),
		Axis:     entities.Float64(90),
	}
}

func sampleOrder() *entities.Order {
	return &entities.Order{
		ID:             "order-1",
		CompanyID:      "company-1",
		Status:         entities.OrderStatusPending,
		Prescription:   &entities.PrescriptionValues{OD: eye(), OS: eye()},
		TracingPayload: samplePayload,
	}
}

func sampleTracing() *entities.TracingData {
	return &entities.TracingData{
		OD:            eye(),
		OS:            eye(),
		FrameSize:     entities.FrameSize{A: entities.Float64(52), B: entities.Float64(38)},
		BaseCurve:     entities.Float64(4),
		FrameType:     entities.FrameTypeFlat,
		TracingPoints: 120,
	}
}

type validationFixture struct {
	orders  *MockOrderRepository
	parser  *MockTracingParser
	events  *MockEventBus
	service *services.ValidationService
}

func newValidationFixture() *validationFixture {
	f := &validationFixture{
		orders: new(MockOrderRepository),
		parser: new(MockTracingParser),
		events: new(MockEventBus),
	}
	f.service = services.NewValidationService(f.orders, f.parser, f.events, validation.NewEngine(validation.DefaultRules()), nil)
	return f
}

func TestValidationService_ValidateOrder_AutoApprovesCleanOrder(t *testing.T) {
	f := newValidationFixture()
	ctx := context.Background()

	f.orders.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(), nil)
	f.parser.On("IsValidTracingFile", samplePayload).Return(true)
	f.parser.On("ParseTracingFile", samplePayload).Return(sampleTracing(), nil)
	f.orders.On("SaveValidationResult", mock.Anything, mock.MatchedBy(func(r *entities.ValidationResult) bool {
		return r.OrderID == "order-1" && r.ID != "" && !r.ValidatedAt.IsZero()
	})).Return(nil)
	f.events.On("Publish", mock.Anything, "order.validated", mock.MatchedBy(func(e *entities.ValidationEvent) bool {
		return e.OrderID == "order-1" && e.Valid && e.AutoApproved &&
			e.SuggestedQueue == entities.QueueAutoApproved && e.ComplexityTier == entities.ComplexityTierSimple
	})).Return(nil)
	f.events.On("Publish", mock.Anything, "order.validated:company:company-1", mock.Anything).Return(nil)

	result, err := f.service.ValidateOrder(ctx, "order-1")

	require.NoError(t, err)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "company-1", result.CompanyID)
	assert.True(t, result.IsValid)
	assert.True(t, result.AutoApproved)
	assert.Equal(t, entities.QueueAutoApproved, result.RecommendedQueue)
	assert.Equal(t, 100.0, result.Confidence)
	assert.Empty(t, result.Issues)
	f.orders.AssertExpectations(t)
	f.parser.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestValidationService_ValidateOrder_NotFound(t *testing.T) {
	f := newValidationFixture()

	f.orders.On("GetByID", mock.Anything, "missing").
		Return(nil, apperrors.NewNotFoundError("order with id missing not found"))

	result, err := f.service.ValidateOrder(context.Background(), "missing")

	assert.Nil(t, result)
	assert.True(t, apperrors.IsNotFound(err))
	f.orders.AssertNotCalled(t, "SaveValidationResult", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidationService_ValidateOrder_RequiresID(t *testing.T) {
	f := newValidationFixture()

	_, err := f.service.ValidateOrder(context.Background(), "  ")

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	f.orders.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestValidationService_ValidateOrder_DegradesWithoutTracing(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *validationFixture, order *entities.Order)
		wantReason string
	}{
		{
			name: "no payload",
			setup: func(f *validationFixture, order *entities.Order) {
				order.TracingPayload = ""
			},
			wantReason: "no tracing file supplied",
		},
		{
			name: "unrecognized payload",
			setup: func(f *validationFixture, order *entities.Order) {
				f.parser.On("IsValidTracingFile", samplePayload).Return(false)
			},
			wantReason: "not in a recognized format",
		},
		{
			name: "parse failure",
			setup: func(f *validationFixture, order *entities.Order) {
				f.parser.On("IsValidTracingFile", samplePayload).Return(true)
				f.parser.On("ParseTracingFile", samplePayload).
					Return(nil, apperrors.NewParseError("malformed OMA record", errors.New("line 2 (CYL): invalid number")))
			},
			wantReason: "could not be parsed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newValidationFixture()
			order := sampleOrder()
			tt.setup(f, order)

			f.orders.On("GetByID", mock.Anything, "order-1").Return(order, nil)
			f.orders.On("SaveValidationResult", mock.Anything, mock.Anything).Return(nil)
			f.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

			result, err := f.service.ValidateOrder(context.Background(), "order-1")

			require.NoError(t, err)
			require.Len(t, result.Issues, 1)
			assert.Equal(t, entities.IssueKindMissingData, result.Issues[0].Kind)
			assert.Equal(t, entities.SeverityWarning, result.Issues[0].Severity)
			assert.Contains(t, result.Issues[0].Message, tt.wantReason)
			assert.Equal(t, 70.0, result.Confidence)
			assert.False(t, result.AutoApproved)
			assert.Equal(t, entities.TracingQualityUnavailable, result.Complexity.TracingQuality)
			f.orders.AssertCalled(t, "SaveValidationResult", mock.Anything, mock.Anything)
		})
	}
}

func TestValidationService_ValidateOrder_NoTracingPayloadSkipsParser(t *testing.T) {
	f := newValidationFixture()
	order := sampleOrder()
	order.TracingPayload = ""

	f.orders.On("GetByID", mock.Anything, "order-1").Return(order, nil)
	f.orders.On("SaveValidationResult", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.service.ValidateOrder(context.Background(), "order-1")

	require.NoError(t, err)
	f.parser.AssertNotCalled(t, "IsValidTracingFile", mock.Anything)
	f.parser.AssertNotCalled(t, "ParseTracingFile", mock.Anything)
}

func TestValidationService_ValidateOrder_PersistenceFailureIsNotFatal(t *testing.T) {
	f := newValidationFixture()

	f.orders.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(), nil)
	f.parser.On("IsValidTracingFile", samplePayload).Return(true)
	f.parser.On("ParseTracingFile", samplePayload).Return(sampleTracing(), nil)
	f.orders.On("SaveValidationResult", mock.Anything, mock.Anything).
		Return(apperrors.NewPersistenceError("failed to update order validation", errors.New("deadlock")))
	f.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	result, err := f.service.ValidateOrder(context.Background(), "order-1")

	require.NoError(t, err)
	assert.True(t, result.AutoApproved)
	f.events.AssertNumberOfCalls(t, "Publish", 2)
}

func TestValidationService_ValidateOrder_PublishFailureIsNotFatal(t *testing.T) {
	f := newValidationFixture()
	tracing := sampleTracing()
	tracing.OD.Sphere = entities.Float64(2.50)

	f.orders.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(), nil)
	f.parser.On("IsValidTracingFile", samplePayload).Return(true)
	f.parser.On("ParseTracingFile", samplePayload).Return(tracing, nil)
	f.orders.On("SaveValidationResult", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker unavailable"))

	result, err := f.service.ValidateOrder(context.Background(), "order-1")

	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, entities.QueueLabTech, result.RecommendedQueue)
	assert.Equal(t, 80.0, result.Confidence)
}

func TestValidationService_ValidateOrder_WithoutEventBus(t *testing.T) {
	orders := new(MockOrderRepository)
	parser := new(MockTracingParser)
	service := services.NewValidationService(orders, parser, nil, validation.NewEngine(validation.DefaultRules()), nil)

	orders.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(), nil)
	parser.On("IsValidTracingFile", samplePayload).Return(true)
	parser.On("ParseTracingFile", samplePayload).Return(sampleTracing(), nil)
	orders.On("SaveValidationResult", mock.Anything, mock.Anything).Return(nil)

	_, err := service.ValidateOrder(context.Background(), "order-1")

	require.NoError(t, err)
}

func TestValidationService_ValidateOrder_RepeatedRunsAgree(t *testing.T) {
	f := newValidationFixture()
	tracing := sampleTracing()
	tracing.FrameType = entities.FrameTypeWrap
	tracing.OS.Cylinder = entities.Float64(-1.25)

	f.orders.On("GetByID", mock.Anything, "order-1").Return(sampleOrder(), nil)
	f.parser.On("IsValidTracingFile", samplePayload).Return(true)
	f.parser.On("ParseTracingFile", samplePayload).Return(tracing, nil)
	f.orders.On("SaveValidationResult", mock.Anything, mock.Anything).Return(nil)
	f.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	first, err := f.service.ValidateOrder(context.Background(), "order-1")
	require.NoError(t, err)
	second, err := f.service.ValidateOrder(context.Background(), "order-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, first.Complexity, second.Complexity)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.RecommendedQueue, second.RecommendedQueue)
}
