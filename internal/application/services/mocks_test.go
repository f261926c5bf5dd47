package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

// MockOrderRepository is a testify mock of the order store
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*entities.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Order), args.Error(1)
}

func (m *MockOrderRepository) ListPending(ctx context.Context, after *entities.PendingOrder, limit int) ([]entities.PendingOrder, error) {
	args := m.Called(ctx, after, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.PendingOrder), args.Error(1)
}

func (m *MockOrderRepository) SaveValidationResult(ctx context.Context, result *entities.ValidationResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// MockTracingParser is a testify mock of the tracing parser
type MockTracingParser struct {
	mock.Mock
}

func (m *MockTracingParser) IsValidTracingFile(payload string) bool {
	args := m.Called(payload)
	return args.Bool(0)
}

func (m *MockTracingParser) ParseTracingFile(payload string) (*entities.TracingData, error) {
	args := m.Called(payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TracingData), args.Error(1)
}

// MockEventBus is a testify mock of the event bus
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.ValidationEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ValidationEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.ValidationEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockStatisticsRepository is a testify mock of the statistics repository
type MockStatisticsRepository struct {
	mock.Mock
}

func (m *MockStatisticsRepository) GetStatistics(ctx context.Context, companyID string) (*entities.ValidationStatistics, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ValidationStatistics), args.Error(1)
}

// MockStatisticsInvalidator is a testify mock of the statistics cache
type MockStatisticsInvalidator struct {
	mock.Mock
}

func (m *MockStatisticsInvalidator) InvalidateStatistics(ctx context.Context, companyID string) error {
	args := m.Called(ctx, companyID)
	return args.Error(0)
}
