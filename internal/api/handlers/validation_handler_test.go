package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/opticalqc/internal/api/handlers"
	"github.com/zatekoja/opticalqc/internal/application/services"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

type MockOrderValidator struct {
	mock.Mock
}

func (m *MockOrderValidator) ValidateOrder(ctx context.Context, orderID string) (*entities.ValidationResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ValidationResult), args.Error(1)
}

type MockSweepRunner struct {
	mock.Mock
}

func (m *MockSweepRunner) ValidatePendingOrders(ctx context.Context) (*entities.BatchStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.BatchStats), args.Error(1)
}

type MockStatisticsProvider struct {
	mock.Mock
}

func (m *MockStatisticsProvider) GetValidationStatistics(ctx context.Context, companyID string) (*entities.ValidationStatistics, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ValidationStatistics), args.Error(1)
}

func newValidationHandler() (*handlers.ValidationHandler, *MockOrderValidator, *MockSweepRunner, *MockStatisticsProvider) {
	validator := new(MockOrderValidator)
	sweeper := new(MockSweepRunner)
	stats := new(MockStatisticsProvider)
	return handlers.NewValidationHandler(validator, sweeper, stats), validator, sweeper, stats
}

func TestValidationHandler_ValidateOrder(t *testing.T) {
	t.Run("returns the validation result", func(t *testing.T) {
		handler, validator, _, _ := newValidationHandler()
		validator.On("ValidateOrder", mock.Anything, "ord-1").Return(&entities.ValidationResult{
			ID:               "val-1",
			OrderID:          "ord-1",
			IsValid:          true,
			Confidence:       100,
			Issues:           []entities.ValidationIssue{},
			RecommendedQueue: entities.QueueAutoApproved,
			AutoApproved:     true,
		}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/orders/ord-1/validate", nil)
		req.SetPathValue("id", "ord-1")
		w := httptest.NewRecorder()

		handler.ValidateOrder(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body entities.ValidationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ord-1", body.OrderID)
		assert.Equal(t, entities.QueueAutoApproved, body.RecommendedQueue)
		assert.True(t, body.AutoApproved)
		validator.AssertExpectations(t)
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		handler, validator, _, _ := newValidationHandler()
		validator.On("ValidateOrder", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("order missing not found"))

		req := httptest.NewRequest(http.MethodPost, "/api/orders/missing/validate", nil)
		req.SetPathValue("id", "missing")
		w := httptest.NewRecorder()

		handler.ValidateOrder(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing id is 400", func(t *testing.T) {
		handler, validator, _, _ := newValidationHandler()

		w := httptest.NewRecorder()
		handler.ValidateOrder(w, httptest.NewRequest(http.MethodPost, "/api/orders//validate", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		validator.AssertNotCalled(t, "ValidateOrder", mock.Anything, mock.Anything)
	})

	t.Run("store failure is 500 without leaking details", func(t *testing.T) {
		handler, validator, _, _ := newValidationHandler()
		validator.On("ValidateOrder", mock.Anything, "ord-2").
			Return(nil, apperrors.NewPersistenceError("failed to load order", errors.New("pq: connection refused")))

		req := httptest.NewRequest(http.MethodPost, "/api/orders/ord-2/validate", nil)
		req.SetPathValue("id", "ord-2")
		w := httptest.NewRecorder()

		handler.ValidateOrder(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection refused")
	})
}

func TestValidationHandler_ValidatePendingOrders(t *testing.T) {
	t.Run("returns batch stats", func(t *testing.T) {
		handler, _, sweeper, _ := newValidationHandler()
		sweeper.On("ValidatePendingOrders", mock.Anything).Return(&entities.BatchStats{
			Processed: 3, AutoApproved: 1, NeedsReview: 2, Errors: 1,
		}, nil)

		w := httptest.NewRecorder()
		handler.ValidatePendingOrders(w, httptest.NewRequest(http.MethodPost, "/api/validations/sweep", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var stats entities.BatchStats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, entities.BatchStats{Processed: 3, AutoApproved: 1, NeedsReview: 2, Errors: 1}, stats)
	})

	t.Run("overlapping sweep is 409", func(t *testing.T) {
		handler, _, sweeper, _ := newValidationHandler()
		sweeper.On("ValidatePendingOrders", mock.Anything).Return(nil, services.ErrSweepInProgress)

		w := httptest.NewRecorder()
		handler.ValidatePendingOrders(w, httptest.NewRequest(http.MethodPost, "/api/validations/sweep", nil))

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("listing failure is 500", func(t *testing.T) {
		handler, _, sweeper, _ := newValidationHandler()
		sweeper.On("ValidatePendingOrders", mock.Anything).
			Return(nil, apperrors.NewPersistenceError("failed to list pending orders", errors.New("timeout")))

		w := httptest.NewRecorder()
		handler.ValidatePendingOrders(w, httptest.NewRequest(http.MethodPost, "/api/validations/sweep", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestValidationHandler_GetValidationStatistics(t *testing.T) {
	handler, _, _, stats := newValidationHandler()
	stats.On("GetValidationStatistics", mock.Anything, "co-1").Return(&entities.ValidationStatistics{
		CompanyID:         "co-1",
		TotalValidations:  4,
		AutoApprovalRate:  50,
		AverageConfidence: 87.5,
		CommonIssues: []entities.IssueFrequency{
			{Kind: entities.IssueKindPrescriptionMismatch, Field: "od_sphere", Count: 2},
		},
	}, nil)

	w := httptest.NewRecorder()
	handler.GetValidationStatistics(w, httptest.NewRequest(http.MethodGet, "/api/validations/statistics?company_id=co-1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body entities.ValidationStatistics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.TotalValidations)
	assert.Equal(t, 50.0, body.AutoApprovalRate)
	require.Len(t, body.CommonIssues, 1)
	assert.Equal(t, "od_sphere", body.CommonIssues[0].Field)
	stats.AssertExpectations(t)
}
