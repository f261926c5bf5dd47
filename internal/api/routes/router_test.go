package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/opticalqc/internal/api/handlers"
	"github.com/zatekoja/opticalqc/internal/api/routes"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

type stubValidator struct{ mock.Mock }

func (s *stubValidator) ValidateOrder(ctx context.Context, orderID string) (*entities.ValidationResult, error) {
	args := s.Called(ctx, orderID)
	return args.Get(0).(*entities.ValidationResult), args.Error(1)
}

type stubSweeper struct{}

func (stubSweeper) ValidatePendingOrders(ctx context.Context) (*entities.BatchStats, error) {
	return &entities.BatchStats{}, nil
}

type stubStats struct{}

func (stubStats) GetValidationStatistics(ctx context.Context, companyID string) (*entities.ValidationStatistics, error) {
	return &entities.ValidationStatistics{CompanyID: companyID, CommonIssues: []entities.IssueFrequency{}}, nil
}

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestRouter_RoutesValidationEndpoints(t *testing.T) {
	validator := new(stubValidator)
	validator.On("ValidateOrder", mock.Anything, "ord-7").Return(&entities.ValidationResult{OrderID: "ord-7"}, nil)

	router := routes.NewRouter(handlers.NewValidationHandler(validator, stubSweeper{}, stubStats{}), nil, nil, nil, nil)
	handler := router.SetupRoutes()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders/ord-7/validate", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"order_id":"ord-7"`)
	validator.AssertExpectations(t)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/ord-7/validate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Readiness(t *testing.T) {
	h := handlers.NewValidationHandler(new(stubValidator), stubSweeper{}, stubStats{})

	healthy := routes.NewRouter(h, nil, map[string]routes.HealthChecker{"postgres": pinger{}}, nil, nil).SetupRoutes()
	w := httptest.NewRecorder()
	healthy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"postgres":"ok"}`, w.Body.String())

	down := routes.NewRouter(h, nil, map[string]routes.HealthChecker{"redis": pinger{err: errors.New("refused")}}, nil, nil).SetupRoutes()
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"redis":"refused"}`, w.Body.String())
}
