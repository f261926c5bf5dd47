package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
)

// OrderValidator validates one order on demand.
type OrderValidator interface {
	ValidateOrder(ctx context.Context, orderID string) (*entities.ValidationResult, error)
}

// SweepRunner validates every pending order.
type SweepRunner interface {
	ValidatePendingOrders(ctx context.Context) (*entities.BatchStats, error)
}

// StatisticsProvider reports aggregate validation outcomes.
type StatisticsProvider interface {
	GetValidationStatistics(ctx context.Context, companyID string) (*entities.ValidationStatistics, error)
}

// ValidationHandler handles order validation HTTP requests
type ValidationHandler struct {
	validator OrderValidator
	sweeper   SweepRunner
	stats     StatisticsProvider
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(validator OrderValidator, sweeper SweepRunner, stats StatisticsProvider) *ValidationHandler {
	return &ValidationHandler{
		validator: validator,
		sweeper:   sweeper,
		stats:     stats,
	}
}

// ValidateOrder handles POST /api/orders/{id}/validate
func (h *ValidationHandler) ValidateOrder(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	if orderID == "" {
		respondWithError(w, http.StatusBadRequest, "order ID is required")
		return
	}

	result, err := h.validator.ValidateOrder(r.Context(), orderID)
	if err != nil {
		logError(r, err, "order validation failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// ValidatePendingOrders handles POST /api/validations/sweep
func (h *ValidationHandler) ValidatePendingOrders(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sweeper.ValidatePendingOrders(r.Context())
	if err != nil {
		// A cancelled request still reports the work that finished.
		if stats != nil && errors.Is(err, context.Canceled) {
			respondWithJSON(w, http.StatusOK, stats)
			return
		}
		logError(r, err, "validation sweep failed")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// GetValidationStatistics handles GET /api/validations/statistics?company_id=
func (h *ValidationHandler) GetValidationStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetValidationStatistics(r.Context(), r.URL.Query().Get("company_id"))
	if err != nil {
		logError(r, err, "failed to load validation statistics")
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

func logError(r *http.Request, err error, msg string) {
	logger := observability.LoggerFromContext(r.Context())
	logger.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
}
