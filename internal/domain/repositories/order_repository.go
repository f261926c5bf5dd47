package repositories

import (
	"context"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

// OrderRepository is the order store the validation engine reads from and
// writes results back to.
type OrderRepository interface {
	// GetByID returns the order, or a not found error when no order has the id.
	GetByID(ctx context.Context, id string) (*entities.Order, error)

	// ListPending returns up to limit orders awaiting validation, oldest
	// first, starting after the given cursor. A nil cursor starts at the
	// oldest pending order.
	ListPending(ctx context.Context, after *entities.PendingOrder, limit int) ([]entities.PendingOrder, error)

	// SaveValidationResult stores result as the order's latest validation.
	// Later writes for the same order replace earlier ones.
	SaveValidationResult(ctx context.Context, result *entities.ValidationResult) error
}

// ValidationStatisticsRepository aggregates persisted validation results.
type ValidationStatisticsRepository interface {
	// GetStatistics aggregates results for a company, or for all companies
	// when companyID is empty.
	GetStatistics(ctx context.Context, companyID string) (*entities.ValidationStatistics, error)
}
