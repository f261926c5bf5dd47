package entities

import (
	"time"

	"github.com/google/uuid"
)

// ValidationEvent is the summary published after an order is validated.
type ValidationEvent struct {
	ID             string         `json:"id"`
	OrderID        string         `json:"order_id"`
	CompanyID      string         `json:"company_id"`
	Valid          bool           `json:"valid"`
	Errors         int            `json:"errors"`
	Warnings       int            `json:"warnings"`
	ComplexityTier ComplexityTier `json:"complexity_tier"`
	SuggestedQueue Queue          `json:"suggested_queue"`
	AutoApproved   bool           `json:"auto_approved"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewValidationEvent builds the event for a validation result.
func NewValidationEvent(result *ValidationResult, tier ComplexityTier) *ValidationEvent {
	return &ValidationEvent{
		ID:             uuid.NewString(),
		OrderID:        result.OrderID,
		CompanyID:      result.CompanyID,
		Valid:          result.IsValid,
		Errors:         result.CountBySeverity(SeverityCritical),
		Warnings:       result.CountBySeverity(SeverityWarning),
		ComplexityTier: tier,
		SuggestedQueue: result.RecommendedQueue,
		AutoApproved:   result.AutoApproved,
		Timestamp:      time.Now(),
	}
}
