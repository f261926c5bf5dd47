package evaluation

import (
	"time"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

// Difficulty labels how hard a golden order is to route correctly.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid checks if the difficulty value is one of the defined constants.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// GoldenOrder is a labeled order with the outcome a lab engineer agreed on.
// Tracing holds the raw tracing file; an empty string means none was captured.
type GoldenOrder struct {
	ID            string                       `json:"id"`
	Description   string                       `json:"description"`
	Prescription  *entities.PrescriptionValues `json:"prescription"`
	Tracing       string                       `json:"tracing"`
	ExpectedQueue entities.Queue               `json:"expected_queue"`
	ExpectedValid bool                         `json:"expected_valid"`
	Difficulty    Difficulty                   `json:"difficulty"`
}

// EvalResult holds the evaluation outcome for a single golden order.
type EvalResult struct {
	OrderID         string         `json:"order_id"`
	ExpectedQueue   entities.Queue `json:"expected_queue"`
	ActualQueue     entities.Queue `json:"actual_queue"`
	ExpectedValid   bool           `json:"expected_valid"`
	ActualValid     bool           `json:"actual_valid"`
	Confidence      float64        `json:"confidence"`
	ComplexityScore int            `json:"complexity_score"`
	Latency         time.Duration  `json:"latency"`
}

// QueueCorrect reports whether the order was routed to the expected queue.
func (r EvalResult) QueueCorrect() bool {
	return r.ActualQueue == r.ExpectedQueue
}

// FalseAutoApproval reports whether an order that needed a human was auto-approved.
func (r EvalResult) FalseAutoApproval() bool {
	return r.ActualQueue == entities.QueueAutoApproved && r.ExpectedQueue != entities.QueueAutoApproved
}

// EvalSummary holds aggregate metrics across all golden orders.
type EvalSummary struct {
	TotalOrders           int                              `json:"total_orders"`
	QueueAccuracy         float64                          `json:"queue_accuracy"`
	ValidityAccuracy      float64                          `json:"validity_accuracy"`
	FalseAutoApprovals    int                              `json:"false_auto_approvals"`
	FalseAutoApprovalRate float64                          `json:"false_auto_approval_rate"`
	AvgConfidence         float64                          `json:"avg_confidence"`
	AvgLatency            time.Duration                    `json:"avg_latency"`
	ByQueue               map[entities.Queue]*QueueSummary `json:"by_queue"`
	Mismatches            []EvalResult                     `json:"mismatches"`
}

// QueueSummary holds routing metrics for one queue.
type QueueSummary struct {
	Expected  int     `json:"expected"`
	Routed    int     `json:"routed"`
	Correct   int     `json:"correct"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}
