package entities

import "time"

// OrderStatus is the production status of a lens order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusCompleted  OrderStatus = "completed"
)

// Order is the slice of a lab order that validation reads.
type Order struct {
	ID             string              `json:"id" db:"id"`
	CompanyID      string              `json:"company_id" db:"company_id"`
	Status         OrderStatus         `json:"status" db:"status"`
	Prescription   *PrescriptionValues `json:"prescription,omitempty"`
	TracingPayload string              `json:"tracing_payload,omitempty" db:"tracing_payload"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
}

// HasTracingPayload reports whether a raw tracing file was captured for the order.
func (o *Order) HasTracingPayload() bool {
	return o.TracingPayload != ""
}

// PendingOrder identifies an order awaiting validation. Pending orders are
// listed by (CreatedAt, ID), so the last one of a page is the cursor for the
// next.
type PendingOrder struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
