package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/repositories"
	"github.com/zatekoja/opticalqc/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

const (
	ordersTable      = "orders"
	validationsTable = "order_validations"
)

// OrderAdapter implements the OrderRepository interface
type OrderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewOrderAdapter creates a new order adapter
func NewOrderAdapter(client *postgres.Client) repositories.OrderRepository {
	return &OrderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID loads the prescription and raw tracing payload of an order.
func (a *OrderAdapter) GetByID(ctx context.Context, id string) (*entities.Order, error) {
	query, args, err := a.db.From(ordersTable).Prepared(true).Select(
		"id", "company_id", "status",
		"od_sphere", "od_cylinder", "od_axis", "od_addition", "od_prism",
		"os_sphere", "os_cylinder", "os_axis", "os_addition", "os_prism",
		"pupillary_distance", "tracing_payload", "created_at",
	).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	order := &entities.Order{}
	var od, os [5]sql.NullFloat64
	var pd sql.NullFloat64
	var tracingPayload sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&order.ID,
		&order.CompanyID,
		&order.Status,
		&od[0], &od[1], &od[2], &od[3], &od[4],
		&os[0], &os[1], &os[2], &os[3], &os[4],
		&pd,
		&tracingPayload,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get order", err)
	}

	rx := &entities.PrescriptionValues{
		OD:                eyeFromColumns(od),
		OS:                eyeFromColumns(os),
		PupillaryDistance: nullFloat(pd),
	}
	if !rx.IsEmpty() {
		order.Prescription = rx
	}
	order.TracingPayload = tracingPayload.String

	return order, nil
}

// ListPending returns up to limit pending, never-validated orders after the
// cursor, oldest first.
func (a *OrderAdapter) ListPending(ctx context.Context, after *entities.PendingOrder, limit int) ([]entities.PendingOrder, error) {
	ds := a.db.From(ordersTable).Prepared(true).
		Select("id", "created_at").
		Where(
			goqu.Ex{"status": string(entities.OrderStatusPending)},
			goqu.C("validated_at").IsNull(),
		)
	if after != nil {
		ds = ds.Where(goqu.Or(
			goqu.C("created_at").Gt(after.CreatedAt),
			goqu.And(
				goqu.C("created_at").Eq(after.CreatedAt),
				goqu.C("id").Gt(after.ID),
			),
		))
	}

	query, args, err := ds.
		Order(goqu.I("created_at").Asc(), goqu.I("id").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list pending orders", err)
	}
	defer rows.Close()

	pending := make([]entities.PendingOrder, 0)
	for rows.Next() {
		var p entities.PendingOrder
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan pending order", err)
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate pending orders", err)
	}

	return pending, nil
}

// SaveValidationResult stores the result as the order's latest validation and
// appends it to the validation history in one transaction.
func (a *OrderAdapter) SaveValidationResult(ctx context.Context, result *entities.ValidationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return apperrors.NewPersistenceError("failed to encode validation result", err)
	}
	issues, err := json.Marshal(result.Issues)
	if err != nil {
		return apperrors.NewPersistenceError("failed to encode validation issues", err)
	}

	historyID := result.ID
	if historyID == "" {
		historyID = uuid.NewString()
	}

	updateSQL, updateArgs, err := a.db.Update(ordersTable).Prepared(true).Set(goqu.Record{
		"validation_result":     string(payload),
		"validation_queue":      string(result.RecommendedQueue),
		"validation_confidence": result.Confidence,
		"validated_at":          result.ValidatedAt,
	}).Where(goqu.Ex{"id": result.OrderID}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	insertSQL, insertArgs, err := a.db.Insert(validationsTable).Prepared(true).Rows(goqu.Record{
		"id":               historyID,
		"order_id":         result.OrderID,
		"company_id":       result.CompanyID,
		"is_valid":         result.IsValid,
		"confidence":       result.Confidence,
		"complexity_score": result.Complexity.OverallScore,
		"queue":            string(result.RecommendedQueue),
		"auto_approved":    result.AutoApproved,
		"issues":           string(issues),
		"validated_at":     result.ValidatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewPersistenceError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, updateSQL, updateArgs...)
	if err != nil {
		return apperrors.NewPersistenceError("failed to update order validation", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewPersistenceError(
			fmt.Sprintf("failed to update order validation: order %s does not exist", result.OrderID), nil)
	}

	if _, err := tx.ExecContext(ctx, insertSQL, insertArgs...); err != nil {
		return apperrors.NewPersistenceError("failed to record validation history", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewPersistenceError("failed to commit validation result", err)
	}
	return nil
}

func eyeFromColumns(cols [5]sql.NullFloat64) entities.EyeValues {
	return entities.EyeValues{
		Sphere:   nullFloat(cols[0]),
		Cylinder: nullFloat(cols[1]),
		Axis:     nullFloat(cols[2]),
		Addition: nullFloat(cols[3]),
		Prism:    nullFloat(cols[4]),
	}
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
