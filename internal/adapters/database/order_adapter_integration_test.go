//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/opticalqc/internal/adapters/database"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/opticalqc/pkg/config"
	apperrors "github.com/zatekoja/opticalqc/pkg/errors"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func newTestPostgresClient(t *testing.T) *postgres.Client {
	t.Helper()

	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}

	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "optical_lab_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	client, err := postgres.NewClient(context.Background(), cfg)
	require.NoError(t, err, "Failed to create postgres client")
	return client
}

func runMigrations(t *testing.T, db *sql.DB, paths ...string) {
	t.Helper()
	for _, path := range paths {
		migrationSQL, err := os.ReadFile(path)
		require.NoError(t, err)
		_, err = db.Exec(string(migrationSQL))
		require.NoError(t, err)
	}
}

func resetOrders(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec("TRUNCATE TABLE order_validations, orders")
	require.NoError(t, err)
}

func insertOrder(t *testing.T, db *sql.DB, id, companyID string, createdAt time.Time) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO orders (id, company_id, status, od_sphere, od_cylinder, od_axis, os_sphere, os_cylinder, os_axis, pupillary_distance, tracing_payload, created_at)
		VALUES ($1, $2, 'pending', 2.00, -0.75, 90, 2.00, -0.75, 90, 63, 'SPH=+2.00;+2.00', $3)`,
		id, companyID, createdAt)
	require.NoError(t, err)
}

func pendingIDs(pending []entities.PendingOrder) []string {
	ids := make([]string, len(pending))
	for i, p := range pending {
		ids[i] = p.ID
	}
	return ids
}

func TestOrderAdapterIntegration_RoundTrip(t *testing.T) {
	client := newTestPostgresClient(t)
	defer client.Close()

	db := client.DB()
	runMigrations(t, db, "../../../migrations/0001_orders.up.sql")
	resetOrders(t, db)

	base := time.Now().Add(-time.Hour).UTC()
	insertOrder(t, db, "ord-b", "co-1", base.Add(2*time.Minute))
	insertOrder(t, db, "ord-a", "co-1", base.Add(time.Minute))
	insertOrder(t, db, "ord-c", "co-2", base.Add(3*time.Minute))

	adapter := database.NewOrderAdapter(client)
	ctx := context.Background()

	pending, err := adapter.ListPending(ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ord-a", "ord-b", "ord-c"}, pendingIDs(pending))

	first, err := adapter.ListPending(ctx, nil, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	next, err := adapter.ListPending(ctx, &first[0], 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"ord-b"}, pendingIDs(next))

	order, err := adapter.GetByID(ctx, "ord-a")
	require.NoError(t, err)
	require.NotNil(t, order.Prescription)
	assert.Equal(t, 2.0, *order.Prescription.OD.Sphere)
	assert.Equal(t, 63.0, *order.Prescription.PupillaryDistance)
	assert.Nil(t, order.Prescription.OD.Addition)
	assert.Equal(t, "SPH=+2.00;+2.00", order.TracingPayload)

	_, err = adapter.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	result := &entities.ValidationResult{
		OrderID:    "ord-a",
		CompanyID:  "co-1",
		IsValid:    false,
		Confidence: 80,
		Issues: []entities.ValidationIssue{{
			Kind:     entities.IssueKindPrescriptionMismatch,
			Severity: entities.SeverityCritical,
			Field:    "od_sphere",
			Message:  "OD sphere mismatch",
		}},
		RecommendedQueue: entities.QueueLabTech,
		ValidatedAt:      time.Now().UTC(),
	}
	require.NoError(t, adapter.SaveValidationResult(ctx, result))

	pending, err = adapter.ListPending(ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"ord-b", "ord-c"}, pendingIDs(pending))

	err = adapter.SaveValidationResult(ctx, &entities.ValidationResult{OrderID: "missing", CompanyID: "co-1", ValidatedAt: time.Now()})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypePersistence))

	stats, err := database.NewValidationStatisticsAdapter(client.DBX()).GetStatistics(ctx, "co-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalValidations)
	assert.Equal(t, 0.0, stats.AutoApprovalRate)
	assert.Equal(t, 80.0, stats.AverageConfidence)
	require.Len(t, stats.CommonIssues, 1)
	assert.Equal(t, "od_sphere", stats.CommonIssues[0].Field)
	assert.Equal(t, 1, stats.CommonIssues[0].Count)
}
