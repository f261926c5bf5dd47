package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/evaluation"
	"github.com/zatekoja/opticalqc/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
	"github.com/zatekoja/opticalqc/pkg/config"
)

var demoCompanies = []string{"lab-north", "lab-south"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("seed", "development", cfg.LogLevel)

	pgClient, err := postgres.NewClient(context.Background(), &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	ctx := context.Background()

	if os.Getenv("APPLY_MIGRATIONS") == "true" {
		schema, err := os.ReadFile("migrations/0001_orders.up.sql")
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read migration")
		}
		if _, err := pgClient.DB().ExecContext(ctx, string(schema)); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migration")
		}
		log.Info().Msg("Schema applied")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE order_validations, orders`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	golden, err := evaluation.LoadGoldenOrders("config/golden_orders.json")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load demo orders")
	}

	db := goqu.New("postgres", pgClient.DB())
	created := time.Now().Add(-time.Hour)

	rows := make([]interface{}, 0, len(golden)*len(demoCompanies))
	for _, company := range demoCompanies {
		for _, g := range golden {
			created = created.Add(time.Second)
			rows = append(rows, orderRecord(company+"-"+g.ID, company, g, created))
		}
	}

	query, args, err := db.Insert("orders").Prepared(true).Rows(rows...).
		OnConflict(goqu.DoNothing()).ToSQL()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build insert")
	}

	result, err := pgClient.DB().ExecContext(ctx, query, args...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed orders")
	}
	inserted, _ := result.RowsAffected()

	log.Info().Int64("inserted", inserted).Int("companies", len(demoCompanies)).Msg("Seeding complete")
}

func orderRecord(id, company string, g evaluation.GoldenOrder, created time.Time) goqu.Record {
	rx := g.Prescription
	if rx == nil {
		rx = &entities.PrescriptionValues{}
	}

	record := goqu.Record{
		"id":                 id,
		"company_id":         company,
		"status":             string(entities.OrderStatusPending),
		"od_sphere":          rx.OD.Sphere,
		"od_cylinder":        rx.OD.Cylinder,
		"od_axis":            rx.OD.Axis,
		"od_addition":        rx.OD.Addition,
		"od_prism":           rx.OD.Prism,
		"os_sphere":          rx.OS.Sphere,
		"os_cylinder":        rx.OS.Cylinder,
		"os_axis":            rx.OS.Axis,
		"os_addition":        rx.OS.Addition,
		"os_prism":           rx.OS.Prism,
		"pupillary_distance": rx.PupillaryDistance,
		"tracing_payload":    nil,
		"created_at":         created,
	}
	if g.Tracing != "" {
		record["tracing_payload"] = g.Tracing
	}
	return record
}
