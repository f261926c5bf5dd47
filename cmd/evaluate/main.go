package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/opticalqc/internal/adapters/tracing"
	"github.com/zatekoja/opticalqc/internal/app"
	"github.com/zatekoja/opticalqc/internal/application/validation"
	"github.com/zatekoja/opticalqc/internal/evaluation"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
	"github.com/zatekoja/opticalqc/pkg/config"
)

func main() {
	goldenPath := flag.String("golden", "config/golden_orders.json", "path to the golden order set")
	minAccuracy := flag.Float64("min-accuracy", 0.9, "minimum queue accuracy")
	maxFalseAuto := flag.Float64("max-false-auto-approval", 0, "maximum false auto-approval rate")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-evaluate", "development", cfg.LogLevel)

	rules, err := app.BuildRules(cfg.Validation)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build validation rules")
	}

	orders, err := evaluation.LoadGoldenOrders(*goldenPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load golden orders")
	}
	if err := evaluation.ValidateGoldenOrders(orders); err != nil {
		log.Fatal().Err(err).Msg("Invalid golden order set")
	}

	runner := evaluation.NewRunner(tracing.NewOMAParser(), validation.NewEngine(rules))
	summary, err := runner.Run(context.Background(), orders)
	if err != nil {
		log.Fatal().Err(err).Msg("Evaluation failed")
	}

	// Output results as JSON
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))

	guardrails := evaluation.NewGuardrails(evaluation.GuardrailConfig{
		MinQueueAccuracy:         *minAccuracy,
		MaxFalseAutoApprovalRate: *maxFalseAuto,
	})
	if violations := guardrails.Check(summary); len(violations) > 0 {
		for _, v := range violations {
			log.Error().Str("guardrail", v).Msg("Rule set failed evaluation")
		}
		os.Exit(2)
	}
}
