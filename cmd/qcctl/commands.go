package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zatekoja/opticalqc/internal/adapters/tracing"
	"github.com/zatekoja/opticalqc/internal/app"
)

var statsCompany string

var validateCmd = &cobra.Command{
	Use:   "validate <order-id>",
	Short: "Validate a single order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			result, err := c.Validation.ValidateOrder(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Validate every pending order once",
	Long: `Validate every pending order that has no validation result yet, reading
SWEEP_BATCH_SIZE orders per page and using SWEEP_CONCURRENCY workers.
Interrupting the sweep prints the counts for the orders that finished.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			stats, err := c.Sweep.ValidatePendingOrders(ctx)
			if stats != nil {
				if printErr := printJSON(cmd.OutOrStdout(), stats); printErr != nil {
					return printErr
				}
			}
			return err
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate validation statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			stats, err := c.StatisticsService.GetValidationStatistics(ctx, statsCompany)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		})
	},
}

var parseCmd = &cobra.Command{
	Use:   "parse <tracing-file>",
	Short: "Parse an OMA tracing file and print the extracted values",
	Long:  `Parse a frame tracing file offline. Use - to read from stdin.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		parser := tracing.NewOMAParser()
		if !parser.IsValidTracingFile(payload) {
			return fmt.Errorf("%s is not a recognized tracing file", args[0])
		}
		data, err := parser.ParseTracingFile(payload)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), data)
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print the effective validation rules",
	Long: `Print the rule set the engine would run with: the defaults, overlaid
with VALIDATION_RULES_PATH and the VALIDATION_* routing thresholds.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := app.BuildRules(cfg.Validation)
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(rules)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsCompany, "company", "", "restrict statistics to one company")
}

// withContainer runs fn with connected services and a context cancelled on interrupt.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(ctx, c)
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
