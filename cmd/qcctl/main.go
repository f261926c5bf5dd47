package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
	"github.com/zatekoja/opticalqc/pkg/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "qcctl",
	Short: "Operate the lens order validation engine",
	Long: `qcctl validates lens orders against their frame tracing files and
reports validation outcomes.

Commands that touch orders read the same DB_* and REDIS_* environment
variables as the API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		observability.InitLogger(cfg.OTEL.ServiceName+"-cli", "development", cfg.LogLevel)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, sweepCmd, statsCmd, parseCmd, rulesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
