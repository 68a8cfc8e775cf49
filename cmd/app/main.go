package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"SignalForge/internal/di"
	"SignalForge/pkg/config"
)

var rootCmd = &cobra.Command{
	Use:   "signalforge",
	Short: "Institutional-context trading signal scanner",
	Long: `SignalForge scans a watchlist for institutional setups, scores them
against cross-asset and macro confluence, filters them by market regime and
publishes the survivors as alerts. Recorded signals can be replayed against
historical bars to measure their performance.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the live scanner and HTTP API",
	RunE:  runServe,
}

var serveConfigPath string

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "config/config.yaml", "config file path")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(backtestCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadWithEnv(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	app.SetCleanup(cleanup)

	return app.Run(context.Background())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
