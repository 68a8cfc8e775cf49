package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"SignalForge/internal/di"
	"SignalForge/internal/domain/models"
	"SignalForge/internal/repository"
	"SignalForge/pkg/config"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay recorded signals against historical bars",
	Long: `Replays a JSON array of signals against a JSON object of bars keyed by
symbol and reports trade-level results plus aggregate performance.

Without --out the full report is printed to stdout.`,
	Example: `  signalforge backtest --signals signals.json --bars bars.json
  signalforge backtest --signals signals.json --bars bars.json --dedup --out out/report.json`,
	RunE: runBacktest,
}

var (
	btSignalsPath string
	btBarsPath    string
	btOutPath     string
	btConfigPath  string
	btDedup       bool
)

func init() {
	backtestCmd.Flags().StringVar(&btSignalsPath, "signals", "", "JSON file with recorded signals")
	backtestCmd.Flags().StringVar(&btBarsPath, "bars", "", "JSON file with bars keyed by symbol")
	backtestCmd.Flags().StringVar(&btOutPath, "out", "", "report output path (default stdout)")
	backtestCmd.Flags().StringVar(&btConfigPath, "config", "", "optional config file for trading params")
	backtestCmd.Flags().BoolVar(&btDedup, "dedup", false, "apply signal cooldown before replay")

	_ = backtestCmd.MarkFlagRequired("signals")
	_ = backtestCmd.MarkFlagRequired("bars")
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfg, err := backtestConfig()
	if err != nil {
		return err
	}
	cfg.Backtest.ReportPath = btOutPath

	var signals []models.Signal
	if err := readJSON(btSignalsPath, &signals); err != nil {
		return err
	}
	var bars map[string][]models.Bar
	if err := readJSON(btBarsPath, &bars); err != nil {
		return err
	}

	uc, cleanup, err := di.InitializeBacktest(cfg)
	if err != nil {
		return fmt.Errorf("initialize backtest: %w", err)
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := uc.Run(ctx, models.BacktestRequest{
		Signals: signals,
		Bars:    bars,
		Params:  cfg.Backtest.Params,
		Dedup:   btDedup,
	})
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	if btOutPath == "" {
		return repository.NewJSONReportSink("", cmd.OutOrStdout()).Write(ctx, res)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backtest complete: %d trades (%d wins, %d losses, %d breakeven)\n",
		res.TotalTrades, res.Wins, res.Losses, res.Breakevens)
	fmt.Fprintf(out, "  win rate %.1f%%  total pnl %.2f  profit factor %.2f  max drawdown %.2f  sharpe %.2f\n",
		res.WinRate, res.TotalPnL, res.ProfitFactor, res.MaxDrawdown, res.SharpeRatio)
	if res.SkippedSignals > 0 {
		fmt.Fprintf(out, "  %d signals skipped\n", res.SkippedSignals)
	}
	fmt.Fprintf(out, "Report written to %s\n", btOutPath)
	return nil
}

// backtestConfig uses defaults unless a file is given; a replay needs none of
// the live service settings.
func backtestConfig() (*config.Config, error) {
	if btConfigPath == "" {
		return config.Default()
	}
	cfg, err := config.LoadOffline(btConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func readJSON(path string, v interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
