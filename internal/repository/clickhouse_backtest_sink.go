package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgch "SignalForge/pkg/clickhouse"
)

var _ domrepo.BacktestReportSink = (*CHBacktestSink)(nil)

// CHBacktestSink records one run summary row plus one row per trade.
type CHBacktestSink struct {
	db       *sql.DB
	database string
	now      func() time.Time
	newID    func() string
}

func NewCHBacktestSink(db *sql.DB, database string) *CHBacktestSink {
	return &CHBacktestSink{db: db, database: database, now: time.Now, newID: uuid.NewString}
}

var tradeColumns = []string{
	"run_id", "signal_id", "symbol", "action", "kind", "entry_time", "entry_price",
	"stop_price", "target_price", "exit_time", "exit_price", "exit_reason", "pnl_pct", "position_pnl_pct", "outcome",
}

func (s *CHBacktestSink) Write(ctx context.Context, r models.BacktestResult) error {
	runID := s.newID()
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s.backtest_runs (run_id, created_at, total_trades, wins, losses, breakevens,
			win_rate, avg_pnl, total_pnl, profit_factor, max_drawdown, sharpe, skipped_signals)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.database),
		runID, s.now().UTC(), uint32(r.TotalTrades), uint32(r.Wins), uint32(r.Losses), uint32(r.Breakevens),
		r.WinRate, r.AvgPnLPerTrade, r.TotalPnL, r.ProfitFactor, r.MaxDrawdown, r.SharpeRatio, uint32(r.SkippedSignals),
	)
	if err != nil {
		return fmt.Errorf("insert backtest run: %w", err)
	}

	rows := make([][]any, 0, len(r.Trades))
	for _, t := range r.Trades {
		rows = append(rows, []any{runID, t.SignalID, t.Symbol, string(t.Action), string(t.Kind),
			t.EntryTime.UTC(), t.EntryPrice, t.StopPrice, t.TargetPrice,
			t.ExitTime.UTC(), t.ExitPrice, string(t.ExitReason), t.PnLPct, t.PositionPnLPct, string(t.Outcome)})
	}
	if err := pkgch.BulkInsert(ctx, s.db, s.database+".backtest_trades", tradeColumns, rows, pkgch.DefaultChunk); err != nil {
		return fmt.Errorf("insert backtest trades: %w", err)
	}
	return nil
}
