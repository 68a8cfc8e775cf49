package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/backtest"
	"SignalForge/internal/services/dedup"
	applogger "SignalForge/pkg/logger"
)

type BacktestConfig struct {
	Workers int                  `yaml:"workers" default:"4"`
	Params  models.TradingParams `yaml:"params"`
	Dedup   dedup.Config         `yaml:"dedup"`
}

// BacktestUseCase replays recorded signals. Symbols are simulated in parallel;
// the merged trade list is ordered by entry time, then symbol, then signal id.
type BacktestUseCase struct {
	sinks   []domrepo.BacktestReportSink
	log     *applogger.Logger
	cfg     BacktestConfig
	metrics domrepo.Metrics
}

func NewBacktestUseCase(cfg BacktestConfig, metrics domrepo.Metrics, log *applogger.Logger, sinks ...domrepo.BacktestReportSink) *BacktestUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &BacktestUseCase{sinks: sinks, log: log, cfg: cfg, metrics: metrics}
}

// DefaultParams returns the configured trading params.
func (u *BacktestUseCase) DefaultParams() models.TradingParams { return u.cfg.Params }

// Run validates the request, replays it and writes the result to every sink.
// Invalid params and out-of-order input fail before any trade is simulated.
func (u *BacktestUseCase) Run(ctx context.Context, req models.BacktestRequest) (models.BacktestResult, error) {
	start := time.Now()
	sim, err := backtest.NewSimulator(req.Params)
	if err != nil {
		return models.BacktestResult{}, err
	}
	if err := backtest.CheckOrder(req.Signals, req.Bars); err != nil {
		return models.BacktestResult{}, err
	}

	sigs := req.Signals
	warnings := []string{}
	if req.Dedup {
		// A fresh store per run keeps replays isolated from live cooldown state.
		tracker := dedup.NewTracker(dedup.NewMemoryStore(), u.cfg.Dedup)
		allowed, suppressed, err := tracker.Filter(ctx, sigs)
		if err != nil {
			return models.BacktestResult{}, fmt.Errorf("backtest dedup: %w", err)
		}
		for _, s := range suppressed {
			warnings = append(warnings, fmt.Sprintf("suppressed %s %s %s at %s: inside cooldown",
				s.Symbol, s.Action, s.Kind, s.Timestamp.Format(time.RFC3339)))
		}
		sigs = allowed
	}

	bySymbol := make(map[string][]models.Signal)
	for _, s := range sigs {
		bySymbol[s.Symbol] = append(bySymbol[s.Symbol], s)
	}
	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	type partial struct {
		trades   []models.Trade
		warnings []string
	}
	parts := make([]partial, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			trades, warns, err := sim.Run(bySymbol[sym], map[string][]models.Bar{sym: req.Bars[sym]})
			if err != nil {
				return fmt.Errorf("backtest %s: %w", sym, err)
			}
			parts[i] = partial{trades: trades, warnings: warns}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.BacktestResult{}, err
	}

	var trades []models.Trade
	for _, p := range parts {
		trades = append(trades, p.trades...)
		warnings = append(warnings, p.warnings...)
	}
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.EntryTime.Equal(b.EntryTime) {
			return a.EntryTime.Before(b.EntryTime)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.SignalID < b.SignalID
	})

	res := backtest.Analyze(trades)
	res.Warnings = warnings
	res.SkippedSignals = len(warnings)
	if u.metrics != nil {
		u.metrics.RecordLatency("backtest", time.Since(start).Seconds())
	}

	for _, sink := range u.sinks {
		if err := sink.Write(ctx, res); err != nil {
			u.log.Error("backtest sink write failed", applogger.Error(err))
			if u.metrics != nil {
				u.metrics.RecordError("backtest_sink")
			}
		}
	}
	u.log.Info("backtest done",
		applogger.Int("signals", len(req.Signals)),
		applogger.Int("trades", res.TotalTrades),
		applogger.Float64("win_rate", res.WinRate),
		applogger.Float64("total_pnl", res.TotalPnL),
		applogger.Int("skipped", res.SkippedSignals),
	)
	return res, nil
}
