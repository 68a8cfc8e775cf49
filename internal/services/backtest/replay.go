package backtest

import "SignalForge/internal/domain/models"

// Replay simulates signals against bars and analyzes the resulting trades.
func Replay(params models.TradingParams, signals []models.Signal, bars map[string][]models.Bar) (models.BacktestResult, error) {
	sim, err := NewSimulator(params)
	if err != nil {
		return models.BacktestResult{}, err
	}
	trades, warnings, err := sim.Run(signals, bars)
	if err != nil {
		return models.BacktestResult{}, err
	}
	res := Analyze(trades)
	res.Warnings = warnings
	res.SkippedSignals = len(warnings)
	return res, nil
}
