package backtest

import (
	"math"

	"SignalForge/internal/domain/models"
)

// ProfitFactorCap stands in for an infinite profit factor (wins, no losses).
const ProfitFactorCap = 999.0

// Analyze aggregates trades in the given order. An empty list yields a zeroed result.
func Analyze(trades []models.Trade) models.BacktestResult {
	res := models.BacktestResult{Trades: make([]models.Trade, len(trades))}
	copy(res.Trades, trades)
	n := len(trades)
	if n == 0 {
		return res
	}

	var grossWin, grossLoss, total float64
	var equity, peak, maxDD float64
	returns := make([]float64, n)
	for i, t := range trades {
		switch t.Outcome {
		case models.OutcomeWin:
			res.Wins++
		case models.OutcomeLoss:
			res.Losses++
		default:
			res.Breakevens++
		}
		if t.PnLPct > 0 {
			grossWin += t.PnLPct
		} else {
			grossLoss += t.PnLPct
		}
		total += t.PnLPct
		returns[i] = t.PnLPct

		equity += t.PnLPct
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}
	}

	res.TotalTrades = n
	res.WinRate = round4(float64(res.Wins) / float64(n) * 100)
	res.TotalPnL = round4(total)
	res.AvgPnLPerTrade = round4(total / float64(n))
	res.MaxDrawdown = round4(maxDD)
	res.ProfitFactor = profitFactor(grossWin, grossLoss)
	res.SharpeRatio = round4(sharpe(returns))
	return res
}

func profitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossWin > 0 {
			return ProfitFactorCap
		}
		return 0
	}
	return round4(grossWin / math.Abs(grossLoss))
}

// sharpe is mean/stdev*sqrt(n) over per-trade returns, not annualized.
func sharpe(returns []float64) float64 {
	n := float64(len(returns))
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= n
	ss := 0.0
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(ss / (n - 1))
	if sd == 0 {
		return 0
	}
	return mean / sd * math.Sqrt(n)
}
