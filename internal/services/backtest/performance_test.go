package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SignalForge/internal/domain/models"
)

func trade(pnl float64) models.Trade {
	t := models.Trade{Symbol: "SPY", PnLPct: pnl}
	switch {
	case pnl > 0:
		t.Outcome = models.OutcomeWin
	case pnl < 0:
		t.Outcome = models.OutcomeLoss
	default:
		t.Outcome = models.OutcomeBreakeven
	}
	return t
}

func TestAnalyze_Empty(t *testing.T) {
	res := Analyze(nil)
	assert.Zero(t, res.TotalTrades)
	assert.Zero(t, res.WinRate)
	assert.Zero(t, res.TotalPnL)
	assert.Zero(t, res.ProfitFactor)
	assert.Zero(t, res.SharpeRatio)
	assert.NotNil(t, res.Trades)
	assert.Empty(t, res.Trades)
}

func TestAnalyze_Metrics(t *testing.T) {
	res := Analyze([]models.Trade{trade(1), trade(-0.75), trade(-0.75), trade(1), trade(0)})
	assert.Equal(t, 5, res.TotalTrades)
	assert.Equal(t, 2, res.Wins)
	assert.Equal(t, 2, res.Losses)
	assert.Equal(t, 1, res.Breakevens)
	assert.InDelta(t, 40.0, res.WinRate, 1e-9)
	assert.InDelta(t, 0.5, res.TotalPnL, 1e-9)
	assert.InDelta(t, 0.1, res.AvgPnLPerTrade, 1e-9)
	assert.InDelta(t, 2/1.5, res.ProfitFactor, 1e-4)
	// equity: 1, 0.25, -0.5, 0.5, 0.5 -> peak 1, trough -0.5
	assert.InDelta(t, 1.5, res.MaxDrawdown, 1e-9)
	assert.Greater(t, res.SharpeRatio, 0.0)
}

func TestAnalyze_ProfitFactorSentinel(t *testing.T) {
	assert.Equal(t, ProfitFactorCap, Analyze([]models.Trade{trade(1), trade(0.5)}).ProfitFactor)
	assert.Zero(t, Analyze([]models.Trade{trade(0)}).ProfitFactor)
}

func TestAnalyze_SharpeZeroStdev(t *testing.T) {
	res := Analyze([]models.Trade{trade(1), trade(1), trade(1)})
	assert.Zero(t, res.SharpeRatio)
	assert.Zero(t, res.MaxDrawdown)
}

func TestAnalyze_DoesNotAliasInput(t *testing.T) {
	in := []models.Trade{trade(1)}
	res := Analyze(in)
	res.Trades[0].PnLPct = 42
	assert.Equal(t, 1.0, in[0].PnLPct)
}
