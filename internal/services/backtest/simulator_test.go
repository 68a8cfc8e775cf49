package backtest

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func TestReplay_RecordedSession(t *testing.T) {
	signals, bars := recordedSession()
	require.Len(t, signals, 62)

	res, err := Replay(fixtureParams(), signals, bars)
	require.NoError(t, err)

	assert.Equal(t, 62, res.TotalTrades)
	assert.Equal(t, 22, res.Wins)
	assert.Equal(t, 40, res.Losses)
	assert.InDelta(t, 35.5, res.WinRate, 0.05)
	assert.InDelta(t, -6.85, res.TotalPnL, 1e-9)
	assert.Empty(t, res.Warnings)

	timeExits := 0
	for _, tr := range res.Trades {
		if tr.ExitReason == models.ExitTimeExit {
			timeExits++
			assert.Equal(t, "IWM", tr.Symbol, describe(tr))
			assert.InDelta(t, -0.175, tr.PnLPct, 1e-9)
			assert.Equal(t, 16, tr.ExitTime.Hour())
		}
	}
	assert.Equal(t, 2, timeExits)
}

func TestReplay_Deterministic(t *testing.T) {
	signals, bars := recordedSession()

	a, err := Replay(fixtureParams(), signals, bars)
	require.NoError(t, err)
	b, err := Replay(fixtureParams(), signals, bars)
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestRun_ReplayOrderError(t *testing.T) {
	sim, err := NewSimulator(fixtureParams())
	require.NoError(t, err)
	ts := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)

	signals := []models.Signal{alert("SPY", models.ActionBuy, 560, ts), alert("SPY", models.ActionBuy, 561, ts.Add(-time.Minute))}
	_, _, err = sim.Run(signals, nil)
	var oe *models.ReplayOrderError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, 1, oe.Index)
	assert.Equal(t, "signals", oe.Input)

	bars := map[string][]models.Bar{"SPY": {
		{Symbol: "SPY", Time: ts.Add(2 * time.Minute), Open: 560, High: 560, Low: 560, Close: 560},
		{Symbol: "SPY", Time: ts.Add(time.Minute), Open: 560, High: 560, Low: 560, Close: 560},
	}}
	_, _, err = sim.Run(signals[:1], bars)
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "bars SPY", oe.Input)
}

func TestNewSimulator_InvalidParams(t *testing.T) {
	p := fixtureParams()
	p.StopLossPct = 0
	_, err := NewSimulator(p)
	assert.ErrorIs(t, err, models.ErrInvalidParams)

	_, err = Replay(p, nil, nil)
	assert.ErrorIs(t, err, models.ErrInvalidParams)
}

func bar(at time.Time, o, h, l, c float64) models.Bar {
	return models.Bar{Symbol: "SPY", Time: at, Open: o, High: h, Low: l, Close: c, Volume: 1000}
}

func TestRun_ExitRules(t *testing.T) {
	ts := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	sim, err := NewSimulator(fixtureParams())
	require.NoError(t, err)

	cases := []struct {
		name   string
		action models.Action
		bars   []models.Bar
		reason models.ExitReason
		price  float64
	}{
		{
			name:   "bar at signal time is ignored",
			action: models.ActionBuy,
			bars: []models.Bar{
				bar(ts, 400, 500, 300, 400),
				bar(ts.Add(time.Minute), 400, 404.5, 399, 404),
			},
			reason: models.ExitTarget, price: 404,
		},
		{
			name:   "gap down through stop fills at open",
			action: models.ActionBuy,
			bars:   []models.Bar{bar(ts.Add(time.Minute), 395, 396, 394, 395)},
			reason: models.ExitStop, price: 395,
		},
		{
			name:   "gap up through target fills at open",
			action: models.ActionBuy,
			bars:   []models.Bar{bar(ts.Add(time.Minute), 406, 407, 405, 406)},
			reason: models.ExitTarget, price: 406,
		},
		{
			name:   "stop and target in the same bar resolve to stop",
			action: models.ActionBuy,
			bars:   []models.Bar{bar(ts.Add(time.Minute), 400, 405, 396, 402)},
			reason: models.ExitStop, price: 397,
		},
		{
			name:   "sell target",
			action: models.ActionSell,
			bars:   []models.Bar{bar(ts.Add(time.Minute), 400, 401, 395, 396)},
			reason: models.ExitTarget, price: 396,
		},
		{
			name:   "session close exits at open",
			action: models.ActionSell,
			bars: []models.Bar{
				bar(ts.Add(time.Minute), 400, 401, 399, 400),
				bar(ts.Add(2*time.Hour), 398, 399, 390, 391),
			},
			reason: models.ExitTimeExit, price: 398,
		},
		{
			name:   "bars exhausted exits at last close",
			action: models.ActionBuy,
			bars: []models.Bar{
				bar(ts.Add(time.Minute), 400, 401, 399, 400.5),
				bar(ts.Add(2*time.Minute), 400.5, 401, 399.5, 400.8),
			},
			reason: models.ExitTimeExit, price: 400.8,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := alert("SPY", tc.action, 400, ts)
			trades, warnings, err := sim.Run([]models.Signal{s}, map[string][]models.Bar{"SPY": tc.bars})
			require.NoError(t, err)
			require.Empty(t, warnings)
			require.Len(t, trades, 1)
			assert.Equal(t, tc.reason, trades[0].ExitReason)
			assert.InDelta(t, tc.price, trades[0].ExitPrice, 1e-9)
			assert.Equal(t, s.ID, trades[0].SignalID)
		})
	}
}

func TestRun_OneOpenTradePerSymbol(t *testing.T) {
	ts := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	signals := []models.Signal{
		alert("SPY", models.ActionBuy, 400, ts),
		alert("SPY", models.ActionBuy, 400.5, ts.Add(2*time.Minute)),
		alert("SPY", models.ActionBuy, 401, ts.Add(10*time.Minute)),
	}
	bars := map[string][]models.Bar{"SPY": {
		bar(ts.Add(time.Minute), 400, 401, 399.5, 400.5),
		bar(ts.Add(3*time.Minute), 400.5, 401, 399.8, 400.9),
		bar(ts.Add(5*time.Minute), 400.9, 404.2, 400.5, 404),
		bar(ts.Add(11*time.Minute), 401, 405, 400.5, 404.5),
	}}

	res, err := Replay(fixtureParams(), signals, bars)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalTrades)
	assert.Equal(t, 1, res.SkippedSignals)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "position open")

	p := fixtureParams()
	p.AllowOverlap = true
	res, err = Replay(p, signals, bars)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalTrades)
	assert.Zero(t, res.SkippedSignals)
}

func TestRun_SignalLevelsAndMaxHold(t *testing.T) {
	ts := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	s := alert("SPY", models.ActionBuy, 400, ts)
	bars := map[string][]models.Bar{"SPY": {
		bar(ts.Add(time.Minute), 400, 404.5, 399, 404),
		bar(ts.Add(20*time.Minute), 404, 406.5, 403, 406),
	}}

	p := fixtureParams()
	p.UseSignalLevels = true
	res, err := Replay(p, []models.Signal{s}, bars)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, models.ExitTarget, res.Trades[0].ExitReason)
	assert.InDelta(t, s.Target, res.Trades[0].ExitPrice, 1e-9)

	p.MaxHoldMinutes = 10
	res, err = Replay(p, []models.Signal{s}, bars)
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, models.ExitTimeExit, res.Trades[0].ExitReason)
	assert.Equal(t, 404.0, res.Trades[0].ExitPrice)
}

func TestRun_NoBarsAfterSignal(t *testing.T) {
	ts := time.Date(2025, 3, 14, 14, 0, 0, 0, time.UTC)
	res, err := Replay(fixtureParams(), []models.Signal{alert("TSLA", models.ActionBuy, 250, ts)}, nil)
	require.NoError(t, err)
	assert.Zero(t, res.TotalTrades)
	assert.Equal(t, 1, res.SkippedSignals)
	assert.NotNil(t, res.Trades)
}
