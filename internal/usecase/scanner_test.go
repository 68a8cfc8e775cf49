package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func newTestScanner(t *testing.T, macro *fakeMacro, metrics *recMetrics, alerts *fakeAlerts, symbols ...string) *Scanner {
	market, inst := squeezeProviders()
	p := newTestPipeline(t, market, inst, metrics)
	return NewScanner(p, macro, alerts, NewSignalBook(10), metrics, nil, ScannerConfig{Symbols: symbols, Workers: 2})
}

func TestScanner_CycleEmitsAndSkips(t *testing.T) {
	metrics := newRecMetrics()
	alerts := &fakeAlerts{}
	sc := newTestScanner(t, &fakeMacro{err: errDown}, metrics, alerts, "AAPL", "NOPE")

	rep := sc.RunCycle(context.Background())
	assert.Equal(t, models.RegimeChoppy, rep.Regime.Regime)
	assert.Equal(t, 1, rep.Evaluated)
	assert.Equal(t, 1, rep.Skipped)
	assert.False(t, rep.Aborted)
	assert.Equal(t, "insufficient_data", metrics.skipped["NOPE"])
	assert.Equal(t, 1, metrics.errors["macro_regime"])

	require.NotEmpty(t, alerts.sent)
	assert.Equal(t, rep.Emitted, len(alerts.sent))
	assert.Equal(t, rep.Emitted, metrics.signals["emitted"])
	assert.Len(t, sc.Book().Recent("aapl", 10, false), rep.Emitted)

	second := sc.RunCycle(context.Background())
	assert.Zero(t, second.Emitted)
	assert.Equal(t, rep.Emitted+rep.Rejected, second.Suppressed)
}

func TestScanner_ReusesLastMacro(t *testing.T) {
	macro := &fakeMacro{ctx: models.MacroContext{Regime: models.RegimeUptrend, Bias: 0.4}}
	sc := newTestScanner(t, macro, newRecMetrics(), &fakeAlerts{}, "AAPL")

	assert.Equal(t, models.RegimeUptrend, sc.RunCycle(context.Background()).Regime.Regime)
	macro.err = errDown
	assert.Equal(t, models.RegimeUptrend, sc.RunCycle(context.Background()).Regime.Regime)
}

func TestScanner_StopBetweenSymbols(t *testing.T) {
	alerts := &fakeAlerts{}
	sc := newTestScanner(t, &fakeMacro{ctx: models.MacroContext{Regime: models.RegimeChoppy}}, newRecMetrics(), alerts, "AAPL", "AAPL")
	sc.Stop()

	rep := sc.RunCycle(context.Background())
	assert.True(t, rep.Aborted)
	assert.Zero(t, rep.Evaluated)
	assert.Empty(t, alerts.sent)
}

func TestScanner_RunHonoursCancel(t *testing.T) {
	sc := newTestScanner(t, &fakeMacro{ctx: models.MacroContext{Regime: models.RegimeChoppy}}, newRecMetrics(), &fakeAlerts{}, "AAPL")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sc.Run(ctx), context.Canceled)
}

func TestSignalBook_RecentNewestFirst(t *testing.T) {
	b := NewSignalBook(3)
	b.Add(
		models.Signal{ID: "1", Symbol: "AAPL"},
		models.Signal{ID: "2", Symbol: "MSFT", IsMaster: true},
		models.Signal{ID: "3", Symbol: "AAPL", IsMaster: true},
		models.Signal{ID: "4", Symbol: "AAPL"},
	)
	assert.Equal(t, 3, b.Len())

	ids := func(sigs []models.Signal) []string {
		out := []string{}
		for _, s := range sigs {
			out = append(out, s.ID)
		}
		return out
	}
	assert.Equal(t, []string{"4", "3", "2"}, ids(b.Recent("", 10, false)))
	assert.Equal(t, []string{"4", "3"}, ids(b.Recent("AAPL", 10, false)))
	assert.Equal(t, []string{"3"}, ids(b.Recent("aapl", 10, true)))
	assert.Equal(t, []string{"4"}, ids(b.Recent("", 1, false)))
}
