package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/confluence"
	"SignalForge/internal/services/dedup"
	"SignalForge/internal/services/institutional"
	"SignalForge/internal/services/normalizer"
	"SignalForge/internal/services/regime"
	"SignalForge/internal/services/signals"
	"SignalForge/pkg/cache"
)

var pipelineNow = time.Date(2025, 1, 15, 15, 30, 0, 0, time.UTC)

// squeezeProviders sets up AAPL holding a heavy support level with crowded shorts.
func squeezeProviders() (*fakeMarket, *fakeInst) {
	market := &fakeMarket{quotes: map[string]models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 665, PrevClose: 664, Timestamp: pipelineNow},
		"SPY":  {Symbol: "SPY", Price: 600, PrevClose: 598, Timestamp: pipelineNow},
	}}
	inst := &fakeInst{
		levels: map[string][]models.RawRecord{"AAPL": {{"price": 662.0, "volume": 2_200_000.0, "type": "support"}, {"volume": 1.0}}},
		short:  map[string][]models.RawRecord{"AAPL": {{"short_interest_pct": 22.0, "borrow_fee_pct": 8.5}}},
	}
	return market, inst
}

func newTestPipeline(t *testing.T, market *fakeMarket, inst *fakeInst, metrics *recMetrics) *Pipeline {
	t.Helper()
	gw := NewGateway(market, inst, cache.NewMemoryCache(), metrics, nil, testGatewayConfig())
	p, err := NewPipeline(gw,
		normalizer.New(normalizer.DefaultConfig()),
		institutional.NewBuilder(institutional.DefaultConfig(), nil),
		signals.NewGenerator(signals.DefaultConfig()),
		confluence.NewScorer(confluence.DefaultConfig()),
		dedup.NewTracker(dedup.NewMemoryStore(), dedup.DefaultConfig()),
		regime.NewFilter(regime.DefaultFilterConfig()),
		nil,
		PipelineConfig{Location: "UTC", DefaultPeer: "SPY"},
	)
	require.NoError(t, err)
	p.now = func() time.Time { return pipelineNow }
	return p
}

func squeezes(sigs []models.Signal) []models.Signal {
	var out []models.Signal
	for _, s := range sigs {
		if s.Kind == models.KindSqueeze {
			out = append(out, s)
		}
	}
	return out
}

func TestPipeline_SnapshotWarnsAndScores(t *testing.T) {
	market, inst := squeezeProviders()
	p := newTestPipeline(t, market, inst, newRecMetrics())

	snap, err := p.Snapshot(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", snap.Context.Symbol)
	require.NotNil(t, snap.Peer)
	assert.Equal(t, "SPY", snap.Peer.Symbol)
	assert.Equal(t, 0.5, snap.Context.DataCompleteness)
	assert.Contains(t, snap.Warnings, "levels: dropped 1 malformed records")
	assert.Contains(t, snap.Warnings, "prints unavailable: excluded from scoring")
	require.NotNil(t, snap.Context.ShortInterest)
	assert.Equal(t, 22.0, snap.Context.ShortInterest.ShortInterestPct)
}

func TestPipeline_EmitsThenSuppresses(t *testing.T) {
	market, inst := squeezeProviders()
	p := newTestPipeline(t, market, inst, newRecMetrics())
	macro := models.MacroContext{Regime: models.RegimeUptrend, Bias: 0.5}

	ev, err := p.Evaluate(context.Background(), "AAPL", macro)
	require.NoError(t, err)
	emitted := squeezes(ev.Emitted)
	require.Len(t, emitted, 1)
	s := emitted[0]
	assert.Equal(t, models.ActionBuy, s.Action)
	assert.Contains(t, s.Rationale, "confluence")
	cs, ok := ev.Confluence[s.ID]
	require.True(t, ok)
	assert.Equal(t, models.BiasBullish, cs.Bias)

	again, err := p.Evaluate(context.Background(), "AAPL", macro)
	require.NoError(t, err)
	assert.Empty(t, squeezes(again.Emitted))
	assert.Len(t, squeezes(again.Suppressed), 1)
}

func TestPipeline_DowntrendRejectsLowConfidenceBuy(t *testing.T) {
	market, inst := squeezeProviders()
	p := newTestPipeline(t, market, inst, newRecMetrics())

	ev, err := p.Evaluate(context.Background(), "AAPL", models.MacroContext{Regime: models.RegimeDowntrend, Bias: -0.5})
	require.NoError(t, err)
	assert.Empty(t, squeezes(ev.Emitted))
	rejected := squeezes(ev.Rejected)
	require.Len(t, rejected, 1)
	assert.NotEmpty(t, rejected[0].Warnings)
}

func TestPipeline_InsufficientData(t *testing.T) {
	t.Run("no price", func(t *testing.T) {
		p := newTestPipeline(t, &fakeMarket{}, &fakeInst{}, newRecMetrics())
		_, err := p.Evaluate(context.Background(), "ZZZ", models.MacroContext{Regime: models.RegimeChoppy})
		var insufficient *models.InsufficientDataError
		assert.True(t, errors.As(err, &insufficient))
	})
	t.Run("no institutional inputs", func(t *testing.T) {
		market, _ := squeezeProviders()
		p := newTestPipeline(t, market, &fakeInst{fail: true}, newRecMetrics())
		snap, err := p.Snapshot(context.Background(), "AAPL")
		var insufficient *models.InsufficientDataError
		require.True(t, errors.As(err, &insufficient))
		assert.NotEmpty(t, snap.Warnings)
	})
}

func TestPipeline_InvalidLocation(t *testing.T) {
	_, err := NewPipeline(nil, nil, nil, nil, nil, nil, nil, nil, PipelineConfig{Location: "Nowhere/City"})
	assert.Error(t, err)
}
