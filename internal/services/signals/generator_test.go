package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

var now = time.Date(2025, 1, 15, 15, 30, 0, 0, time.UTC)

func support(price float64, volume int64) models.ClassifiedLevel {
	return models.ClassifiedLevel{
		Level: models.Level{Price: price, Volume: volume, Kind: models.LevelSupport, Strength: models.StrengthModerate},
		Role:  models.RoleSupport,
	}
}

func resistance(price float64, volume int64) models.ClassifiedLevel {
	return models.ClassifiedLevel{
		Level: models.Level{Price: price, Volume: volume, Kind: models.LevelResistance, Strength: models.StrengthStrong},
		Role:  models.RoleResistance,
	}
}

func ofKind(sigs []models.Signal, kind models.SignalKind) []models.Signal {
	var out []models.Signal
	for _, s := range sigs {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func flatBars(n int, price, volume float64) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = models.Bar{
			Symbol: "SPY",
			Time:   now.Add(time.Duration(i-n) * time.Minute),
			Open:   price, High: price + 0.2, Low: price - 0.2, Close: price,
			Volume: volume,
		}
	}
	return out
}

func TestSqueezeScenario(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	ctx := models.InstitutionalContext{
		Symbol:        "SPY",
		CurrentPrice:  665,
		Levels:        []models.ClassifiedLevel{support(662, 2_200_000)},
		ShortInterest: &models.ShortInterestRecord{ShortInterestPct: 22, BorrowFeePct: 8.5},
	}

	sigs := g.Generate(ctx, Market{Quote: models.Quote{Symbol: "SPY", Price: 665, Timestamp: now}})
	require.Len(t, sigs, 1)

	s := sigs[0]
	assert.Equal(t, models.KindSqueeze, s.Kind)
	assert.Equal(t, models.ActionBuy, s.Action)
	assert.Equal(t, 3.0, s.RiskRewardRatio)
	assert.True(t, s.Stop < s.Entry && s.Entry < s.Target)
	assert.InDelta(t, 662*0.995, s.Stop, 1e-9)
	assert.Equal(t, 662.0, s.LevelPrice)
	assert.InDelta(t, 0.598, s.Confidence, 1e-9)
	assert.False(t, s.IsMaster)
	assert.Equal(t, 0.5, s.PositionSizePct)
	assert.Equal(t, now, s.Timestamp)
	assert.NotEmpty(t, s.ID)
}

func TestSqueezeThresholdsAreStrict(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	ctx := models.InstitutionalContext{
		Symbol:        "SPY",
		Levels:        []models.ClassifiedLevel{support(662, 2_200_000)},
		ShortInterest: &models.ShortInterestRecord{ShortInterestPct: 15, BorrowFeePct: 8.5},
	}
	m := Market{Quote: models.Quote{Price: 665, Timestamp: now}}
	assert.Empty(t, g.Generate(ctx, m))

	// level too small
	ctx.ShortInterest.ShortInterestPct = 22
	ctx.Levels = []models.ClassifiedLevel{support(662, 900_000)}
	assert.Empty(t, g.Generate(ctx, m))

	// level too far
	ctx.Levels = []models.ClassifiedLevel{support(650, 2_200_000)}
	assert.Empty(t, g.Generate(ctx, m))
}

func TestConfidenceIsCapped(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	lvl := support(664, 9_000_000)
	lvl.Strength = models.StrengthStrong
	ctx := models.InstitutionalContext{
		Symbol:        "GME",
		Levels:        []models.ClassifiedLevel{lvl},
		ShortInterest: &models.ShortInterestRecord{ShortInterestPct: 60, BorrowFeePct: 60},
	}
	sigs := g.Generate(ctx, Market{Quote: models.Quote{Price: 665, Timestamp: now}})
	require.Len(t, sigs, 1)
	assert.Equal(t, models.MaxConfidence, sigs[0].Confidence)
	assert.True(t, sigs[0].IsMaster)
	assert.Equal(t, 1.0, sigs[0].PositionSizePct)
}

func TestGammaRampTargetsMaxPain(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	ctx := models.InstitutionalContext{
		Symbol:  "SPY",
		Options: &models.OptionsSummary{PutCallRatio: 0.6, CallOpenInterest: 20_000, MaxPain: 680},
	}
	sigs := ofKind(g.Generate(ctx, Market{Quote: models.Quote{Price: 665, Timestamp: now}}), models.KindGammaRamp)
	require.Len(t, sigs, 1)
	assert.Equal(t, 680.0, sigs[0].Target)
	assert.InDelta(t, 665*0.99, sigs[0].Stop, 1e-9)
	assert.Equal(t, 2.26, sigs[0].RiskRewardRatio)

	// max pain below price: no ramp
	ctx.Options = &models.OptionsSummary{PutCallRatio: 0.6, CallOpenInterest: 20_000, MaxPain: 660}
	assert.Empty(t, ofKind(g.Generate(ctx, Market{Quote: models.Quote{Price: 665, Timestamp: now}}), models.KindGammaRamp))
}

func TestBreakoutTargetsNextLevel(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	bars := flatBars(20, 100, 1000)
	bars = append(bars,
		models.Bar{Symbol: "SPY", Time: now.Add(-time.Minute), Open: 100, High: 100.6, Low: 99.9, Close: 100.5, Volume: 1000},
		models.Bar{Symbol: "SPY", Time: now, Open: 100.5, High: 101.6, Low: 100.4, Close: 101.5, Volume: 2500},
	)
	ctx := models.InstitutionalContext{
		Symbol: "SPY",
		Levels: []models.ClassifiedLevel{resistance(101, 3_000_000), resistance(105, 1_000_000)},
	}

	sigs := ofKind(g.Generate(ctx, Market{Quote: models.Quote{Price: 101.5, SessionOpen: 100, Timestamp: now}, Bars: bars}), models.KindBreakout)
	require.Len(t, sigs, 1)
	s := sigs[0]
	assert.Equal(t, models.ActionBuy, s.Action)
	assert.Equal(t, 101.5, s.Entry)
	assert.Equal(t, 105.0, s.Target)
	assert.Equal(t, 101.0, s.LevelPrice)
	assert.InDelta(t, 101*0.997, s.Stop, 1e-9)
}

func TestBreakoutNeedsVolume(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	bars := flatBars(20, 100, 1000)
	bars = append(bars,
		models.Bar{Time: now.Add(-time.Minute), Open: 100, High: 100.6, Low: 99.9, Close: 100.5, Volume: 1000},
		models.Bar{Time: now, Open: 100.5, High: 101.6, Low: 100.4, Close: 101.5, Volume: 1900},
	)
	ctx := models.InstitutionalContext{Symbol: "SPY", Levels: []models.ClassifiedLevel{resistance(101, 3_000_000)}}
	assert.Empty(t, ofKind(g.Generate(ctx, Market{Quote: models.Quote{Price: 101.5, Timestamp: now}, Bars: bars}), models.KindBreakout))
}

func TestBounceHammerOffSupport(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	bars := flatBars(20, 100.5, 1000)
	bars = append(bars, models.Bar{Time: now, Open: 100.3, High: 100.45, Low: 99.9, Close: 100.4, Volume: 1600})
	ctx := models.InstitutionalContext{Symbol: "SPY", Levels: []models.ClassifiedLevel{support(100, 2_000_000)}}

	sigs := ofKind(g.Generate(ctx, Market{Quote: models.Quote{Price: 100.4, SessionOpen: 100.5, Timestamp: now}, Bars: bars}), models.KindBounce)
	require.Len(t, sigs, 1)
	s := sigs[0]
	assert.Equal(t, models.ActionBuy, s.Action)
	assert.Equal(t, 2.0, s.RiskRewardRatio)
	assert.InDelta(t, 99.9*0.998, s.Stop, 1e-9)
}

func TestMomentumNeedsTwoTriggers(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	bars := make([]models.Bar, 16)
	for i := range bars {
		o := 100 - 0.1*float64(i)
		bars[i] = models.Bar{Time: now.Add(time.Duration(i-16) * time.Minute), Open: o, High: o + 0.05, Low: o - 0.15, Close: o - 0.1, Volume: 1000}
	}
	ctx := models.InstitutionalContext{Symbol: "QQQ"}
	m := Market{Quote: models.Quote{Symbol: "QQQ", Price: 98.4, SessionOpen: 100, Timestamp: now}, Bars: bars}

	sigs := g.Generate(ctx, m)
	require.Len(t, sigs, 1)
	s := sigs[0]
	assert.Equal(t, models.KindSelloff, s.Kind)
	assert.Equal(t, models.ActionSell, s.Action)
	assert.True(t, s.Target < s.Entry && s.Entry < s.Stop)
	assert.Equal(t, 100.0, s.LevelPrice)
	assert.Len(t, s.SupportingFactors, 3)

	// only the move from open: one trigger is not enough
	m = Market{Quote: models.Quote{Symbol: "QQQ", Price: 98.4, SessionOpen: 100, Timestamp: now}}
	assert.Empty(t, g.Generate(ctx, m))
}

func TestGenerateIsDeterministic(t *testing.T) {
	g := NewGenerator(DefaultConfig())
	ctx := models.InstitutionalContext{
		Symbol:        "SPY",
		Levels:        []models.ClassifiedLevel{support(662, 2_200_000)},
		ShortInterest: &models.ShortInterestRecord{ShortInterestPct: 22, BorrowFeePct: 8.5},
		Options:       &models.OptionsSummary{PutCallRatio: 0.6, CallOpenInterest: 20_000, MaxPain: 680},
	}
	m := Market{Quote: models.Quote{Price: 665, Timestamp: now}}
	first := g.Generate(ctx, m)
	second := g.Generate(ctx, m)
	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	for _, s := range first {
		assert.True(t, s.ValidPrices())
		assert.LessOrEqual(t, s.Confidence, models.MaxConfidence)
	}
}
