package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/cache"
)

func testGatewayConfig() GatewayConfig {
	cfg := DefaultGatewayConfig()
	cfg.RatePerSec = 0
	return cfg
}

func TestGateway_ServesCacheWhenProviderFails(t *testing.T) {
	q := models.Quote{Symbol: "AAPL", Price: 190, Timestamp: time.Date(2025, 1, 15, 15, 0, 0, 0, time.UTC)}
	market := &fakeMarket{quotes: map[string]models.Quote{"AAPL": q}}
	metrics := newRecMetrics()
	gw := NewGateway(market, &fakeInst{}, cache.NewMemoryCache(), metrics, nil, testGatewayConfig())

	got, stale, err := gw.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, 190.0, got.Price)

	market.fail = true
	got, stale, err = gw.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, 190.0, got.Price)
	assert.True(t, got.Timestamp.Equal(q.Timestamp))
	assert.Equal(t, 1, metrics.fallbacks)
}

func TestGateway_ProviderErrorWithoutCache(t *testing.T) {
	gw := NewGateway(&fakeMarket{fail: true}, &fakeInst{}, cache.NewMemoryCache(), newRecMetrics(), nil, testGatewayConfig())

	_, _, err := gw.Quote(context.Background(), "MSFT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrProviderUnavailable))
	var perr *models.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "market", perr.Provider)
	assert.Equal(t, "get_quote", perr.Op)
}

func TestGateway_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	market := &fakeMarket{fail: true}
	cfg := testGatewayConfig()
	cfg.BreakerFailures = 2
	cfg.BreakerOpen = time.Minute
	gw := NewGateway(market, &fakeInst{}, nil, newRecMetrics(), nil, cfg)

	for i := 0; i < 2; i++ {
		_, _, err := gw.Quote(context.Background(), "AAPL")
		require.Error(t, err)
	}
	assert.Equal(t, "open", gw.BreakerState("market"))
	assert.Equal(t, "closed", gw.BreakerState("institutional"))

	_, _, err := gw.Quote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrProviderUnavailable))
	assert.Equal(t, 2, market.calls, "open breaker must short-circuit the provider")
}

func TestGateway_InstitutionalFamilies(t *testing.T) {
	inst := &fakeInst{levels: map[string][]models.RawRecord{"AAPL": {{"price": 1.0}}}}
	gw := NewGateway(&fakeMarket{}, inst, nil, newRecMetrics(), nil, testGatewayConfig())
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	recs, stale, err := gw.Institutional(context.Background(), models.FamilyLevels, "AAPL", date)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Len(t, recs, 1)

	_, _, err = gw.Institutional(context.Background(), models.InputFamily("bogus"), "AAPL", date)
	assert.Error(t, err)
}

func TestGateway_BarsFallbackAcrossCycles(t *testing.T) {
	start := time.Date(2025, 1, 15, 15, 0, 0, 0, time.UTC)
	var series []models.Bar
	for i := 0; i < 5; i++ {
		series = append(series, models.Bar{Symbol: "SPY", Time: start.Add(time.Duration(i) * time.Minute), Close: 600 + float64(i)})
	}
	market := &fakeMarket{bars: map[string][]models.Bar{"SPY": series}}
	gw := NewGateway(market, &fakeInst{}, cache.NewMemoryCache(), newRecMetrics(), nil, testGatewayConfig())

	now := start.Add(4 * time.Minute)
	bars, stale, err := gw.Bars(context.Background(), "SPY", now.Add(-4*time.Minute), now)
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Len(t, bars, 5)

	// next cycle, one minute later, provider down
	market.fail = true
	now = now.Add(time.Minute)
	bars, stale, err = gw.Bars(context.Background(), "SPY", now.Add(-4*time.Minute), now)
	require.NoError(t, err)
	assert.True(t, stale)
	require.Len(t, bars, 4)
	assert.True(t, bars[0].Time.Equal(start.Add(time.Minute)))
}
