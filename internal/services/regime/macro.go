package regime

import (
	"context"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
)

var _ repository.MacroContextProvider = (*BarMacroProvider)(nil)

// BarMacroProvider derives the macro context from a benchmark symbol's recent bars.
type BarMacroProvider struct {
	market   repository.MarketDataProvider
	detector domsvc.RegimeDetector
	symbol   string
	lookback time.Duration
	now      func() time.Time
}

func NewBarMacroProvider(market repository.MarketDataProvider, detector domsvc.RegimeDetector, benchmark string, lookback time.Duration) *BarMacroProvider {
	if benchmark == "" {
		benchmark = "SPY"
	}
	if lookback <= 0 {
		lookback = 2 * time.Hour
	}
	return &BarMacroProvider{market: market, detector: detector, symbol: benchmark, lookback: lookback, now: time.Now}
}

func (p *BarMacroProvider) GetRegime(ctx context.Context) (models.MacroContext, error) {
	to := p.now()
	bars, err := p.market.GetBars(ctx, p.symbol, to.Add(-p.lookback), to)
	if err != nil {
		return models.MacroContext{}, fmt.Errorf("macro bars %s: %w", p.symbol, err)
	}
	return p.detector.Detect(ctx, p.symbol, bars)
}
