package regime

import (
	"context"
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/services/features"
)

var _ domsvc.RegimeDetector = (*BarDetector)(nil)

// DetectorConfig: SlopePct is the minimum EMA move over SlopeBars, in percent, to call a
// trend. An efficiency ratio below MinEfficiency reads as chop regardless of slope.
// BiasScalePct maps the EMA slope onto a [-1,1] bias. Per-bar realized volatility
// over VolWindow returns above MaxVolPct also reads as chop.
type DetectorConfig struct {
	EMAPeriod     int     `yaml:"ema_period" default:"20"`
	SlopeBars     int     `yaml:"slope_bars" default:"10"`
	ERWindow      int     `yaml:"er_window" default:"20"`
	VolWindow     int     `yaml:"vol_window" default:"20"`
	SlopePct      float64 `yaml:"slope_pct" default:"0.15"`
	MinEfficiency float64 `yaml:"min_efficiency" default:"0.3"`
	MaxVolPct     float64 `yaml:"max_vol_pct" default:"0.5"`
	BiasScalePct  float64 `yaml:"bias_scale_pct" default:"1.0"`
}

func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		EMAPeriod:     20,
		SlopeBars:     10,
		ERWindow:      20,
		VolWindow:     20,
		SlopePct:      0.15,
		MinEfficiency: 0.3,
		MaxVolPct:     0.5,
		BiasScalePct:  1.0,
	}
}

// BarDetector classifies the tape from EMA slope and Kaufman efficiency.
type BarDetector struct {
	cfg DetectorConfig
}

func NewBarDetector(cfg DetectorConfig) *BarDetector {
	def := DefaultDetectorConfig()
	if cfg.EMAPeriod <= 0 {
		cfg.EMAPeriod = def.EMAPeriod
	}
	if cfg.SlopeBars <= 0 {
		cfg.SlopeBars = def.SlopeBars
	}
	if cfg.ERWindow < 2 {
		cfg.ERWindow = def.ERWindow
	}
	if cfg.VolWindow < 2 {
		cfg.VolWindow = def.VolWindow
	}
	if cfg.MaxVolPct <= 0 {
		cfg.MaxVolPct = def.MaxVolPct
	}
	if cfg.SlopePct <= 0 {
		cfg.SlopePct = def.SlopePct
	}
	if cfg.MinEfficiency <= 0 {
		cfg.MinEfficiency = def.MinEfficiency
	}
	if cfg.BiasScalePct <= 0 {
		cfg.BiasScalePct = def.BiasScalePct
	}
	return &BarDetector{cfg: cfg}
}

// MinBars is how many bars Detect needs.
func (d *BarDetector) MinBars() int {
	n := d.cfg.SlopeBars + 1
	if d.cfg.ERWindow > n {
		n = d.cfg.ERWindow
	}
	if d.cfg.VolWindow+1 > n {
		n = d.cfg.VolWindow + 1
	}
	return n
}

func (d *BarDetector) Detect(_ context.Context, symbol string, bars []models.Bar) (models.MacroContext, error) {
	if len(bars) < d.MinBars() {
		return models.MacroContext{}, fmt.Errorf("detect regime %s: need %d bars, got %d", symbol, d.MinBars(), len(bars))
	}
	closes := features.Closes(bars)
	ema := features.EMA(closes, d.cfg.EMAPeriod)
	last := ema[len(ema)-1]
	prev := ema[len(ema)-1-d.cfg.SlopeBars]
	slope := features.PctChange(prev, last)
	er := features.EfficiencyRatio(closes, d.cfg.ERWindow)
	vol := 100 * features.RealizedVolatility(features.ComputeLogReturns(bars), d.cfg.VolWindow)

	out := models.MacroContext{
		Regime:        models.RegimeChoppy,
		Bias:          math.Max(-1, math.Min(1, slope/d.cfg.BiasScalePct)),
		VolatilityPct: vol,
		Source:        "bars:" + symbol,
	}
	switch {
	case er < d.cfg.MinEfficiency, vol > d.cfg.MaxVolPct:
	case slope >= d.cfg.SlopePct:
		out.Regime = models.RegimeUptrend
	case slope <= -d.cfg.SlopePct:
		out.Regime = models.RegimeDowntrend
	}
	return out, nil
}
