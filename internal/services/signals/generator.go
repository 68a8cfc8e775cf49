package signals

import (
	"fmt"
	"math"
	"time"

	"SignalForge/internal/domain/models"
)

// Market is the price side of a generation cycle.
type Market struct {
	Quote models.Quote
	// Bars are recent closed intraday bars, oldest first.
	Bars []models.Bar
}

// Price returns the quote price or, failing that, the last close.
func (m Market) Price() float64 {
	if m.Quote.Price > 0 {
		return m.Quote.Price
	}
	if n := len(m.Bars); n > 0 {
		return m.Bars[n-1].Close
	}
	return 0
}

// Now returns the quote time or, failing that, the last bar time.
func (m Market) Now() time.Time {
	if !m.Quote.Timestamp.IsZero() {
		return m.Quote.Timestamp
	}
	if n := len(m.Bars); n > 0 {
		return m.Bars[n-1].Time
	}
	return time.Time{}
}

// rule inspects one pattern and yields at most one candidate.
type rule func(ctx models.InstitutionalContext, m Market) (models.Signal, bool)

// Generator applies the rule blocks in a fixed order. It has no side effects:
// the same context and market always produce the same candidates.
type Generator struct {
	cfg   Config
	rules []rule
}

func NewGenerator(cfg Config) *Generator {
	if cfg.BasePositionPct <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.Momentum.MinTriggers < 2 {
		cfg.Momentum.MinTriggers = 2
	}
	g := &Generator{cfg: cfg}
	g.rules = []rule{g.squeeze, g.gammaRamp, g.breakout, g.bounce, g.momentum}
	return g
}

// Generate returns candidate signals; candidates violating the price ordering are dropped.
func (g *Generator) Generate(ctx models.InstitutionalContext, m Market) []models.Signal {
	if m.Price() <= 0 {
		return nil
	}
	var out []models.Signal
	for _, r := range g.rules {
		if s, ok := r(ctx, m); ok {
			out = append(out, s)
		}
	}
	return out
}

// draft collects the fields a rule decides; finish derives the rest.
type draft struct {
	kind       models.SignalKind
	action     models.Action
	entry      float64
	stop       float64
	target     float64
	level      float64
	confidence float64
	rationale  string
	factors    []string
}

func (g *Generator) finish(symbol string, ts time.Time, d draft) (models.Signal, bool) {
	s := models.Signal{
		ID:                models.NewSignalID(symbol, d.kind, d.action, d.level, ts),
		Symbol:            symbol,
		Action:            d.action,
		Kind:              d.kind,
		Entry:             d.entry,
		Stop:              d.stop,
		Target:            d.target,
		LevelPrice:        d.level,
		Rationale:         d.rationale,
		SupportingFactors: d.factors,
		Warnings:          []string{},
		Timestamp:         ts,
	}
	if !s.ValidPrices() {
		return models.Signal{}, false
	}
	s = s.WithConfidence(d.confidence)
	s.RiskRewardRatio = round2(math.Abs(s.Target-s.Entry) / math.Abs(s.Entry-s.Stop))
	s.PositionSizePct = g.cfg.BasePositionPct
	if !s.IsMaster {
		s.PositionSizePct = g.cfg.BasePositionPct / 2
	}
	return s, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func shares(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.0fK", v/1e3)
	}
	return fmt.Sprintf("%.0f", v)
}
