package signals

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/features"
)

// breakout fires when the last bar closes cleanly through a level on expanded volume.
// Up through resistance is a buy, down through support a sell.
func (g *Generator) breakout(ctx models.InstitutionalContext, m Market) (models.Signal, bool) {
	c := g.cfg.Breakout
	n := len(m.Bars)
	if n < 2 || len(ctx.Levels) == 0 {
		return models.Signal{}, false
	}
	last, prev := m.Bars[n-1], m.Bars[n-2]
	avg := features.TrailingAvgVolume(m.Bars, c.VolumeWindow)
	if avg <= 0 || last.Volume < c.VolumeMultiple*avg {
		return models.Signal{}, false
	}
	volRatio := last.Volume / avg
	buf := c.CloseBufferPct / 100

	// highest resistance crossed on the way up
	var up *models.ClassifiedLevel
	for i := range ctx.Levels {
		l := &ctx.Levels[i]
		if l.ActsAsResistance() && prev.Close <= l.Price && last.Close > l.Price*(1+buf) {
			if up == nil || l.Price > up.Price {
				up = l
			}
		}
	}
	if up != nil {
		entry := last.Close
		stop := up.Price * (1 - c.StopBufferPct/100)
		target := entry + c.RewardMultiple*(entry-stop)
		if next, ok := nextLevel(ctx.Levels, entry, 1); ok && next > entry+(entry-stop) {
			target = next
		}
		return g.finish(ctx.Symbol, m.Now(), draft{
			kind:       models.KindBreakout,
			action:     models.ActionBuy,
			entry:      entry,
			stop:       stop,
			target:     target,
			level:      up.Price,
			confidence: breakoutConfidence(c, volRatio, up.Strength, ctx.BuyingPressure >= 60),
			rationale:  fmt.Sprintf("breakout above %.2f resistance on %.1fx volume", up.Price, volRatio),
			factors: []string{
				fmt.Sprintf("close %.2f above %.2f", last.Close, up.Price),
				fmt.Sprintf("volume %.1fx average", volRatio),
				fmt.Sprintf("level %s (%s shares)", up.Strength, shares(float64(up.Volume))),
			},
		})
	}

	// lowest support lost on the way down
	var down *models.ClassifiedLevel
	for i := range ctx.Levels {
		l := &ctx.Levels[i]
		if l.ActsAsSupport() && prev.Close >= l.Price && last.Close < l.Price*(1-buf) {
			if down == nil || l.Price < down.Price {
				down = l
			}
		}
	}
	if down == nil {
		return models.Signal{}, false
	}
	entry := last.Close
	stop := down.Price * (1 + c.StopBufferPct/100)
	target := entry - c.RewardMultiple*(stop-entry)
	if next, ok := nextLevel(ctx.Levels, entry, -1); ok && next < entry-(stop-entry) {
		target = next
	}
	return g.finish(ctx.Symbol, m.Now(), draft{
		kind:       models.KindBreakout,
		action:     models.ActionSell,
		entry:      entry,
		stop:       stop,
		target:     target,
		level:      down.Price,
		confidence: breakoutConfidence(c, volRatio, down.Strength, ctx.BuyingPressure <= 40),
		rationale:  fmt.Sprintf("breakdown below %.2f support on %.1fx volume", down.Price, volRatio),
		factors: []string{
			fmt.Sprintf("close %.2f below %.2f", last.Close, down.Price),
			fmt.Sprintf("volume %.1fx average", volRatio),
			fmt.Sprintf("level %s (%s shares)", down.Strength, shares(float64(down.Volume))),
		},
	})
}

func breakoutConfidence(c BreakoutConfig, volRatio float64, strength models.LevelStrength, flowAgrees bool) float64 {
	conf := 0.55 + 0.1*clamp01((volRatio-c.VolumeMultiple)/c.VolumeMultiple) + 0.15*strength.Weight()
	if flowAgrees {
		conf += 0.05
	}
	return conf
}

// nextLevel returns the nearest level strictly beyond price in direction dir (+1 up, -1 down).
func nextLevel(levels []models.ClassifiedLevel, price float64, dir int) (float64, bool) {
	best, found := 0.0, false
	for _, l := range levels {
		d := (l.Price - price) * float64(dir)
		if d <= 0 {
			continue
		}
		if !found || math.Abs(l.Price-price) < math.Abs(best-price) {
			best, found = l.Price, true
		}
	}
	return best, found
}

// bounce fires on a rejection wick at a level on elevated volume: a hammer off
// support is a buy, a shooting star off resistance a sell.
func (g *Generator) bounce(ctx models.InstitutionalContext, m Market) (models.Signal, bool) {
	c := g.cfg.Bounce
	n := len(m.Bars)
	if n < 2 || len(ctx.Levels) == 0 {
		return models.Signal{}, false
	}
	last := m.Bars[n-1]
	avg := features.TrailingAvgVolume(m.Bars, c.VolumeWindow)
	if avg <= 0 || last.Volume < c.VolumeMultiple*avg {
		return models.Signal{}, false
	}
	volRatio := last.Volume / avg

	rng := last.High - last.Low
	if rng <= 0 {
		return models.Signal{}, false
	}
	body := math.Max(math.Abs(last.Close-last.Open), rng*0.01)
	lowerWick := math.Min(last.Open, last.Close) - last.Low
	upperWick := last.High - math.Max(last.Open, last.Close)
	hammer := lowerWick >= c.WickBodyRatio*body && last.Close >= last.Low+rng/2
	star := upperWick >= c.WickBodyRatio*body && last.Close <= last.Low+rng/2

	for i := range ctx.Levels {
		l := ctx.Levels[i]
		if l.DistancePct(last.Close) > c.MaxLevelDistancePct {
			continue
		}
		switch {
		case hammer && l.ActsAsSupport() && last.Low <= l.Price*(1+c.MaxLevelDistancePct/100):
			entry := last.Close
			stop := math.Min(last.Low, l.Price) * (1 - c.StopBufferPct/100)
			return g.finish(ctx.Symbol, m.Now(), draft{
				kind:       models.KindBounce,
				action:     models.ActionBuy,
				entry:      entry,
				stop:       stop,
				target:     entry + c.RewardMultiple*(entry-stop),
				level:      l.Price,
				confidence: bounceConfidence(c, volRatio, l.Strength, ctx.BuyingPressure >= 55),
				rationale:  fmt.Sprintf("bounce off %.2f %s on %.1fx volume", l.Price, l.Kind, volRatio),
				factors: []string{
					fmt.Sprintf("hammer wick %.2f vs body %.2f", lowerWick, body),
					fmt.Sprintf("volume %.1fx average", volRatio),
					fmt.Sprintf("level %s (%s shares)", l.Strength, shares(float64(l.Volume))),
				},
			})
		case star && l.ActsAsResistance() && last.High >= l.Price*(1-c.MaxLevelDistancePct/100):
			entry := last.Close
			stop := math.Max(last.High, l.Price) * (1 + c.StopBufferPct/100)
			return g.finish(ctx.Symbol, m.Now(), draft{
				kind:       models.KindBounce,
				action:     models.ActionSell,
				entry:      entry,
				stop:       stop,
				target:     entry - c.RewardMultiple*(stop-entry),
				level:      l.Price,
				confidence: bounceConfidence(c, volRatio, l.Strength, ctx.BuyingPressure <= 45),
				rationale:  fmt.Sprintf("rejection at %.2f %s on %.1fx volume", l.Price, l.Kind, volRatio),
				factors: []string{
					fmt.Sprintf("shooting star wick %.2f vs body %.2f", upperWick, body),
					fmt.Sprintf("volume %.1fx average", volRatio),
					fmt.Sprintf("level %s (%s shares)", l.Strength, shares(float64(l.Volume))),
				},
			})
		}
	}
	return models.Signal{}, false
}

func bounceConfidence(c BounceConfig, volRatio float64, strength models.LevelStrength, flowAgrees bool) float64 {
	conf := 0.55 + 0.1*clamp01((volRatio-c.VolumeMultiple)/c.VolumeMultiple) + 0.15*strength.Weight()
	if flowAgrees {
		conf += 0.05
	}
	return conf
}

// momentum fires a selloff or rally when at least MinTriggers of: move from the
// session open, move over the rolling window, and a same-direction bar streak agree.
func (g *Generator) momentum(ctx models.InstitutionalContext, m Market) (models.Signal, bool) {
	c := g.cfg.Momentum
	price := m.Price()
	open := m.Quote.SessionOpen
	if open <= 0 && len(m.Bars) > 0 {
		open = m.Bars[0].Open
	}

	up, down := 0, 0
	var factors []string
	fromOpen := features.PctChange(open, price)
	switch {
	case fromOpen >= c.FromOpenPct:
		up++
		factors = append(factors, fmt.Sprintf("%+.2f%% from open", fromOpen))
	case fromOpen <= -c.FromOpenPct:
		down++
		factors = append(factors, fmt.Sprintf("%+.2f%% from open", fromOpen))
	}
	if n := len(m.Bars); n > 1 {
		ref := m.Bars[0].Close
		if n > c.RollingBars {
			ref = m.Bars[n-1-c.RollingBars].Close
		}
		rolling := features.PctChange(ref, price)
		switch {
		case rolling >= c.RollingPct:
			up++
			factors = append(factors, fmt.Sprintf("%+.2f%% over %d bars", rolling, c.RollingBars))
		case rolling <= -c.RollingPct:
			down++
			factors = append(factors, fmt.Sprintf("%+.2f%% over %d bars", rolling, c.RollingBars))
		}
	}
	switch features.Streak(m.Bars, c.StreakBars) {
	case 1:
		up++
		factors = append(factors, fmt.Sprintf("%d green bars in a row", c.StreakBars))
	case -1:
		down++
		factors = append(factors, fmt.Sprintf("%d red bars in a row", c.StreakBars))
	}

	var d draft
	switch {
	case down >= c.MinTriggers && down > up:
		risk := price * c.StopPct / 100
		d = draft{
			kind: models.KindSelloff, action: models.ActionSell,
			entry: price, stop: price + risk, target: price - c.RewardMultiple*risk,
			confidence: momentumConfidence(c, down, fromOpen),
			rationale:  fmt.Sprintf("selloff: %d of 3 momentum triggers", down),
		}
	case up >= c.MinTriggers && up > down:
		risk := price * c.StopPct / 100
		d = draft{
			kind: models.KindRally, action: models.ActionBuy,
			entry: price, stop: price - risk, target: price + c.RewardMultiple*risk,
			confidence: momentumConfidence(c, up, fromOpen),
			rationale:  fmt.Sprintf("rally: %d of 3 momentum triggers", up),
		}
	default:
		return models.Signal{}, false
	}
	// the session open anchors cooldowns so a running move is not re-alerted every bar
	d.level = open
	d.factors = factors
	return g.finish(ctx.Symbol, m.Now(), d)
}

func momentumConfidence(c MomentumConfig, triggers int, fromOpen float64) float64 {
	return 0.5 + 0.1*float64(triggers-1) + 0.1*clamp01(math.Abs(fromOpen)/(3*c.FromOpenPct))
}
