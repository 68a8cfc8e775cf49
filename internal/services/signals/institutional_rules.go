package signals

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
)

// squeeze fires when heavy short interest and expensive borrow meet price
// sitting on a large support level.
func (g *Generator) squeeze(ctx models.InstitutionalContext, m Market) (models.Signal, bool) {
	c := g.cfg.Squeeze
	si := ctx.ShortInterest
	if si == nil || si.ShortInterestPct <= c.MinShortInterestPct || si.BorrowFeePct <= c.MinBorrowFeePct {
		return models.Signal{}, false
	}
	price := m.Price()

	var level *models.ClassifiedLevel
	for i := range ctx.Levels {
		l := &ctx.Levels[i]
		if !l.ActsAsSupport() || float64(l.Volume) < c.MinLevelVolume {
			continue
		}
		if l.DistancePct(price) > c.MaxLevelDistancePct {
			continue
		}
		if level == nil || l.DistancePct(price) < level.DistancePct(price) {
			level = l
		}
	}
	if level == nil {
		return models.Signal{}, false
	}

	stop := math.Min(level.Price, price) * (1 - c.StopBufferPct/100)
	target := price + c.RewardMultiple*(price-stop)

	conf := 0.5 +
		0.25*clamp01((si.ShortInterestPct-c.MinShortInterestPct)/25) +
		0.20*clamp01((si.BorrowFeePct-c.MinBorrowFeePct)/25)
	if level.Strength == models.StrengthStrong {
		conf += 0.05
	}

	return g.finish(ctx.Symbol, m.Now(), draft{
		kind:       models.KindSqueeze,
		action:     models.ActionBuy,
		entry:      price,
		stop:       stop,
		target:     target,
		level:      level.Price,
		confidence: conf,
		rationale: fmt.Sprintf("short squeeze setup: %.1f%% short interest, %.1f%% borrow, holding %s support %.2f",
			si.ShortInterestPct, si.BorrowFeePct, shares(float64(level.Volume)), level.Price),
		factors: []string{
			fmt.Sprintf("short interest %.1f%%", si.ShortInterestPct),
			fmt.Sprintf("borrow fee %.1f%%", si.BorrowFeePct),
			fmt.Sprintf("support %.2f (%s shares, %s)", level.Price, shares(float64(level.Volume)), level.Strength),
			fmt.Sprintf("squeeze potential %.0f", ctx.SqueezePotential),
		},
	})
}

// gammaRamp fires on a call-heavy chain with max pain above price; the target is max pain.
func (g *Generator) gammaRamp(ctx models.InstitutionalContext, m Market) (models.Signal, bool) {
	c := g.cfg.Gamma
	o := ctx.Options
	if o == nil || o.PutCallRatio >= c.MaxPutCallRatio || o.CallOpenInterest < c.MinCallOpenInterest {
		return models.Signal{}, false
	}
	price := m.Price()
	if o.MaxPain <= price {
		return models.Signal{}, false
	}

	conf := 0.5 +
		0.2*clamp01((c.MaxPutCallRatio-o.PutCallRatio)/c.MaxPutCallRatio) +
		0.1*clamp01(o.CallOpenInterest/c.MinCallOpenInterest-1) +
		0.1*clamp01(-ctx.GammaPressure/100)

	return g.finish(ctx.Symbol, m.Now(), draft{
		kind:       models.KindGammaRamp,
		action:     models.ActionBuy,
		entry:      price,
		stop:       price * (1 - c.StopPct/100),
		target:     o.MaxPain,
		level:      o.MaxPain,
		confidence: conf,
		rationale:  fmt.Sprintf("gamma ramp toward max pain %.2f: put/call %.2f", o.MaxPain, o.PutCallRatio),
		factors: []string{
			fmt.Sprintf("put/call ratio %.2f", o.PutCallRatio),
			fmt.Sprintf("call open interest %s", shares(o.CallOpenInterest)),
			fmt.Sprintf("max pain %.2f above price", o.MaxPain),
			fmt.Sprintf("gamma pressure %.0f", ctx.GammaPressure),
		},
	})
}
