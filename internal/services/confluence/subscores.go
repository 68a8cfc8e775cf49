package confluence

import (
	"math"
	"time"

	"SignalForge/internal/domain/models"
)

// Inputs for one candidate. Nil fields read as neutral.
type Inputs struct {
	Context   models.InstitutionalContext
	Signal    models.Signal
	Quote     *models.Quote
	PeerQuote *models.Quote
	Macro     *models.MacroContext
}

// Calculator derives the four sub-scores from independent signal families.
type Calculator struct {
	loc *time.Location
}

// NewCalculator uses loc for session clock times; nil means America/New_York, falling back to UTC.
func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		var err error
		if loc, err = time.LoadLocation("America/New_York"); err != nil {
			loc = time.UTC
		}
	}
	return &Calculator{loc: loc}
}

func (c *Calculator) Compute(in Inputs) models.SubScores {
	return models.SubScores{
		DarkPool:   c.darkPool(in),
		CrossAsset: c.crossAsset(in),
		Macro:      c.macro(in),
		Timing:     c.timing(in),
	}
}

// darkPool is the context buying pressure, pushed further from neutral by a strong reference level.
func (c *Calculator) darkPool(in Inputs) float64 {
	bp := in.Context.BuyingPressure
	if bp == 0 && in.Context.DataCompleteness == 0 {
		return 50
	}
	boost := 0.0
	for _, l := range in.Context.Levels {
		if l.Price == in.Signal.LevelPrice {
			boost = 0.2 * l.Strength.Weight()
			break
		}
	}
	return clamp(bp+(bp-50)*boost, 0, 100)
}

func (c *Calculator) crossAsset(in Inputs) float64 {
	v := 50.0
	if in.Quote != nil {
		v += 25 * clamp(in.Quote.ChangePct(), -1, 1)
	}
	if in.PeerQuote != nil {
		v += 25 * clamp(in.PeerQuote.ChangePct(), -1, 1)
	}
	return v
}

func (c *Calculator) macro(in Inputs) float64 {
	if in.Macro == nil {
		return 50
	}
	v := 50 + 40*clamp(in.Macro.Bias, -1, 1)
	switch in.Macro.Regime {
	case models.RegimeUptrend:
		v += 10
	case models.RegimeDowntrend:
		v -= 10
	}
	return clamp(v, 0, 100)
}

// timing projects session-clock favorability onto the signal's direction.
func (c *Calculator) timing(in Inputs) float64 {
	ts := in.Signal.Timestamp
	if ts.IsZero() {
		return 50
	}
	fav := Favorability(ts.In(c.loc))
	return clamp(50+20*fav*in.Signal.Action.Direction(), 0, 100)
}

// Favorability rates a US-session clock time in [-1,1]: the opening drive and the
// afternoon trend window are favorable, the first minutes and the lunch lull are not.
func Favorability(t time.Time) float64 {
	m := t.Hour()*60 + t.Minute()
	switch {
	case m < 9*60+30 || m >= 16*60:
		return 0
	case m < 9*60+45:
		return -0.5
	case m < 11*60:
		return 1
	case m >= 11*60+30 && m < 13*60+30:
		return -1
	case m >= 14*60+30 && m < 15*60+45:
		return 1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
