package regime

import (
	"fmt"

	"SignalForge/internal/domain/models"
)

type FilterConfig struct {
	// ReversalMinConfidence is the bar a counter-trend reversal signal must clear.
	ReversalMinConfidence float64 `yaml:"reversal_min_confidence" default:"0.80"`
	// ChoppyPenalty is subtracted from confidence when the regime is choppy. 0 disables it.
	ChoppyPenalty float64 `yaml:"choppy_penalty" default:"0"`
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{ReversalMinConfidence: 0.80}
}

// Result is the filter verdict. Signal always carries the audit trail:
// rejected signals come back with the rejection reason appended as a warning.
type Result struct {
	Signal models.Signal
	Passed bool
	Reason string
}

// Filter gates signal direction against the market regime and the confluence bias.
type Filter struct {
	cfg FilterConfig
}

func NewFilter(cfg FilterConfig) *Filter {
	if cfg.ReversalMinConfidence <= 0 || cfg.ReversalMinConfidence > 1 {
		cfg.ReversalMinConfidence = DefaultFilterConfig().ReversalMinConfidence
	}
	if cfg.ChoppyPenalty < 0 {
		cfg.ChoppyPenalty = 0
	}
	return &Filter{cfg: cfg}
}

// Apply runs the rules in order: counter-trend, contradicting bias, pass.
func (f *Filter) Apply(s models.Signal, bias models.Bias, macro models.MacroContext) Result {
	if reason, bad := f.counterTrend(s, macro.Regime); bad {
		return reject(s, reason)
	}
	if reason, bad := contradictsBias(s, bias); bad {
		return reject(s, reason)
	}
	if macro.Regime == models.RegimeChoppy && f.cfg.ChoppyPenalty > 0 {
		adj := s.WithConfidence(s.Confidence - f.cfg.ChoppyPenalty).
			WithWarning(fmt.Sprintf("choppy regime: confidence reduced by %.2f", f.cfg.ChoppyPenalty))
		return Result{Signal: adj, Passed: true}
	}
	return Result{Signal: s, Passed: true}
}

func (f *Filter) counterTrend(s models.Signal, r models.MarketRegime) (string, bool) {
	switch {
	case s.Action == models.ActionBuy && r == models.RegimeDowntrend:
		if isReversal(s) && s.Confidence >= f.cfg.ReversalMinConfidence {
			return "", false
		}
		return fmt.Sprintf("regime filter: %s BUY rejected in downtrend (confidence %.2f, reversal bar %.2f)",
			s.Kind, s.Confidence, f.cfg.ReversalMinConfidence), true
	case s.Action == models.ActionSell && r == models.RegimeUptrend:
		if s.Kind == models.KindBounce && s.Confidence >= f.cfg.ReversalMinConfidence {
			return "", false
		}
		return fmt.Sprintf("regime filter: %s SELL rejected in uptrend (confidence %.2f, reversal bar %.2f)",
			s.Kind, s.Confidence, f.cfg.ReversalMinConfidence), true
	}
	return "", false
}

func contradictsBias(s models.Signal, bias models.Bias) (string, bool) {
	switch {
	case s.Action == models.ActionBuy && bias == models.BiasBearish:
		return "regime filter: BUY contradicts bearish confluence", true
	case s.Action == models.ActionSell && bias == models.BiasBullish:
		return "regime filter: SELL contradicts bullish confluence", true
	}
	return "", false
}

// isReversal reports kinds that are expected to fire against a falling tape.
func isReversal(s models.Signal) bool {
	return s.Kind == models.KindBounce || s.Kind == models.KindSqueeze
}

func reject(s models.Signal, reason string) Result {
	return Result{Signal: s.WithWarning(reason), Reason: reason}
}
