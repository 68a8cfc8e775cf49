package confluence

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
)

type Weights struct {
	DarkPool   float64 `yaml:"dp" default:"0.35"`
	CrossAsset float64 `yaml:"cross_asset" default:"0.25"`
	Macro      float64 `yaml:"macro" default:"0.25"`
	Timing     float64 `yaml:"timing" default:"0.15"`
}

type Config struct {
	Weights  Weights `yaml:"weights"`
	Deadband float64 `yaml:"deadband" default:"10"`
}

func DefaultConfig() Config {
	return Config{
		Weights:  Weights{DarkPool: 0.35, CrossAsset: 0.25, Macro: 0.25, Timing: 0.15},
		Deadband: 10,
	}
}

// Scorer combines independent sub-scores into one 0..100 confluence reading.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	w := cfg.Weights
	if w.DarkPool+w.CrossAsset+w.Macro+w.Timing <= 0 {
		cfg.Weights = DefaultConfig().Weights
	}
	if cfg.Deadband <= 0 {
		cfg.Deadband = DefaultConfig().Deadband
	}
	return &Scorer{cfg: cfg}
}

type reading struct {
	name   string
	value  float64
	weight float64
}

// Score returns the weighted confluence, its bias and which factors agree with it.
func (s *Scorer) Score(sub models.SubScores) models.ConfluenceScore {
	w := s.cfg.Weights
	readings := []reading{
		{"dp", sub.DarkPool, w.DarkPool},
		{"cross_asset", sub.CrossAsset, w.CrossAsset},
		{"macro", sub.Macro, w.Macro},
		{"timing", sub.Timing, w.Timing},
	}

	sum, wsum := 0.0, 0.0
	bull, bear := 0, 0
	for _, r := range readings {
		sum += r.value * r.weight
		wsum += r.weight
		switch {
		case r.value > 50:
			bull++
		case r.value < 50:
			bear++
		}
	}
	score := math.Max(0, math.Min(100, sum/wsum))

	out := models.ConfluenceScore{
		Score:         score,
		Bias:          models.BiasNeutral,
		SubScores:     sub,
		Conflicts:     []string{},
		Confirmations: []string{},
	}
	switch {
	case score > 50+s.cfg.Deadband:
		out.Bias = models.BiasBullish
	case score < 50-s.cfg.Deadband:
		out.Bias = models.BiasBearish
	}

	majority := out.Bias
	if majority == models.BiasNeutral {
		switch {
		case bull > bear:
			majority = models.BiasBullish
		case bear > bull:
			majority = models.BiasBearish
		}
	}

	for _, r := range readings {
		side := models.BiasNeutral
		switch {
		case r.value > 50:
			side = models.BiasBullish
		case r.value < 50:
			side = models.BiasBearish
		}
		if side == models.BiasNeutral {
			continue
		}
		desc := fmt.Sprintf("%s %.0f %s", r.name, r.value, side)
		if side == majority {
			out.Confirmations = append(out.Confirmations, desc)
		} else {
			out.Conflicts = append(out.Conflicts, desc)
		}
	}
	return out
}

// Aligned reports whether the bias does not oppose the action.
func Aligned(c models.ConfluenceScore, a models.Action) bool {
	switch a {
	case models.ActionBuy:
		return c.Bias != models.BiasBearish
	case models.ActionSell:
		return c.Bias != models.BiasBullish
	}
	return false
}
