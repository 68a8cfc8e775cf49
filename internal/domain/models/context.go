package models

import "time"

// InputFamily names one of the independent inputs to the institutional context.
type InputFamily string

const (
	FamilyLevels        InputFamily = "levels"
	FamilyPrints        InputFamily = "prints"
	FamilyOptions       InputFamily = "options"
	FamilyShortInterest InputFamily = "short_interest"
)

// InstitutionalContext is the per-symbol summary of institutional positioning.
// It is built once per evaluation and never mutated; rebuild to refresh.
type InstitutionalContext struct {
	Symbol       string    `json:"symbol"`
	Date         time.Time `json:"date"`
	CurrentPrice float64   `json:"current_price"`

	DPBattlegrounds []float64 `json:"dp_battlegrounds"`
	DarkPoolPct     float64   `json:"dark_pool_pct"`
	BuySellRatio    float64   `json:"buy_sell_ratio"`

	BuyingPressure   float64 `json:"institutional_buying_pressure"`
	SqueezePotential float64 `json:"squeeze_potential"`
	GammaPressure    float64 `json:"gamma_pressure"`
	DataCompleteness float64 `json:"data_completeness"`

	Levels        []ClassifiedLevel    `json:"levels"`
	ShortInterest *ShortInterestRecord `json:"short_interest,omitempty"`
	Options       *OptionsSummary      `json:"options,omitempty"`

	Warnings []string `json:"warnings"`
}

// Has reports whether the given input family contributed to the context.
func (c InstitutionalContext) Has(f InputFamily) bool {
	switch f {
	case FamilyLevels:
		return len(c.Levels) > 0
	case FamilyOptions:
		return c.Options != nil
	case FamilyShortInterest:
		return c.ShortInterest != nil
	case FamilyPrints:
		return c.BuySellRatio > 0 || c.DarkPoolPct > 0
	}
	return false
}
