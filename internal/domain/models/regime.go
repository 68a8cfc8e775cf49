package models

type MarketRegime string

const (
	RegimeUptrend   MarketRegime = "uptrend"
	RegimeDowntrend MarketRegime = "downtrend"
	RegimeChoppy    MarketRegime = "choppy"
)

// MacroContext is the broad-market backdrop for a cycle. Bias is in [-1,1].
// VolatilityPct is per-bar realized volatility in percent, when bars were used.
type MacroContext struct {
	Regime        MarketRegime `json:"regime"`
	Bias          float64      `json:"bias"`
	VolatilityPct float64      `json:"volatility_pct,omitempty"`
	Source        string       `json:"source,omitempty"`
}
