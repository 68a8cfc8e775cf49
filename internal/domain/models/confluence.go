package models

type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// SubScores are independent 0..100 readings where 50 is neutral and above 50 is bullish.
type SubScores struct {
	DarkPool   float64 `json:"dp"`
	CrossAsset float64 `json:"cross_asset"`
	Macro      float64 `json:"macro"`
	Timing     float64 `json:"timing"`
}

type ConfluenceScore struct {
	Score         float64   `json:"score"`
	Bias          Bias      `json:"bias"`
	SubScores     SubScores `json:"subscores"`
	Conflicts     []string  `json:"conflicts"`
	Confirmations []string  `json:"confirmations"`
}
