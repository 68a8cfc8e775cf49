package models

// Requests for the HTTP API. Defined in domain for consistency and reuse.

type SignalsRequest struct {
	Symbol string `query:"symbol" json:"symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Master bool   `query:"master" json:"master"`
}

type ContextRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type BacktestRequest struct {
	Signals []Signal         `json:"signals" validate:"required"`
	Bars    map[string][]Bar `json:"bars" validate:"required"`
	Params  TradingParams    `json:"params"`
	Dedup   bool             `json:"dedup"`
}
