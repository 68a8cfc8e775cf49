package models

import "time"

// RawRecord is a single provider payload record as decoded from JSON.
// Field names and value types vary by provider; see the normalizer.
type RawRecord map[string]any

// Bar represents an OHLCV record. Time is the bar start.
type Bar struct {
	Symbol string    `json:"symbol"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is the latest market state for a symbol.
type Quote struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	SessionOpen float64   `json:"session_open"`
	PrevClose   float64   `json:"prev_close"`
	Volume      float64   `json:"volume"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChangePct returns the move from the previous close in percent, or 0 when unknown.
func (q Quote) ChangePct() float64 {
	if q.PrevClose <= 0 {
		return 0
	}
	return (q.Price - q.PrevClose) / q.PrevClose * 100
}

type Side string

const (
	SideBuy     Side = "buy"
	SideSell    Side = "sell"
	SideUnknown Side = "unknown"
)

// Print is a single executed trade print, lit or off-exchange.
type Print struct {
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Size        float64   `json:"size"`
	Side        Side      `json:"side"`
	OffExchange bool      `json:"off_exchange"`
	Timestamp   time.Time `json:"timestamp"`
}
