package models

import (
	"fmt"
	"strings"
	"time"
)

type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "call", "calls":
		return OptionCall, nil
	case "p", "put", "puts":
		return OptionPut, nil
	}
	return "", fmt.Errorf("unknown option type %q", s)
}

// OptionSnapshot is one contract line of an options chain.
type OptionSnapshot struct {
	Strike            float64    `json:"strike"`
	Expiration        time.Time  `json:"expiration"`
	Type              OptionType `json:"type"`
	Volume            float64    `json:"volume"`
	OpenInterest      float64    `json:"open_interest"`
	ImpliedVolatility *float64   `json:"implied_volatility,omitempty"`
	LastPrice         float64    `json:"last_price"`
}

// OptionsSummary is derived from a chain by the context builder.
type OptionsSummary struct {
	Expiration       time.Time `json:"expiration"`
	CallVolume       float64   `json:"call_volume"`
	PutVolume        float64   `json:"put_volume"`
	CallOpenInterest float64   `json:"call_open_interest"`
	PutOpenInterest  float64   `json:"put_open_interest"`
	PutCallRatio     float64   `json:"put_call_ratio"`
	MaxPain          float64   `json:"max_pain"`
}
