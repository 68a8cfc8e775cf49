package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "LONG":
		return ActionBuy, nil
	case "SELL", "SHORT":
		return ActionSell, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Direction is +1 for buys and -1 for sells.
func (a Action) Direction() float64 {
	if a == ActionSell {
		return -1
	}
	return 1
}

type SignalKind string

const (
	KindSqueeze   SignalKind = "squeeze"
	KindGammaRamp SignalKind = "gamma_ramp"
	KindBreakout  SignalKind = "breakout"
	KindBounce    SignalKind = "bounce"
	KindSelloff   SignalKind = "selloff"
	KindRally     SignalKind = "rally"
)

// MasterConfidence is the confidence at which a signal is flagged as master.
const MasterConfidence = 0.75

// MaxConfidence caps every generated confidence.
const MaxConfidence = 0.95

// Signal is a candidate or emitted trade signal. Treat it as a value:
// the With* helpers return modified copies and never touch the receiver.
type Signal struct {
	ID                string     `json:"id"`
	Symbol            string     `json:"symbol"`
	Action            Action     `json:"action"`
	Kind              SignalKind `json:"kind"`
	Confidence        float64    `json:"confidence"`
	Entry             float64    `json:"entry"`
	Stop              float64    `json:"stop"`
	Target            float64    `json:"target"`
	LevelPrice        float64    `json:"level_price"`
	Rationale         string     `json:"rationale"`
	SupportingFactors []string   `json:"supporting_factors"`
	Warnings          []string   `json:"warnings"`
	IsMaster          bool       `json:"is_master"`
	PositionSizePct   float64    `json:"position_size_pct"`
	RiskRewardRatio   float64    `json:"risk_reward_ratio"`
	Timestamp         time.Time  `json:"timestamp"`
}

// NewSignalID derives a stable id so replays of the same input produce the same ids.
func NewSignalID(symbol string, kind SignalKind, action Action, level float64, ts time.Time) string {
	name := fmt.Sprintf("%s|%s|%s|%.4f|%d", symbol, kind, action, level, ts.UnixNano())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// ValidPrices checks the stop/entry/target ordering for the signal's action.
func (s Signal) ValidPrices() bool {
	switch s.Action {
	case ActionBuy:
		return s.Stop < s.Entry && s.Entry < s.Target
	case ActionSell:
		return s.Target < s.Entry && s.Entry < s.Stop
	}
	return false
}

// ReferenceLevel is the price used for cooldown keys.
func (s Signal) ReferenceLevel() float64 {
	if s.LevelPrice > 0 {
		return s.LevelPrice
	}
	return s.Entry
}

func (s Signal) clone() Signal {
	c := s
	c.SupportingFactors = cloneStrings(s.SupportingFactors)
	c.Warnings = cloneStrings(s.Warnings)
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func (s Signal) WithWarning(w string) Signal {
	c := s.clone()
	c.Warnings = append(c.Warnings, w)
	return c
}

func (s Signal) WithRationale(extra string) Signal {
	c := s.clone()
	if c.Rationale == "" {
		c.Rationale = extra
	} else {
		c.Rationale = c.Rationale + "; " + extra
	}
	return c
}

func (s Signal) WithConfidence(conf float64) Signal {
	c := s.clone()
	if conf > MaxConfidence {
		conf = MaxConfidence
	}
	if conf < 0 {
		conf = 0
	}
	c.Confidence = conf
	c.IsMaster = conf >= MasterConfidence
	return c
}
