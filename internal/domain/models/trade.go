package models

import (
	"fmt"
	"time"
)

type ExitReason string

const (
	ExitStop     ExitReason = "stop"
	ExitTarget   ExitReason = "target"
	ExitTimeExit ExitReason = "time_exit"
)

type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeLoss      Outcome = "loss"
	OutcomeBreakeven Outcome = "breakeven"
)

// TradingParams drive a backtest replay.
type TradingParams struct {
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct" default:"0.75" validate:"gt=0,lt=100"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct" default:"1.0" validate:"gt=0,lt=1000"`
	PositionSizePct float64 `json:"position_size_pct" yaml:"position_size_pct" default:"1.0" validate:"gt=0,lte=100"`
	SessionClose    string  `json:"session_close" yaml:"session_close" default:"16:00"`
	Location        string  `json:"location" yaml:"location" default:"America/New_York"`
	MaxHoldMinutes  int     `json:"max_hold_minutes" yaml:"max_hold_minutes" validate:"gte=0"`
	AllowOverlap    bool    `json:"allow_overlap" yaml:"allow_overlap"`
	UseSignalLevels bool    `json:"use_signal_levels" yaml:"use_signal_levels"`
}

// Validate rejects parameter sets the simulator cannot run with.
func (p TradingParams) Validate() error {
	if p.StopLossPct <= 0 || p.StopLossPct >= 100 {
		return fmt.Errorf("%w: stop_loss_pct must be in (0,100), got %v", ErrInvalidParams, p.StopLossPct)
	}
	if p.TakeProfitPct <= 0 {
		return fmt.Errorf("%w: take_profit_pct must be positive, got %v", ErrInvalidParams, p.TakeProfitPct)
	}
	if p.PositionSizePct <= 0 || p.PositionSizePct > 100 {
		return fmt.Errorf("%w: position_size_pct must be in (0,100], got %v", ErrInvalidParams, p.PositionSizePct)
	}
	if p.MaxHoldMinutes < 0 {
		return fmt.Errorf("%w: max_hold_minutes must not be negative", ErrInvalidParams)
	}
	if p.SessionClose != "" {
		if _, err := time.Parse("15:04", p.SessionClose); err != nil {
			return fmt.Errorf("%w: session_close %q: %v", ErrInvalidParams, p.SessionClose, err)
		}
	}
	if p.Location != "" {
		if _, err := time.LoadLocation(p.Location); err != nil {
			return fmt.Errorf("%w: location %q: %v", ErrInvalidParams, p.Location, err)
		}
	}
	return nil
}

// Trade is one simulated position from entry to exit.
type Trade struct {
	SignalID       string     `json:"signal_id"`
	Symbol         string     `json:"symbol"`
	Action         Action     `json:"action"`
	Kind           SignalKind `json:"kind"`
	EntryTime      time.Time  `json:"entry_time"`
	EntryPrice     float64    `json:"entry_price"`
	StopPrice      float64    `json:"stop_price"`
	TargetPrice    float64    `json:"target_price"`
	ExitTime       time.Time  `json:"exit_time"`
	ExitPrice      float64    `json:"exit_price"`
	ExitReason     ExitReason `json:"exit_reason"`
	PnLPct         float64    `json:"pnl_pct"`
	PositionPnLPct float64    `json:"position_pnl_pct"`
	Outcome        Outcome    `json:"outcome"`
}

// BacktestResult is the aggregate of a replay. WinRate and PnL figures are percentages.
type BacktestResult struct {
	TotalTrades    int      `json:"total_trades"`
	Wins           int      `json:"wins"`
	Losses         int      `json:"losses"`
	Breakevens     int      `json:"breakevens"`
	WinRate        float64  `json:"win_rate"`
	AvgPnLPerTrade float64  `json:"avg_pnl_per_trade"`
	TotalPnL       float64  `json:"total_pnl"`
	ProfitFactor   float64  `json:"profit_factor"`
	MaxDrawdown    float64  `json:"max_drawdown"`
	SharpeRatio    float64  `json:"sharpe_ratio"`
	SkippedSignals int      `json:"skipped_signals"`
	Trades         []Trade  `json:"trades"`
	Warnings       []string `json:"warnings"`
}
