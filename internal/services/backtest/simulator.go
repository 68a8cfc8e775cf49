package backtest

import (
	"fmt"
	"math"
	"sort"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/util"
)

// Simulator replays signals against historical bars. It is single-threaded,
// reads no clock and draws no randomness, so identical input gives identical output.
type Simulator struct {
	params  models.TradingParams
	loc     *time.Location
	closeHH int
	closeMM int
}

func NewSimulator(params models.TradingParams) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	loc := time.UTC
	if params.Location != "" {
		l, err := time.LoadLocation(params.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidParams, err)
		}
		loc = l
	}
	s := &Simulator{params: params, loc: loc, closeHH: -1}
	if params.SessionClose != "" {
		hh, mm, err := util.ParseClock(params.SessionClose)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrInvalidParams, err)
		}
		s.closeHH, s.closeMM = hh, mm
	}
	return s, nil
}

// Run simulates every signal in order. Signals must be sorted by timestamp and each
// bar series by time; otherwise a *models.ReplayOrderError is returned before any trade is opened.
// Signals that cannot be traded are skipped and reported in warnings.
func (s *Simulator) Run(signals []models.Signal, bars map[string][]models.Bar) ([]models.Trade, []string, error) {
	if err := CheckOrder(signals, bars); err != nil {
		return nil, nil, err
	}

	trades := make([]models.Trade, 0, len(signals))
	warnings := []string{}
	openUntil := make(map[string]time.Time)

	for _, sig := range signals {
		if until, ok := openUntil[sig.Symbol]; ok && !s.params.AllowOverlap && sig.Timestamp.Before(until) {
			warnings = append(warnings, fmt.Sprintf("skipped %s %s %s at %s: position open until %s",
				sig.Symbol, sig.Action, sig.Kind, sig.Timestamp.Format(time.RFC3339), until.Format(time.RFC3339)))
			continue
		}
		trade, ok, reason := s.simulate(sig, bars[sig.Symbol])
		if !ok {
			warnings = append(warnings, fmt.Sprintf("skipped %s %s %s at %s: %s",
				sig.Symbol, sig.Action, sig.Kind, sig.Timestamp.Format(time.RFC3339), reason))
			continue
		}
		trades = append(trades, trade)
		if until, ok := openUntil[sig.Symbol]; !ok || trade.ExitTime.After(until) {
			openUntil[sig.Symbol] = trade.ExitTime
		}
	}
	return trades, warnings, nil
}

func (s *Simulator) levels(sig models.Signal) (stop, target float64) {
	if s.params.UseSignalLevels && sig.ValidPrices() {
		return sig.Stop, sig.Target
	}
	sl := s.params.StopLossPct / 100
	tp := s.params.TakeProfitPct / 100
	if sig.Action == models.ActionSell {
		return sig.Entry * (1 + sl), sig.Entry * (1 - tp)
	}
	return sig.Entry * (1 - sl), sig.Entry * (1 + tp)
}

func (s *Simulator) deadline(sig models.Signal) time.Time {
	var d time.Time
	if s.closeHH >= 0 {
		d = util.AtClock(sig.Timestamp, s.closeHH, s.closeMM, s.loc)
	}
	if s.params.MaxHoldMinutes > 0 {
		hold := sig.Timestamp.Add(time.Duration(s.params.MaxHoldMinutes) * time.Minute)
		if d.IsZero() || hold.Before(d) {
			d = hold
		}
	}
	return d
}

func (s *Simulator) simulate(sig models.Signal, series []models.Bar) (models.Trade, bool, string) {
	if sig.Entry <= 0 {
		return models.Trade{}, false, "no entry price"
	}
	if sig.Action != models.ActionBuy && sig.Action != models.ActionSell {
		return models.Trade{}, false, fmt.Sprintf("unknown action %q", sig.Action)
	}
	start := sort.Search(len(series), func(i int) bool { return series[i].Time.After(sig.Timestamp) })
	if start == len(series) {
		return models.Trade{}, false, "no bars after signal"
	}

	stop, target := s.levels(sig)
	t := models.Trade{
		SignalID:    sig.ID,
		Symbol:      sig.Symbol,
		Action:      sig.Action,
		Kind:        sig.Kind,
		EntryTime:   sig.Timestamp,
		EntryPrice:  sig.Entry,
		StopPrice:   stop,
		TargetPrice: target,
	}
	deadline := s.deadline(sig)
	buy := sig.Action == models.ActionBuy

	for _, b := range series[start:] {
		if !deadline.IsZero() && !b.Time.Before(deadline) {
			return s.close(t, b.Time, b.Open, models.ExitTimeExit), true, ""
		}
		if price, reason, hit := exitInBar(b, buy, stop, target); hit {
			return s.close(t, b.Time, price, reason), true, ""
		}
	}
	last := series[len(series)-1]
	return s.close(t, last.Time, last.Close, models.ExitTimeExit), true, ""
}

// exitInBar checks one bar. A gap through a level fills at the open; when
// both levels trade inside the bar the stop is assumed to have come first.
func exitInBar(b models.Bar, buy bool, stop, target float64) (float64, models.ExitReason, bool) {
	if buy {
		switch {
		case b.Open <= stop:
			return b.Open, models.ExitStop, true
		case b.Open >= target:
			return b.Open, models.ExitTarget, true
		case b.Low <= stop:
			return stop, models.ExitStop, true
		case b.High >= target:
			return target, models.ExitTarget, true
		}
		return 0, "", false
	}
	switch {
	case b.Open >= stop:
		return b.Open, models.ExitStop, true
	case b.Open <= target:
		return b.Open, models.ExitTarget, true
	case b.High >= stop:
		return stop, models.ExitStop, true
	case b.Low <= target:
		return target, models.ExitTarget, true
	}
	return 0, "", false
}

func (s *Simulator) close(t models.Trade, at time.Time, price float64, reason models.ExitReason) models.Trade {
	t.ExitTime = at
	t.ExitPrice = price
	t.ExitReason = reason
	t.PnLPct = round4((price - t.EntryPrice) / t.EntryPrice * 100 * t.Action.Direction())
	t.PositionPnLPct = round4(t.PnLPct * s.params.PositionSizePct / 100)
	switch {
	case t.PnLPct > 0:
		t.Outcome = models.OutcomeWin
	case t.PnLPct < 0:
		t.Outcome = models.OutcomeLoss
	default:
		t.Outcome = models.OutcomeBreakeven
	}
	return t
}

// CheckOrder validates replay input ordering without simulating anything.
func CheckOrder(signals []models.Signal, bars map[string][]models.Bar) error {
	if err := checkSignalOrder(signals); err != nil {
		return err
	}
	symbols := make([]string, 0, len(bars))
	for sym := range bars {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	for _, sym := range symbols {
		if err := checkBarOrder(sym, bars[sym]); err != nil {
			return err
		}
	}
	return nil
}

func checkSignalOrder(signals []models.Signal) error {
	for i := 1; i < len(signals); i++ {
		if signals[i].Timestamp.Before(signals[i-1].Timestamp) {
			return &models.ReplayOrderError{Input: "signals", Index: i, Prev: signals[i-1].Timestamp, Cur: signals[i].Timestamp}
		}
	}
	return nil
}

func checkBarOrder(symbol string, bars []models.Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Time.Before(bars[i-1].Time) {
			return &models.ReplayOrderError{Input: "bars " + symbol, Index: i, Prev: bars[i-1].Time, Cur: bars[i].Time}
		}
	}
	return nil
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
