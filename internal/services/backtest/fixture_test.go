package backtest

import (
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
)

// recordedSession rebuilds two trading days of recorded alerts, 31 per day:
// SPY and QQQ alternate every ten minutes from 09:40, and one IWM alert at 15:00
// is still open at the close. 22 of the 60 SPY/QQQ alerts reach the target.
func recordedSession() ([]models.Signal, map[string][]models.Bar) {
	days := []time.Time{
		time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	}
	var signals []models.Signal
	bars := map[string][]models.Bar{}
	k := 0
	for _, day := range days {
		for i := 0; i < 30; i++ {
			ts := day.Add(9*time.Hour + 40*time.Minute + time.Duration(i)*10*time.Minute)
			sym, entry := "SPY", 560.0+float64(i)*0.25
			if i%2 == 1 {
				sym, entry = "QQQ", 480.0+float64(i)*0.25
			}
			action := models.ActionBuy
			if k%4 >= 2 {
				action = models.ActionSell
			}
			win := (k*22)%60 < 22
			signals = append(signals, alert(sym, action, entry, ts))
			bars[sym] = append(bars[sym], outcomeBar(sym, action, entry, ts.Add(time.Minute), win))
			k++
		}

		ts := day.Add(15 * time.Hour)
		signals = append(signals, alert("IWM", models.ActionBuy, 205, ts))
		bars["IWM"] = append(bars["IWM"],
			models.Bar{Symbol: "IWM", Time: ts.Add(time.Minute), Open: 205, High: 205.4, Low: 204.6, Close: 205.1, Volume: 1e5},
			models.Bar{Symbol: "IWM", Time: day.Add(16 * time.Hour), Open: 205 * (1 - 0.00175), High: 205, Low: 204.5, Close: 204.7, Volume: 2e5},
		)
	}
	return signals, bars
}

func alert(sym string, action models.Action, entry float64, ts time.Time) models.Signal {
	s := models.Signal{
		Symbol:     sym,
		Action:     action,
		Kind:       models.KindBreakout,
		Entry:      entry,
		Stop:       entry * 0.995,
		Target:     entry * 1.015,
		LevelPrice: entry,
		Timestamp:  ts,
	}
	if action == models.ActionSell {
		s.Kind = models.KindSelloff
		s.Stop, s.Target = entry*1.005, entry*0.985
	}
	s.ID = models.NewSignalID(sym, s.Kind, action, entry, ts)
	return s.WithConfidence(0.7)
}

// outcomeBar returns a bar that opens at entry and trades through exactly one of the
// default 0.75% stop or 1.0% target.
func outcomeBar(sym string, action models.Action, entry float64, at time.Time, win bool) models.Bar {
	b := models.Bar{Symbol: sym, Time: at, Open: entry, Close: entry, Volume: 1e5}
	up := (action == models.ActionBuy) == win
	if up {
		b.High, b.Low = entry*1.012, entry*0.999
	} else {
		b.High, b.Low = entry*1.001, entry*0.988
	}
	return b
}

func fixtureParams() models.TradingParams {
	return models.TradingParams{
		StopLossPct:     0.75,
		TakeProfitPct:   1.0,
		PositionSizePct: 1.0,
		SessionClose:    "16:00",
		Location:        "UTC",
	}
}

func describe(t models.Trade) string {
	return fmt.Sprintf("%s %s %s", t.Symbol, t.Action, t.EntryTime.Format(time.RFC3339))
}
