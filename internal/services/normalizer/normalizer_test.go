package normalizer

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
)

func TestLevelsResolvesBothShapes(t *testing.T) {
	n := New(DefaultConfig())
	raw := []models.RawRecord{
		{"price": 687.54, "volume": 2_200_000.0, "type": "SUPPORT"},
		{"level": "690.10", "total_volume": "6.1M", "kind": "Resistance Zone", "strength": "high"},
		{"price": 680.0, "size": 300_000, "level_type": "battleground"},
	}

	levels, errs := n.Levels(raw)
	require.Empty(t, errs)
	require.Len(t, levels, 3)

	assert.Equal(t, models.Level{Price: 680, Volume: 300_000, Kind: models.LevelBattleground, Strength: models.StrengthWeak}, levels[0])
	assert.Equal(t, models.LevelSupport, levels[1].Kind)
	assert.Equal(t, models.StrengthModerate, levels[1].Strength)
	assert.Equal(t, models.LevelResistance, levels[2].Kind)
	assert.Equal(t, models.StrengthStrong, levels[2].Strength)
	assert.Equal(t, int64(6_100_000), levels[2].Volume)
}

func TestLevelsDropsMalformedAndKeepsRest(t *testing.T) {
	n := New(DefaultConfig())
	raw := []models.RawRecord{
		{"price": 100.0, "volume": 10.0, "type": "support"},
		{"volume": 10.0, "type": "support"},
		{"price": 101.0, "volume": 10.0, "type": "pivot"},
		{"price": 102.0, "volume": -1.0, "type": "resistance"},
	}

	levels, errs := n.Levels(raw)
	require.Len(t, levels, 1)
	require.Len(t, errs, 3)

	var mre *models.MalformedRecordError
	require.True(t, errors.As(errs[0], &mre))
	assert.Equal(t, 1, mre.Index)
	assert.Equal(t, "level", mre.Kind)
}

func TestOptionsAcceptsJSONNumbersAndAliases(t *testing.T) {
	n := New(DefaultConfig())
	var raw []models.RawRecord
	payload := `[
		{"strike": 690, "expiry": "2025-01-17", "cp": "C", "vol": 1200, "oi": 45000, "iv": 0.18},
		{"strike_price": 680, "expiration": "2025-01-17T00:00:00Z", "put_call": "put", "volume": 900, "open_interest": 30000},
		{"strike": 700, "expiration": "2025-01-17", "type": "straddle"}
	]`
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&raw))

	opts, errs := n.Options(raw)
	require.Len(t, errs, 1)
	require.Len(t, opts, 2)
	assert.Equal(t, models.OptionCall, opts[0].Type)
	assert.Equal(t, 45000.0, opts[0].OpenInterest)
	require.NotNil(t, opts[0].ImpliedVolatility)
	assert.Equal(t, 0.18, *opts[0].ImpliedVolatility)
	assert.Equal(t, models.OptionPut, opts[1].Type)
	assert.Nil(t, opts[1].ImpliedVolatility)
	assert.Equal(t, time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC), opts[1].Expiration)
}

func TestShortInterestNewestFirst(t *testing.T) {
	n := New(DefaultConfig())
	raw := []models.RawRecord{
		{"short_interest_pct": 18.0, "borrow_fee": "6.0%", "as_of": "2025-01-01"},
		{"si_pct": 22.0, "cost_to_borrow": 8.5, "dtc": 3.2, "as_of": "2025-01-15"},
		{"short_percent_float": 0.25, "ctb": 4.0},
		{"borrow_fee": 1.0},
	}

	recs, errs := n.ShortInterest("SPY", raw)
	require.Len(t, errs, 1)
	require.Len(t, recs, 3)
	assert.Equal(t, 22.0, recs[0].ShortInterestPct)
	assert.Equal(t, 8.5, recs[0].BorrowFeePct)
	require.NotNil(t, recs[0].DaysToCover)
	assert.Equal(t, 3.2, *recs[0].DaysToCover)
	assert.Equal(t, 6.0, recs[1].BorrowFeePct)
	assert.Equal(t, 25.0, recs[2].ShortInterestPct)
}

func TestPrintsSideAndVenue(t *testing.T) {
	n := New(DefaultConfig())
	raw := []models.RawRecord{
		{"price": 687.5, "size": 10000.0, "side": "B", "venue": "TRF"},
		{"px": 687.4, "quantity": 5000.0, "aggressor": "at_bid", "dark_pool": true},
		{"price": 687.4, "size": 100.0, "exchange": "NASDAQ"},
		{"price": 687.4},
	}

	prints, errs := n.Prints("SPY", raw)
	require.Len(t, errs, 1)
	require.Len(t, prints, 3)
	assert.Equal(t, models.SideBuy, prints[0].Side)
	assert.True(t, prints[0].OffExchange)
	assert.Equal(t, models.SideSell, prints[1].Side)
	assert.True(t, prints[1].OffExchange)
	assert.Equal(t, models.SideUnknown, prints[2].Side)
	assert.False(t, prints[2].OffExchange)
}

func TestBarsSortedAndValidated(t *testing.T) {
	n := New(DefaultConfig())
	raw := []models.RawRecord{
		{"t": 1736951460.0, "o": 2.0, "h": 3.0, "l": 1.0, "c": 2.5, "v": 100.0},
		{"time": "2025-01-15T14:30:00Z", "open": 2.0, "high": 2.2, "low": 1.9, "close": 2.1},
		{"time": "2025-01-15T14:32:00Z", "open": 2.0, "high": 1.0, "low": 1.9, "close": 2.1},
	}

	bars, errs := n.Bars("SPY", raw)
	require.Len(t, errs, 1)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	assert.Equal(t, "SPY", bars[1].Symbol)
}

func TestLevelsRejectsNonFiniteNumbers(t *testing.T) {
	n := New(DefaultConfig())
	raw := []models.RawRecord{
		{"price": 662.0, "volume": 2_200_000.0, "type": "support"},
		{"price": "NaN", "volume": 10.0, "type": "support"},
		{"price": 663.0, "volume": "Inf", "type": "support"},
		{"price": math.Inf(1), "volume": 10.0, "type": "resistance"},
	}

	levels, errs := n.Levels(raw)
	require.Len(t, levels, 1)
	assert.Equal(t, 662.0, levels[0].Price)
	require.Len(t, errs, 3)
	for _, err := range errs {
		var mre *models.MalformedRecordError
		assert.True(t, errors.As(err, &mre))
	}
}
