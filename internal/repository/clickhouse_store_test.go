package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

// arrayConverter lets Array(String) arguments through like the ClickHouse driver does.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var barCols = []string{"bucket", "symbol", "open", "high", "low", "close", "volume"}

func TestCHBarStore_GetBars(t *testing.T) {
	db, mock := newMock(t)
	store := NewCHBarStore(db, "sf", nil)
	from := time.Date(2025, 3, 13, 14, 0, 0, 0, time.UTC)
	to := from.Add(10 * time.Minute)

	mock.ExpectQuery(`(?s)INTERVAL 5 MINUTE\) AS bucket.*FROM sf\.bars_1m\s+WHERE symbol = \? AND ts >= \?`).
		WithArgs("SPY", from, to).
		WillReturnRows(sqlmock.NewRows(barCols).
			AddRow(from, "SPY", 560.0, 561.0, 559.5, 560.5, 1200.0).
			AddRow(from.Add(5*time.Minute), "SPY", 560.5, 562.0, 560.0, 561.8, 900.0))

	bars, err := store.GetBars(context.Background(), "SPY", from, to, domrepo.TF5m)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 561.8, bars[1].Close)
	assert.True(t, bars[0].Time.Equal(from))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBarStore_LatestAscending(t *testing.T) {
	db, mock := newMock(t)
	store := NewCHBarStore(db, "sf", nil)
	t0 := time.Date(2025, 3, 13, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`ORDER BY bucket DESC\s+LIMIT \?`).
		WithArgs("QQQ", 2).
		WillReturnRows(sqlmock.NewRows(barCols).
			AddRow(t0.Add(time.Minute), "QQQ", 2.0, 2.0, 2.0, 2.0, 1.0).
			AddRow(t0, "QQQ", 1.0, 1.0, 1.0, 1.0, 1.0))

	bars, err := store.GetLatestNBars(context.Background(), "QQQ", 2, domrepo.TF1m)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
}

func TestCHBarStore_UnsupportedTimeframe(t *testing.T) {
	db, _ := newMock(t)
	store := NewCHBarStore(db, "sf", nil)
	_, err := store.GetBars(context.Background(), "SPY", time.Now(), time.Now(), domrepo.Timeframe("1h"))
	assert.ErrorIs(t, err, domrepo.ErrUnsupportedTimeframe)
}

func TestCHBarStore_StoreBarsSkipsInvalid(t *testing.T) {
	db, mock := newMock(t)
	store := NewCHBarStore(db, "sf", nil)
	ts := time.Date(2025, 3, 13, 14, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO sf\.bars_1m \(ts, symbol, open, high, low, close, volume\) VALUES \(\?, \?, \?, \?, \?, \?, \?\)$`).
		WithArgs(ts, "SPY", 1.0, 2.0, 0.5, 1.5, 10.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.StoreBars(context.Background(), []models.Bar{
		{Symbol: "SPY", Time: ts, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Symbol: "", Time: ts},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHSignalStore_StoreAndQuery(t *testing.T) {
	db, mock := newMock(t)
	store := NewCHSignalStore(db, "sf")
	ts := time.Date(2025, 3, 13, 14, 0, 0, 0, time.UTC)
	sig := models.Signal{
		ID: "id-1", Symbol: "AAPL", Action: models.ActionBuy, Kind: models.KindBreakout,
		Confidence: 0.8, Entry: 100, Stop: 99, Target: 102, IsMaster: true, Timestamp: ts,
	}

	mock.ExpectExec(`INSERT INTO sf\.signals \(id, ts, symbol`).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.StoreSignals(context.Background(), []models.Signal{sig, {}}))

	cols := []string{"id", "ts", "symbol", "action", "kind", "confidence", "entry", "stop", "target",
		"level_price", "rationale", "supporting_factors", "warnings", "is_master", "position_size_pct", "risk_reward"}
	mock.ExpectQuery(`FROM sf\.signals FINAL WHERE symbol = \?`).
		WithArgs("AAPL", ts.Add(-time.Hour), ts, 100).
		WillReturnRows(mock.NewRows(cols).
			AddRow("id-1", ts, "AAPL", "BUY", "breakout", 0.8, 100.0, 99.0, 102.0, 0.0, "", []string{"dp"}, []string{}, uint8(1), 1.0, 2.0))

	got, err := store.QuerySignals(context.Background(), "AAPL", ts.Add(-time.Hour), ts, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.ActionBuy, got[0].Action)
	assert.Equal(t, models.KindBreakout, got[0].Kind)
	assert.True(t, got[0].IsMaster)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCHBacktestSink_Write(t *testing.T) {
	db, mock := newMock(t)
	sink := NewCHBacktestSink(db, "sf")
	sink.newID = func() string { return "run-1" }
	sink.now = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }

	mock.ExpectExec(`INSERT INTO sf\.backtest_runs`).
		WithArgs("run-1", sqlmock.AnyArg(), 1, 1, 0, 0, 100.0, 1.0, 1.0, 999.0, 0.0, 0.0, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO sf\.backtest_trades`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := sink.Write(context.Background(), models.BacktestResult{
		TotalTrades: 1, Wins: 1, WinRate: 100, AvgPnLPerTrade: 1, TotalPnL: 1, ProfitFactor: 999,
		Trades: []models.Trade{{SignalID: "s1", Symbol: "SPY", Outcome: models.OutcomeWin}},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
