package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

type memBarStore struct {
	bars map[string][]models.Bar
}

func (s *memBarStore) GetBars(_ context.Context, symbol string, from, to time.Time, _ domrepo.Timeframe) ([]models.Bar, error) {
	var out []models.Bar
	for _, b := range s.bars[symbol] {
		if !b.Time.Before(from) && !b.Time.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memBarStore) GetLatestNBars(_ context.Context, symbol string, n int, _ domrepo.Timeframe) ([]models.Bar, error) {
	all := s.bars[symbol]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

var mdDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func mdBar(ts time.Time, open, close, vol float64) models.Bar {
	return models.Bar{Symbol: "SPY", Time: ts, Open: open, High: max(open, close), Low: min(open, close), Close: close, Volume: vol}
}

func TestQuoteBook_RollsSession(t *testing.T) {
	book := NewQuoteBook(time.UTC)
	d1 := mdDay.Add(-24*time.Hour + 15*time.Hour)
	book.Apply(models.Print{Symbol: "spy", Price: 100, Size: 10, Timestamp: d1})
	book.Apply(models.Print{Symbol: "SPY", Price: 101, Size: 5, Timestamp: d1.Add(time.Minute)})
	book.Apply(models.Print{Symbol: "SPY", Price: 50, Size: 5, Timestamp: d1}) // stale

	q, ok := book.Get("SPY")
	require.True(t, ok)
	assert.Equal(t, 101.0, q.Price)
	assert.Equal(t, 100.0, q.SessionOpen)
	assert.Equal(t, 15.0, q.Volume)

	book.Apply(models.Print{Symbol: "SPY", Price: 103, Size: 1, Timestamp: mdDay.Add(14 * time.Hour)})
	q, _ = book.Get("SPY")
	assert.Equal(t, 101.0, q.PrevClose)
	assert.Equal(t, 103.0, q.SessionOpen)
	assert.Equal(t, 1.0, q.Volume)
}

func TestMarketData_QuoteFromBookFillsPrevClose(t *testing.T) {
	store := &memBarStore{bars: map[string][]models.Bar{"SPY": {
		mdBar(mdDay.Add(-8*time.Hour), 99, 99.5, 100),
	}}}
	book := NewQuoteBook(time.UTC)
	now := mdDay.Add(14 * time.Hour)
	book.Apply(models.Print{Symbol: "SPY", Price: 100, Size: 1, Timestamp: now.Add(-10 * time.Second)})

	md := NewMarketData(store, book, time.UTC, time.Minute)
	md.now = func() time.Time { return now }

	q, err := md.GetQuote(context.Background(), "spy")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Price)
	assert.Equal(t, 99.5, q.PrevClose)
}

func TestMarketData_FallsBackToBars(t *testing.T) {
	store := &memBarStore{bars: map[string][]models.Bar{"SPY": {
		mdBar(mdDay.Add(-8*time.Hour), 99, 98, 100),
		mdBar(mdDay.Add(14*time.Hour), 98.5, 99, 100),
		mdBar(mdDay.Add(14*time.Hour+time.Minute), 99, 99.4, 50),
	}}}
	md := NewMarketData(store, NewQuoteBook(time.UTC), time.UTC, time.Minute)
	md.now = func() time.Time { return mdDay.Add(15 * time.Hour) }

	q, err := md.GetQuote(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 99.4, q.Price)
	assert.Equal(t, 98.5, q.SessionOpen)
	assert.Equal(t, 98.0, q.PrevClose)
	assert.Equal(t, 150.0, q.Volume)

	_, err = md.GetQuote(context.Background(), "QQQ")
	assert.True(t, errors.Is(err, models.ErrProviderUnavailable))
}

func TestBarAggregator_ClosesMinutes(t *testing.T) {
	w := &memBarWriter{}
	agg := NewBarAggregator(w, newRecMetrics(), nil)
	t0 := mdDay.Add(14 * time.Hour)

	agg.Add(models.Print{Symbol: "SPY", Price: 100, Size: 1, Timestamp: t0.Add(5 * time.Second)})
	agg.Add(models.Print{Symbol: "SPY", Price: 101, Size: 2, Timestamp: t0.Add(20 * time.Second)})
	agg.Add(models.Print{Symbol: "SPY", Price: 99.5, Size: 1, Timestamp: t0.Add(50 * time.Second)})
	agg.Add(models.Print{Symbol: "SPY", Price: 100.2, Size: 4, Timestamp: t0.Add(70 * time.Second)})
	agg.Add(models.Print{Symbol: "SPY", Price: 1, Size: 1, Timestamp: t0.Add(10 * time.Second)}) // late

	require.NoError(t, agg.Flush(context.Background(), t0.Add(65*time.Second)))
	require.Len(t, w.bars, 1)
	b := w.bars[0]
	assert.Equal(t, models.Bar{Symbol: "SPY", Time: t0, Open: 100, High: 101, Low: 99.5, Close: 99.5, Volume: 4}, b)

	require.NoError(t, agg.Flush(context.Background(), t0.Add(2*time.Minute)))
	require.Len(t, w.bars, 2)
	assert.Equal(t, 100.2, w.bars[1].Close)
}

func TestBarAggregator_KeepsBarsOnWriteFailure(t *testing.T) {
	w := &memBarWriter{fail: true}
	agg := NewBarAggregator(w, newRecMetrics(), nil)
	t0 := mdDay.Add(14 * time.Hour)
	agg.Add(models.Print{Symbol: "SPY", Price: 100, Size: 1, Timestamp: t0})

	assert.Error(t, agg.Flush(context.Background(), t0.Add(time.Minute)))
	w.fail = false
	require.NoError(t, agg.Flush(context.Background(), t0.Add(time.Minute)))
	assert.Len(t, w.bars, 1)
}
