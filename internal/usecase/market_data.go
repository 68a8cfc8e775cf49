package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

var _ domrepo.MarketDataProvider = (*MarketData)(nil)

// MarketData serves bars from the bar store and quotes from the live book,
// falling back to the stored bars when the stream has nothing fresh.
type MarketData struct {
	store      domrepo.BarStore
	book       *QuoteBook
	loc        *time.Location
	staleAfter time.Duration
	tf         domrepo.Timeframe
	now        func() time.Time
}

func NewMarketData(store domrepo.BarStore, book *QuoteBook, loc *time.Location, staleAfter time.Duration) *MarketData {
	if loc == nil {
		loc = time.UTC
	}
	if staleAfter <= 0 {
		staleAfter = 2 * time.Minute
	}
	return &MarketData{store: store, book: book, loc: loc, staleAfter: staleAfter, tf: domrepo.TF1m, now: time.Now}
}

// WithTimeframe sets the resolution GetBars serves. Quotes always read 1m bars.
func (m *MarketData) WithTimeframe(tf domrepo.Timeframe) *MarketData {
	if tf.Valid() {
		m.tf = tf
	}
	return m
}

func (m *MarketData) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	if from.After(to) {
		return nil, fmt.Errorf("get bars %s: from must be <= to", symbol)
	}
	bars, err := m.store.GetBars(ctx, strings.ToUpper(symbol), from, to, m.tf)
	if err != nil {
		return nil, fmt.Errorf("get bars %s: %w", symbol, err)
	}
	return bars, nil
}

func (m *MarketData) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = strings.ToUpper(symbol)
	now := m.now()
	if m.book != nil {
		if q, ok := m.book.Get(symbol); ok && now.Sub(q.Timestamp) <= m.staleAfter {
			if q.PrevClose <= 0 {
				if pc, err := m.prevClose(ctx, symbol, now); err == nil && pc > 0 {
					m.book.SetPrevClose(symbol, pc)
					q.PrevClose = pc
				}
			}
			return q, nil
		}
	}
	return m.quoteFromBars(ctx, symbol, now)
}

func (m *MarketData) dayStart(t time.Time) time.Time {
	d := t.In(m.loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, m.loc)
}

func (m *MarketData) quoteFromBars(ctx context.Context, symbol string, now time.Time) (models.Quote, error) {
	today, err := m.store.GetBars(ctx, symbol, m.dayStart(now), now, domrepo.TF1m)
	if err != nil {
		return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if len(today) == 0 {
		today, err = m.store.GetLatestNBars(ctx, symbol, 1, domrepo.TF1m)
		if err != nil {
			return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
		}
	}
	if len(today) == 0 {
		return models.Quote{}, fmt.Errorf("quote %s: no stream data and no bars: %w", symbol, models.ErrProviderUnavailable)
	}
	last := today[len(today)-1]
	q := models.Quote{
		Symbol:      symbol,
		Price:       last.Close,
		SessionOpen: today[0].Open,
		Timestamp:   last.Time,
	}
	for _, b := range today {
		q.Volume += b.Volume
	}
	if pc, err := m.prevClose(ctx, symbol, last.Time); err == nil {
		q.PrevClose = pc
	}
	return q, nil
}

// prevClose is the last close before the session day of at, looking back four days.
func (m *MarketData) prevClose(ctx context.Context, symbol string, at time.Time) (float64, error) {
	start := m.dayStart(at)
	bars, err := m.store.GetBars(ctx, symbol, start.Add(-96*time.Hour), start.Add(-time.Nanosecond), domrepo.TF1m)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, nil
	}
	return bars[len(bars)-1].Close, nil
}
