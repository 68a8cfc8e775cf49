package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
)

var errDown = errors.New("upstream down")

type fakeMarket struct {
	mu     sync.Mutex
	quotes map[string]models.Quote
	bars   map[string][]models.Bar
	fail   bool
	calls  int
}

func (f *fakeMarket) GetQuote(_ context.Context, symbol string) (models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return models.Quote{}, errDown
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return models.Quote{}, errDown
	}
	return q, nil
}

func (f *fakeMarket) GetBars(_ context.Context, symbol string, _, _ time.Time) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errDown
	}
	return f.bars[symbol], nil
}

type fakeInst struct {
	levels map[string][]models.RawRecord
	short  map[string][]models.RawRecord
	fail   bool
}

func (f *fakeInst) get(m map[string][]models.RawRecord, symbol string) ([]models.RawRecord, error) {
	if f.fail {
		return nil, errDown
	}
	return m[symbol], nil
}

func (f *fakeInst) GetLevels(_ context.Context, symbol string, _ time.Time) ([]models.RawRecord, error) {
	return f.get(f.levels, symbol)
}

func (f *fakeInst) GetPrints(context.Context, string, time.Time) ([]models.RawRecord, error) {
	return f.get(nil, "")
}

func (f *fakeInst) GetShortInterest(_ context.Context, symbol string, _ time.Time) ([]models.RawRecord, error) {
	return f.get(f.short, symbol)
}

func (f *fakeInst) GetOptionsChain(context.Context, string, time.Time) ([]models.RawRecord, error) {
	return f.get(nil, "")
}

type fakeMacro struct {
	ctx models.MacroContext
	err error
}

func (f *fakeMacro) GetRegime(context.Context) (models.MacroContext, error) {
	return f.ctx, f.err
}

type fakeAlerts struct {
	mu   sync.Mutex
	sent []models.Signal
}

func (f *fakeAlerts) Emit(_ context.Context, s models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	return nil
}

type recMetrics struct {
	mu        sync.Mutex
	signals   map[string]int
	skipped   map[string]string
	fallbacks int
	errors    map[string]int
}

func newRecMetrics() *recMetrics {
	return &recMetrics{signals: map[string]int{}, skipped: map[string]string{}, errors: map[string]int{}}
}

func (m *recMetrics) RecordSignal(_ string, _ models.SignalKind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[outcome]++
}

func (m *recMetrics) RecordSymbolSkipped(symbol, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped[symbol] = reason
}

func (m *recMetrics) RecordProviderFallback(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks++
}

func (m *recMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *recMetrics) RecordLastPrice(string, float64) {}
func (m *recMetrics) RecordLatency(string, float64)   {}

type memBarWriter struct {
	mu   sync.Mutex
	bars []models.Bar
	fail bool
}

func (w *memBarWriter) StoreBars(_ context.Context, bars []models.Bar) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errDown
	}
	w.bars = append(w.bars, bars...)
	return nil
}
