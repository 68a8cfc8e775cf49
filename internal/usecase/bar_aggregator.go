package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	drepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

// BarAggregator rolls live prints into 1m bars and persists each bar once its
// minute has closed. Prints older than the open bar are dropped.
type BarAggregator struct {
	writer  drepo.BarWriter
	metrics drepo.Metrics
	log     *applogger.Logger

	mu      sync.Mutex
	open    map[string]models.Bar
	pending []models.Bar
}

func NewBarAggregator(writer drepo.BarWriter, metrics drepo.Metrics, log *applogger.Logger) *BarAggregator {
	if log == nil {
		log = applogger.Nop()
	}
	return &BarAggregator{writer: writer, metrics: metrics, log: log, open: make(map[string]models.Bar)}
}

func (a *BarAggregator) Add(p models.Print) {
	if p.Price <= 0 || p.Symbol == "" {
		return
	}
	sym := strings.ToUpper(p.Symbol)
	minute := p.Timestamp.UTC().Truncate(time.Minute)

	a.mu.Lock()
	defer a.mu.Unlock()
	cur, ok := a.open[sym]
	switch {
	case ok && minute.Before(cur.Time):
		a.metrics.RecordError("bar_late_print")
		return
	case ok && minute.After(cur.Time):
		a.pending = append(a.pending, cur)
		ok = false
	}
	if !ok {
		a.open[sym] = models.Bar{Symbol: sym, Time: minute, Open: p.Price, High: p.Price, Low: p.Price, Close: p.Price, Volume: p.Size}
		return
	}
	cur.High = max(cur.High, p.Price)
	cur.Low = min(cur.Low, p.Price)
	cur.Close = p.Price
	cur.Volume += p.Size
	a.open[sym] = cur
}

// closed moves every bar whose minute ended by now into the pending list and returns it.
func (a *BarAggregator) closed(now time.Time) []models.Bar {
	a.mu.Lock()
	defer a.mu.Unlock()
	for sym, b := range a.open {
		if !now.Before(b.Time.Add(time.Minute)) {
			a.pending = append(a.pending, b)
			delete(a.open, sym)
		}
	}
	out := a.pending
	a.pending = nil
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Flush writes all bars closed at now. Failed writes are kept for the next flush.
func (a *BarAggregator) Flush(ctx context.Context, now time.Time) error {
	bars := a.closed(now)
	if len(bars) == 0 {
		return nil
	}
	if err := a.writer.StoreBars(ctx, bars); err != nil {
		a.metrics.RecordError("bar_store")
		a.mu.Lock()
		a.pending = append(bars, a.pending...)
		a.mu.Unlock()
		return err
	}
	return nil
}

// Run flushes on every tick until ctx ends, then flushes whatever is complete.
func (a *BarAggregator) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = 5 * time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := a.Flush(context.WithoutCancel(ctx), time.Now()); err != nil {
				a.log.Error("final bar flush failed", applogger.Error(err))
			}
			return
		case now := <-t.C:
			if err := a.Flush(ctx, now); err != nil {
				a.log.Warn("bar flush failed", applogger.Error(err))
			}
		}
	}
}
