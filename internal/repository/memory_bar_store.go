package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
)

var (
	_ domrepo.BarStore  = (*MemoryBarStore)(nil)
	_ domrepo.BarWriter = (*MemoryBarStore)(nil)
)

// MemoryBarStore keeps recent 1m bars per symbol in process. It backs the
// live stream when ClickHouse is disabled.
type MemoryBarStore struct {
	mu        sync.RWMutex
	bars      map[string][]models.Bar
	retention time.Duration
}

func NewMemoryBarStore(retention time.Duration) *MemoryBarStore {
	if retention <= 0 {
		retention = 5 * 24 * time.Hour
	}
	return &MemoryBarStore{bars: make(map[string][]models.Bar), retention: retention}
}

// StoreBars upserts by (symbol, minute) and trims bars older than the retention.
func (s *MemoryBarStore) StoreBars(_ context.Context, bars []models.Bar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	touched := map[string]bool{}
	for _, b := range bars {
		sym := strings.ToUpper(b.Symbol)
		b.Symbol = sym
		b.Time = b.Time.UTC().Truncate(time.Minute)
		list := s.bars[sym]
		i := sort.Search(len(list), func(i int) bool { return !list[i].Time.Before(b.Time) })
		switch {
		case i < len(list) && list[i].Time.Equal(b.Time):
			list[i] = b
		default:
			list = append(list, models.Bar{})
			copy(list[i+1:], list[i:])
			list[i] = b
		}
		s.bars[sym] = list
		touched[sym] = true
	}
	for sym := range touched {
		list := s.bars[sym]
		cutoff := list[len(list)-1].Time.Add(-s.retention)
		i := sort.Search(len(list), func(i int) bool { return !list[i].Time.Before(cutoff) })
		if i > 0 {
			s.bars[sym] = append([]models.Bar(nil), list[i:]...)
		}
	}
	return nil
}

func (s *MemoryBarStore) GetBars(_ context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Bar, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrUnsupportedTimeframe, tf)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Bar
	for _, b := range s.bars[strings.ToUpper(symbol)] {
		if b.Time.Before(from) || b.Time.After(to) {
			continue
		}
		out = append(out, b)
	}
	return resample(out, tf), nil
}

// GetLatestNBars returns the n most recent bars, oldest first.
func (s *MemoryBarStore) GetLatestNBars(_ context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Bar, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("%w: %s", domrepo.ErrUnsupportedTimeframe, tf)
	}
	s.mu.RLock()
	all := resample(s.bars[strings.ToUpper(symbol)], tf)
	s.mu.RUnlock()
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return append([]models.Bar(nil), all...), nil
}

// resample merges sorted 1m bars into tf buckets.
func resample(in []models.Bar, tf domrepo.Timeframe) []models.Bar {
	width := tf.Duration()
	if width == time.Minute {
		return append([]models.Bar(nil), in...)
	}
	var out []models.Bar
	for _, b := range in {
		bucket := b.Time.Truncate(width)
		if n := len(out); n > 0 && out[n-1].Time.Equal(bucket) {
			last := &out[n-1]
			if b.High > last.High {
				last.High = b.High
			}
			if b.Low < last.Low {
				last.Low = b.Low
			}
			last.Close = b.Close
			last.Volume += b.Volume
			continue
		}
		b.Time = bucket
		out = append(out, b)
	}
	return out
}
