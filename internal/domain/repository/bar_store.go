package repository

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

// Timeframe represents bar resolution buckets.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
)

// BarStore provides read-only access to historical bars for replay and market data.
type BarStore interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time, tf Timeframe) ([]models.Bar, error)
	GetLatestNBars(ctx context.Context, symbol string, n int, tf Timeframe) ([]models.Bar, error)
}

// BarWriter persists closed 1m bars.
type BarWriter interface {
	StoreBars(ctx context.Context, bars []models.Bar) error
}
