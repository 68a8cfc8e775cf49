package repository

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

// MarketDataProvider supplies bars and quotes. Implementations return
// models.ErrProviderUnavailable (or a *models.ProviderError) on timeouts and upstream failures.
type MarketDataProvider interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// InstitutionalDataProvider returns raw provider payloads; they are normalized downstream.
// Any method may return empty or partial data.
type InstitutionalDataProvider interface {
	GetLevels(ctx context.Context, symbol string, date time.Time) ([]models.RawRecord, error)
	GetPrints(ctx context.Context, symbol string, date time.Time) ([]models.RawRecord, error)
	GetShortInterest(ctx context.Context, symbol string, date time.Time) ([]models.RawRecord, error)
	GetOptionsChain(ctx context.Context, symbol string, date time.Time) ([]models.RawRecord, error)
}

type MacroContextProvider interface {
	GetRegime(ctx context.Context) (models.MacroContext, error)
}

// AlertManager delivers emitted signals. Emission is fire-and-forget for the caller.
type AlertManager interface {
	Emit(ctx context.Context, s models.Signal) error
}

type BacktestReportSink interface {
	Write(ctx context.Context, r models.BacktestResult) error
}

// CooldownStore is any key-value store with TTL semantics. Acquire is atomic per key:
// it records now as the fire time and returns true only when no live entry exists.
// A refused attempt leaves the existing entry untouched.
type CooldownStore interface {
	Acquire(ctx context.Context, key string, now time.Time, window time.Duration) (allowed bool, lastFiredAt time.Time, err error)
}

// SignalStore persists emitted signals.
type SignalStore interface {
	Init(ctx context.Context) error
	StoreSignals(ctx context.Context, signals []models.Signal) error
	QuerySignals(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Signal, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordSignal(symbol string, kind models.SignalKind, outcome string)
	RecordSymbolSkipped(symbol, reason string)
	RecordProviderFallback(provider, op string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}

// QuoteStream is a live trade-print feed.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Print, <-chan error)
	Reconnect(ctx context.Context) error
	IsConnected() bool
	Close() error
}

// AlertPublisher pushes signals onto a message bus.
type AlertPublisher interface {
	Publish(ctx context.Context, s models.Signal) error
	PublishBatch(ctx context.Context, signals []models.Signal) error
	Close() error
}
