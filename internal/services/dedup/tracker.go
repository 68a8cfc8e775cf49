package dedup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/domain/repository"
)

type Config struct {
	Window   time.Duration `yaml:"window" default:"5m"`
	TickSize float64       `yaml:"tick_size" default:"0.25"`
}

func DefaultConfig() Config {
	return Config{Window: 5 * time.Minute, TickSize: 0.25}
}

// Tracker suppresses repeats of the same (symbol, level, direction) inside the
// cooldown window. The signal timestamp is the clock, so replays behave like live runs.
type Tracker struct {
	store  repository.CooldownStore
	window time.Duration
	tick   decimal.Decimal
}

func NewTracker(store repository.CooldownStore, cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.TickSize <= 0 {
		cfg.TickSize = def.TickSize
	}
	return &Tracker{store: store, window: cfg.Window, tick: decimal.NewFromFloat(cfg.TickSize)}
}

// Key builds the cooldown key with the level rounded to the nearest tick.
func (t *Tracker) Key(s models.Signal) string {
	return Key(s.Symbol, s.ReferenceLevel(), s.Action, t.tick)
}

func Key(symbol string, level float64, action models.Action, tick decimal.Decimal) string {
	rounded := decimal.NewFromFloat(level).Div(tick).Round(0).Mul(tick)
	places := int32(0)
	if exp := tick.Exponent(); exp < 0 {
		places = -exp
	}
	return fmt.Sprintf("%s|%s|%s", strings.ToUpper(symbol), rounded.StringFixed(places), action)
}

// Allow reports whether s may be emitted. A suppressed attempt does not extend the window.
func (t *Tracker) Allow(ctx context.Context, s models.Signal) (bool, error) {
	ok, _, err := t.acquire(ctx, t.Key(s), s)
	return ok, err
}

func (t *Tracker) acquire(ctx context.Context, key string, s models.Signal) (bool, time.Time, error) {
	ok, last, err := t.store.Acquire(ctx, key, s.Timestamp, t.window)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("cooldown acquire: %w", err)
	}
	return ok, last, nil
}

// Filter splits candidates into allowed and suppressed, preserving order.
// Each suppressed signal carries a warning naming its cooldown key and when
// that key last fired.
func (t *Tracker) Filter(ctx context.Context, sigs []models.Signal) (allowed, suppressed []models.Signal, err error) {
	for _, s := range sigs {
		key := t.Key(s)
		ok, last, err := t.acquire(ctx, key, s)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			allowed = append(allowed, s)
		} else {
			suppressed = append(suppressed, s.WithWarning(CooldownWarning(key, last)))
		}
	}
	return allowed, suppressed, nil
}

// CooldownWarning is the warning attached to a suppressed signal.
func CooldownWarning(key string, lastFiredAt time.Time) string {
	return fmt.Sprintf("cooldown %s: last fired at %s", key, lastFiredAt.UTC().Format(time.RFC3339))
}
