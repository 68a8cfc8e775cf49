package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/pkg/cache"
	applogger "SignalForge/pkg/logger"
)

const (
	providerMarket        = "market"
	providerInstitutional = "institutional"
)

type GatewayConfig struct {
	Timeout         time.Duration `yaml:"timeout" default:"5s"`
	RatePerSec      float64       `yaml:"rate_per_sec" default:"5"`
	Burst           int           `yaml:"burst" default:"5"`
	CacheTTL        time.Duration `yaml:"cache_ttl" default:"6h"`
	BreakerFailures uint32        `yaml:"breaker_failures" default:"5"`
	BreakerOpen     time.Duration `yaml:"breaker_open" default:"30s"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Timeout:         5 * time.Second,
		RatePerSec:      5,
		Burst:           5,
		CacheTTL:        6 * time.Hour,
		BreakerFailures: 5,
		BreakerOpen:     30 * time.Second,
	}
}

// Gateway guards every provider call with a timeout, a per-provider rate limit
// and a circuit breaker. Successful payloads are cached; a failed call falls back
// to the cached copy (reported as stale) or to a *models.ProviderError.
type Gateway struct {
	market   domrepo.MarketDataProvider
	inst     domrepo.InstitutionalDataProvider
	cache    cache.Service
	limiter  *ratelimit.Limiter
	breakers map[string]*gobreaker.CircuitBreaker
	metrics  domrepo.Metrics
	log      *applogger.Logger
	cfg      GatewayConfig
}

func NewGateway(
	market domrepo.MarketDataProvider,
	inst domrepo.InstitutionalDataProvider,
	c cache.Service,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	cfg GatewayConfig,
) *Gateway {
	def := DefaultGatewayConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerOpen <= 0 {
		cfg.BreakerOpen = def.BreakerOpen
	}
	if log == nil {
		log = applogger.Nop()
	}
	g := &Gateway{
		market:   market,
		inst:     inst,
		cache:    c,
		limiter:  ratelimit.New(cfg.RatePerSec, cfg.Burst),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		metrics:  metrics,
		log:      log,
		cfg:      cfg,
	}
	for _, name := range []string{providerMarket, providerInstitutional} {
		g.breakers[name] = g.newBreaker(name)
	}
	return g
}

func (g *Gateway) newBreaker(name string) *gobreaker.CircuitBreaker {
	failures := g.cfg.BreakerFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     g.cfg.BreakerOpen,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= failures },
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn("provider breaker state change",
				applogger.String("provider", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	})
}

// BreakerState reports the breaker state of a provider, for health output.
func (g *Gateway) BreakerState(provider string) string {
	if b, ok := g.breakers[provider]; ok {
		return b.State().String()
	}
	return "unknown"
}

// fetch runs fn behind the provider guards. stale is true when the value came from cache.
func fetch[T any](ctx context.Context, g *Gateway, provider, op, key string, fn func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	start := time.Now()
	res, err := g.breakers[provider].Execute(func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
		if err := g.limiter.Wait(cctx, provider); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		return fn(cctx)
	})
	g.metrics.RecordLatency("provider_"+op, time.Since(start).Seconds())

	if err == nil {
		v, _ := res.(T)
		if g.cache != nil {
			if cerr := g.cache.Set(ctx, key, v, g.cfg.CacheTTL); cerr != nil {
				g.log.Debug("provider cache set failed", applogger.String("key", key), applogger.Error(cerr))
			}
		}
		return v, false, nil
	}

	g.metrics.RecordProviderFallback(provider, op)
	perr := &models.ProviderError{Provider: provider, Op: op, Err: err}
	if g.cache != nil {
		var cached T
		if cerr := g.cache.Get(ctx, key, &cached); cerr == nil {
			g.log.Warn("provider failed, serving cached payload",
				applogger.String("provider", provider),
				applogger.String("op", op),
				applogger.Error(err),
			)
			return cached, true, nil
		}
	}
	return zero, false, perr
}

func (g *Gateway) Quote(ctx context.Context, symbol string) (models.Quote, bool, error) {
	key := cache.Key("gw", providerMarket, "quote", symbol)
	return fetch(ctx, g, providerMarket, "get_quote", key, func(c context.Context) (models.Quote, error) {
		return g.market.GetQuote(c, symbol)
	})
}

// Bars keeps the last good series per symbol. A cached series is trimmed to
// [from, to] before it is served.
func (g *Gateway) Bars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, bool, error) {
	key := cache.Key("gw", providerMarket, "bars", symbol)
	bars, stale, err := fetch(ctx, g, providerMarket, "get_bars", key, func(c context.Context) ([]models.Bar, error) {
		return g.market.GetBars(c, symbol, from, to)
	})
	if err != nil || !stale {
		return bars, stale, err
	}
	return trimBars(bars, from, to), true, nil
}

func trimBars(bars []models.Bar, from, to time.Time) []models.Bar {
	out := make([]models.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Time.Before(from) || b.Time.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Institutional fetches one raw input family for symbol on date.
func (g *Gateway) Institutional(ctx context.Context, family models.InputFamily, symbol string, date time.Time) ([]models.RawRecord, bool, error) {
	var call func(context.Context, string, time.Time) ([]models.RawRecord, error)
	switch family {
	case models.FamilyLevels:
		call = g.inst.GetLevels
	case models.FamilyPrints:
		call = g.inst.GetPrints
	case models.FamilyOptions:
		call = g.inst.GetOptionsChain
	case models.FamilyShortInterest:
		call = g.inst.GetShortInterest
	default:
		return nil, false, fmt.Errorf("unknown input family %q", family)
	}
	op := "get_" + string(family)
	key := cache.Key("gw", providerInstitutional, family, symbol, date.Format(time.DateOnly))
	return fetch(ctx, g, providerInstitutional, op, key, func(c context.Context) ([]models.RawRecord, error) {
		return call(c, symbol, date)
	})
}
