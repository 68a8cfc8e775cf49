package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	xhttp "SignalForge/pkg/http"
	xlogger "SignalForge/pkg/logger"
	xutil "SignalForge/pkg/util"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type SignalsEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.Pipeline
	book     *usecase.SignalBook
	store    domrepo.SignalStore
	bt       *usecase.BacktestUseCase
	cache    cache.Service
	rl       *ratelimit.Limiter
	checks   map[string]HealthCheck
	ctxTTL   time.Duration
}

type HandlerOption func(*SignalsEchoHandler)

// WithSignalStore serves time-ranged queries from persisted history.
func WithSignalStore(s domrepo.SignalStore) HandlerOption {
	return func(h *SignalsEchoHandler) { h.store = s }
}

// WithContextCache caches /api/context responses for ttl.
func WithContextCache(c cache.Service, ttl time.Duration) HandlerOption {
	return func(h *SignalsEchoHandler) {
		h.cache = c
		h.ctxTTL = ttl
	}
}

// WithRateLimit limits /api/context and /api/backtest per client address.
func WithRateLimit(rl *ratelimit.Limiter) HandlerOption {
	return func(h *SignalsEchoHandler) { h.rl = rl }
}

func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *SignalsEchoHandler) { h.checks[name] = check }
}

func NewSignalsEchoHandler(
	logger *xlogger.Logger,
	pipeline *usecase.Pipeline,
	book *usecase.SignalBook,
	bt *usecase.BacktestUseCase,
	opts ...HandlerOption,
) *SignalsEchoHandler {
	h := &SignalsEchoHandler{
		logger:   logger,
		pipeline: pipeline,
		book:     book,
		bt:       bt,
		checks:   map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *SignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/signals", h.Signals)
	g.GET("/context", h.Context)
	g.POST("/backtest", h.Backtest)
}

// Signals lists recent signals. With from/to and a configured store the query
// goes to persisted history, otherwise to the in-memory book.
func (h *SignalsEchoHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))

	from, hasFrom := xutil.ParseTime(c.QueryParam("from"))
	if h.store != nil && hasFrom {
		to := xutil.ParseTimeDefault(c.QueryParam("to"), time.Now().UTC())
		rows, err := h.store.QuerySignals(c.Request().Context(), symbol, from, to, req.Limit)
		if err != nil {
			h.logger.Error("query signals", xlogger.Symbol(symbol), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("signal history unavailable").WithError(err))
		}
		if req.Master {
			rows = masterOnly(rows)
		}
		return xhttp.ListResponse(c, rows, int64(len(rows)))
	}

	rows := h.book.Recent(symbol, req.Limit, req.Master)
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func masterOnly(in []models.Signal) []models.Signal {
	out := in[:0]
	for _, s := range in {
		if s.IsMaster {
			out = append(out, s)
		}
	}
	return out
}

// Context returns the institutional context snapshot for one symbol.
func (h *SignalsEchoHandler) Context(c echo.Context) error {
	req := &models.ContextRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "context") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError())
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	ctx := c.Request().Context()

	key := "context:" + symbol
	if h.cache != nil {
		if snap, err := cache.GetTyped[usecase.Snapshot](ctx, h.cache, key); err == nil {
			c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
			return xhttp.SuccessResponse(c, snap)
		}
	}

	snap, err := h.pipeline.Snapshot(ctx, symbol)
	if err != nil {
		h.logger.Warn("context snapshot", xlogger.Symbol(symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, snap, h.ctxTTL); err != nil {
			h.logger.Warn("context cache set", xlogger.Error(err))
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap)
}

func (h *SignalsEchoHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.allow(c, "backtest") {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError())
	}
	res, err := h.bt.Run(c.Request().Context(), *req)
	if err != nil {
		h.logger.Warn("backtest", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SignalsEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()
	status := map[string]string{}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "ok"
	}
	return xhttp.DataResponse(c, code, status)
}

func (h *SignalsEchoHandler) allow(c echo.Context, route string) bool {
	if h.rl == nil {
		return true
	}
	return h.rl.Allow(c.RealIP() + ":" + route)
}

// mapError translates domain errors to API errors.
func mapError(err error) *xhttp.AppError {
	var (
		insufficient *models.InsufficientDataError
		order        *models.ReplayOrderError
	)
	switch {
	case errors.As(err, &insufficient):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.As(err, &order), errors.Is(err, models.ErrInvalidParams):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrProviderUnavailable):
		return xhttp.UpstreamError("market data provider unavailable").WithError(err)
	}
	return xhttp.InternalError("internal error").WithError(err)
}
