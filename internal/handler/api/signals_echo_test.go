package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/service/ratelimit"
	"SignalForge/internal/services/dedup"
	"SignalForge/internal/usecase"
	xlogger "SignalForge/pkg/logger"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, book *usecase.SignalBook, opts ...HandlerOption) *echo.Echo {
	t.Helper()
	bt := usecase.NewBacktestUseCase(usecase.BacktestConfig{Workers: 2, Dedup: dedup.DefaultConfig()}, nil, xlogger.Nop())
	h := NewSignalsEchoHandler(xlogger.Nop(), nil, book, bt, opts...)
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestSignals_FromBook(t *testing.T) {
	book := usecase.NewSignalBook(10)
	ts := time.Date(2025, 1, 15, 15, 0, 0, 0, time.UTC)
	book.Add(
		models.Signal{ID: "a", Symbol: "AAPL", IsMaster: true, Timestamp: ts},
		models.Signal{ID: "b", Symbol: "MSFT", Timestamp: ts.Add(time.Minute)},
		models.Signal{ID: "c", Symbol: "AAPL", Timestamp: ts.Add(2 * time.Minute)},
	)
	e := newTestServer(t, book)

	rec, env := do(e, http.MethodGet, "/api/signals?symbol=aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Rows  []models.Signal `json:"rows"`
		Total int64           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 2)
	assert.Equal(t, "c", list.Rows[0].ID)

	_, env = do(e, http.MethodGet, "/api/signals?master=true", "")
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Rows, 1)
	assert.Equal(t, "a", list.Rows[0].ID)
}

func TestSignals_RejectsOversizedLimit(t *testing.T) {
	e := newTestServer(t, usecase.NewSignalBook(10))
	rec, _ := do(e, http.MethodGet, "/api/signals?limit=1000", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContext_RequiresSymbol(t *testing.T) {
	e := newTestServer(t, usecase.NewSignalBook(10))
	rec, _ := do(e, http.MethodGet, "/api/context", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

const backtestBody = `{
  "signals": [{"id":"s1","symbol":"SPY","action":"BUY","kind":"breakout","entry":100,"timestamp":"2025-03-13T10:00:00Z"}],
  "bars": {"SPY": [
    {"symbol":"SPY","time":"2025-03-13T10:01:00Z","open":100,"high":100.2,"low":99.9,"close":100.1},
    {"symbol":"SPY","time":"2025-03-13T10:02:00Z","open":100.1,"high":101.5,"low":100,"close":101.2}
  ]},
  "params": {"stop_loss_pct":0.75,"take_profit_pct":1.0,"position_size_pct":1.0,"session_close":"16:00","location":"UTC"}
}`

func TestBacktest_RunsAndRateLimits(t *testing.T) {
	e := newTestServer(t, usecase.NewSignalBook(10), WithRateLimit(ratelimit.New(0.001, 1)))

	rec, env := do(e, http.MethodPost, "/api/backtest", backtestBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res models.BacktestResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.TotalTrades)
	assert.Equal(t, 1, res.Wins)

	rec, _ = do(e, http.MethodPost, "/api/backtest", backtestBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestBacktest_OutOfOrderIsBadRequest(t *testing.T) {
	e := newTestServer(t, usecase.NewSignalBook(10))
	body := strings.Replace(backtestBody, "2025-03-13T10:02:00Z", "2025-03-13T09:00:00Z", 1)
	rec, _ := do(e, http.MethodPost, "/api/backtest", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, usecase.NewSignalBook(10),
		WithHealthCheck("clickhouse", func(context.Context) error { return nil }),
		WithHealthCheck("stream", func(context.Context) error { return errors.New("disconnected") }),
	)
	rec, env := do(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "ok", status["clickhouse"])
	assert.Equal(t, "disconnected", status["stream"])
}

func TestMapError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, mapError(&models.InsufficientDataError{Symbol: "X"}).Status)
	assert.Equal(t, http.StatusServiceUnavailable, mapError(&models.ProviderError{Provider: "market"}).Status)
	assert.Equal(t, http.StatusBadRequest, mapError(models.ErrInvalidParams).Status)
	assert.Equal(t, http.StatusInternalServerError, mapError(errors.New("boom")).Status)
}
