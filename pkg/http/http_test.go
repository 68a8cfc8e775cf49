package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listRequest struct {
	Symbol string `query:"symbol" validate:"required"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	c, _ := newContext("/?symbol=SPY")
	req := &listRequest{}
	require.Nil(t, ReadAndValidateRequest(c, req))
	assert.Equal(t, "SPY", req.Symbol)
	assert.Equal(t, 50, req.Limit)

	c, _ = newContext("/?limit=900")
	errs := ReadAndValidateRequest(c, &listRequest{})
	require.Len(t, errs, 2)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "symbol", errs[0].Field)
	assert.Equal(t, "ERR_LTE", errs[1].Code)
	assert.Equal(t, "limit", errs[1].Field)
	assert.Equal(t, "limit must be at most 500", errs[1].Message)
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newContext("/")
	require.NoError(t, AppErrorResponse(c, UpstreamError("market data provider unavailable").WithError(errors.New("timeout"))))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_UPSTREAM"`)
	assert.NotContains(t, rec.Body.String(), "timeout")

	c, rec = newContext("/")
	require.NoError(t, AppErrorResponse(c, errors.New("raw")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INTERNAL")
}

func TestClientDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		if r.URL.Query().Get("symbol") == "BAD" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
			return
		}
		_, _ = w.Write([]byte(`{"symbol":"` + r.URL.Query().Get("symbol") + `"}`))
	}))
	defer srv.Close()

	c := NewClient()
	var out struct {
		Symbol string `json:"symbol"`
	}
	require.NoError(t, c.Get(context.Background(), srv.URL, map[string][]string{"symbol": {"SPY"}}, map[string]string{"X-API-Key": "k"}, &out))
	assert.Equal(t, "SPY", out.Symbol)

	err := c.Get(context.Background(), srv.URL, map[string][]string{"symbol": {"BAD"}}, map[string]string{"X-API-Key": "k"}, &out)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Temporary())
	assert.True(t, strings.Contains(se.Body, "upstream down"))
}
