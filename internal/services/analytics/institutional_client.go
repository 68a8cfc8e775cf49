package analytics

import (
    "context"
    "net/url"
    "time"

    "SignalForge/internal/domain/models"
    "SignalForge/internal/domain/repository"
    xhttp "SignalForge/pkg/http"
)

var _ repository.InstitutionalDataProvider = (*HTTPInstitutionalClient)(nil)

// HTTPInstitutionalClient fetches raw institutional payloads from a JSON API.
// Records are passed through untouched; the normalizer owns their shape.
type HTTPInstitutionalClient struct{ base *HTTPServiceBase }

func NewHTTPInstitutionalClient(cfg ServiceConfig, opts ...xhttp.ClientOption) *HTTPInstitutionalClient {
    return &HTTPInstitutionalClient{base: NewHTTPServiceBase(cfg, opts...)}
}

// envelope accepts both a bare array and {"data": [...]}.
type envelope []models.RawRecord

func (e *envelope) UnmarshalJSON(b []byte) error {
    var arr []models.RawRecord
    if err := decodeJSON(b, &arr); err == nil {
        *e = arr
        return nil
    }
    var wrapped struct {
        Data []models.RawRecord `json:"data"`
    }
    if err := decodeJSON(b, &wrapped); err != nil {
        return err
    }
    *e = wrapped.Data
    return nil
}

func (c *HTTPInstitutionalClient) fetch(ctx context.Context, op, path, symbol string, date time.Time) ([]models.RawRecord, error) {
    q := url.Values{}
    q.Set("symbol", symbol)
    q.Set("date", date.Format(time.DateOnly))
    var out envelope
    if err := c.base.GetJSON(ctx, path, q, &out); err != nil {
        return nil, &models.ProviderError{Provider: "institutional", Op: op, Err: err}
    }
    return out, nil
}

func (c *HTTPInstitutionalClient) GetLevels(ctx context.Context, symbol string, date time.Time) ([]models.RawRecord, error) {
    return c.fetch(ctx, "get_levels", "/darkpool/levels", symbol, date)
}

func (c *HTTPInstitutionalClient) GetPrints(ctx context.Context, symbol string, date time.Time) ([]models.RawRecord, error) {
    return c.fetch(ctx, "get_prints", "/darkpool/prints", symbol, date)
}

func (c *HTTPInstitutionalClient) GetShortInterest(ctx context.Context, symbol string, date time.Time) ([]models.RawRecord, error) {
    return c.fetch(ctx, "get_short_interest", "/shorts/interest", symbol, date)
}

func (c *HTTPInstitutionalClient) GetOptionsChain(ctx context.Context, symbol string, date time.Time) ([]models.RawRecord, error) {
    return c.fetch(ctx, "get_options_chain", "/options/chain", symbol, date)
}
