package analytics

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "net/url"
    "time"

    xhttp "SignalForge/pkg/http"
)

// ServiceConfig points an HTTP client at one upstream service.
type ServiceConfig struct {
    BaseURL  string        `yaml:"base_url"`
    APIKey   string        `yaml:"api_key"`
    Timeout  time.Duration `yaml:"timeout" default:"3s"`
    Attempts int           `yaml:"attempts" default:"3"`
}

// HTTPServiceBase centralizes client construction and JSON request handling
// for the upstream data services.
type HTTPServiceBase struct {
    baseURL  string
    apiKey   string
    attempts int
    backoff  time.Duration
    client   *xhttp.Client
}

func NewHTTPServiceBase(cfg ServiceConfig, opts ...xhttp.ClientOption) *HTTPServiceBase {
    timeout := cfg.Timeout
    if timeout <= 0 {
        timeout = 3 * time.Second
    }
    attempts := cfg.Attempts
    if attempts <= 0 {
        attempts = 1
    }
    opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
    return &HTTPServiceBase{
        baseURL:  cfg.BaseURL,
        apiKey:   cfg.APIKey,
        attempts: attempts,
        backoff:  50 * time.Millisecond,
        client:   xhttp.NewClient(opts...),
    }
}

func (b *HTTPServiceBase) headers() map[string]string {
    if b.apiKey == "" {
        return nil
    }
    return map[string]string{"X-API-Key": b.apiKey}
}

// GetJSON fetches path under baseURL and decodes the JSON body into dest, retrying transient failures.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
    if b.client == nil || b.baseURL == "" {
        return fmt.Errorf("http service client not initialized")
    }
    req := &xhttp.Request{
        Method:  http.MethodGet,
        URL:     b.baseURL + path,
        Query:   query,
        Headers: b.headers(),
    }
    var err error
    for i := 1; i <= b.attempts; i++ {
        err = b.client.Do(ctx, req, dest)
        if err == nil || !retryable(err) || i == b.attempts {
            break
        }
        select {
        case <-time.After(time.Duration(i) * b.backoff):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    if err != nil {
        return fmt.Errorf("GET %s: %w", req.URL, err)
    }
    return nil
}

func retryable(err error) bool {
    var se *xhttp.StatusError
    if errors.As(err, &se) {
        return se.Temporary()
    }
    return !errors.Is(err, context.Canceled)
}
