package analytics

import (
    "context"
    "fmt"
    "strings"

    "SignalForge/internal/domain/models"
    "SignalForge/internal/domain/repository"
    xhttp "SignalForge/pkg/http"
)

var _ repository.MacroContextProvider = (*HTTPMacroClient)(nil)

// HTTPMacroClient reads the externally computed market regime.
type HTTPMacroClient struct{ base *HTTPServiceBase }

func NewHTTPMacroClient(cfg ServiceConfig, opts ...xhttp.ClientOption) *HTTPMacroClient {
    return &HTTPMacroClient{base: NewHTTPServiceBase(cfg, opts...)}
}

type regimeResponse struct {
    Regime    string  `json:"regime"`
    Direction string  `json:"direction"`
    Bias      float64 `json:"bias"`
}

func (c *HTTPMacroClient) GetRegime(ctx context.Context) (models.MacroContext, error) {
    var rr regimeResponse
    if err := c.base.GetJSON(ctx, "/macro/regime", nil, &rr); err != nil {
        return models.MacroContext{}, &models.ProviderError{Provider: "macro", Op: "get_regime", Err: err}
    }
    name := rr.Regime
    if name == "" {
        name = rr.Direction
    }
    regime, err := parseRegime(name)
    if err != nil {
        return models.MacroContext{}, fmt.Errorf("get regime: %w", err)
    }
    bias := rr.Bias
    if bias > 1 {
        bias = 1
    } else if bias < -1 {
        bias = -1
    }
    return models.MacroContext{Regime: regime, Bias: bias, Source: "http"}, nil
}

func parseRegime(s string) (models.MarketRegime, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "uptrend", "up", "trending_up", "bull", "bullish":
        return models.RegimeUptrend, nil
    case "downtrend", "down", "trending_down", "bear", "bearish":
        return models.RegimeDowntrend, nil
    case "choppy", "chop", "ranging", "range", "sideways", "neutral":
        return models.RegimeChoppy, nil
    }
    return "", fmt.Errorf("unknown regime %q", s)
}
