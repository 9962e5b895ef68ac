package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"marketwatch/internal/market"
	"marketwatch/internal/provider"
)

// MidRate is the FX fallback: an exchange-rate API mid rate with a
// synthetic bank spread applied, so the buy/sell fields stay populated
// when the bank page is unreachable.
type MidRate struct {
	url    string
	spread float64 // fractional, e.g. 0.003
	client *http.Client
}

// NewMidRate builds the fallback source. spread <= 0 defaults to 0.3%.
func NewMidRate(apiURL string, spread float64, timeout time.Duration) *MidRate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if spread <= 0 {
		spread = 0.003
	}
	return &MidRate{
		url:    apiURL,
		spread: spread,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *MidRate) Name() string { return "midrate_api" }

type midRateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

func (p *MidRate) Fetch(ctx context.Context, field market.Field) (float64, error) {
	if field != market.FieldUSDBuy && field != market.FieldUSDSell {
		return 0, provider.NewNoDataError(p.Name(), field, "field not served by this source")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, provider.NewNetworkError(p.Name(), field, "create request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, provider.NewNetworkError(p.Name(), field, "http request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, provider.NewNetworkError(p.Name(), field, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, provider.NewNetworkError(p.Name(), field, "read body", err)
	}
	var mr midRateResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return 0, provider.NewParseError(p.Name(), field, "decode rate response", err)
	}
	mid, ok := mr.Rates["CNY"]
	if !ok || mid <= 0 {
		return 0, provider.NewNoDataError(p.Name(), field, "no CNY rate in response")
	}

	v := mid * (1 - p.spread)
	if field == market.FieldUSDSell {
		v = mid * (1 + p.spread)
	}
	return round6(v), nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
