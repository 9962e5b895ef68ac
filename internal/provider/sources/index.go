package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"marketwatch/internal/market"
	"marketwatch/internal/provider"
)

// IndexAPI talks to a Yahoo-style chart endpoint for equity index
// levels. It backs two chain entries per field: Last reads the quote
// summary, History falls back to the final 1-minute bar, mirroring the
// fast-lookup-then-history degradation of the upstream API.
type IndexAPI struct {
	baseURL string
	client  *http.Client
	symbols map[market.Field]string
}

// NewIndexAPI builds a client. symbols maps each tracked field to the
// upstream ticker (e.g. ndx -> ^NDX).
func NewIndexAPI(baseURL string, timeout time.Duration, symbols map[market.Field]string) *IndexAPI {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	syms := make(map[market.Field]string, len(symbols))
	for f, s := range symbols {
		syms[f] = s
	}
	return &IndexAPI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		symbols: syms,
	}
}

// Last is the fast path: the quote summary's market price.
func (a *IndexAPI) Last() provider.Provider { return &indexLast{api: a} }

// History is the fallback: the close of the most recent 1-minute bar.
func (a *IndexAPI) History() provider.Provider { return &indexHistory{api: a} }

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

func (a *IndexAPI) fetchChart(ctx context.Context, name string, field market.Field) (*chartResponse, error) {
	symbol, ok := a.symbols[field]
	if !ok {
		return nil, provider.NewNoDataError(name, field, "no symbol mapped for field")
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=1d&interval=1m", a.baseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, provider.NewNetworkError(name, field, "create request", err)
	}
	req.Header.Set("User-Agent", "market-watch/1.0")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, provider.NewNetworkError(name, field, "http request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, provider.NewRateLimitError(name, field, "upstream rate limit")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, provider.NewNetworkError(name, field, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, provider.NewNetworkError(name, field, "read body", err)
	}
	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, provider.NewParseError(name, field, "decode chart response", err)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, provider.NewNoDataError(name, field, "empty chart result")
	}
	return &cr, nil
}

type indexLast struct {
	api *IndexAPI
}

func (p *indexLast) Name() string { return "index_last" }

func (p *indexLast) Fetch(ctx context.Context, field market.Field) (float64, error) {
	cr, err := p.api.fetchChart(ctx, p.Name(), field)
	if err != nil {
		return 0, err
	}
	price := cr.Chart.Result[0].Meta.RegularMarketPrice
	if price == nil {
		return 0, provider.NewNoDataError(p.Name(), field, "no market price in quote summary")
	}
	return *price, nil
}

type indexHistory struct {
	api *IndexAPI
}

func (p *indexHistory) Name() string { return "index_history" }

func (p *indexHistory) Fetch(ctx context.Context, field market.Field) (float64, error) {
	cr, err := p.api.fetchChart(ctx, p.Name(), field)
	if err != nil {
		return 0, err
	}
	quotes := cr.Chart.Result[0].Indicators.Quote
	if len(quotes) == 0 {
		return 0, provider.NewNoDataError(p.Name(), field, "no quote bars")
	}
	closes := quotes[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if closes[i] != nil {
			return *closes[i], nil
		}
	}
	return 0, provider.NewNoDataError(p.Name(), field, "no closed bars today")
}
