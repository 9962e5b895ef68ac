package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"marketwatch/internal/market"
	"marketwatch/internal/provider"
)

// usdRowRe finds the USD row of the Bank of China exchange-rate page
// and captures the first two rates after it (remittance buy and sell).
// The page layout drifts over time, hence the loose windows.
var usdRowRe = regexp.MustCompile(`美元[\s\S]{0,200}?(\d+\.\d+)[\s\S]{0,200}?(\d+\.\d+)`)

// BOCRates scrapes the Bank of China public rate search page for the
// USD/CNY buy and sell rates. One provider serves both FX fields; each
// call re-fetches the page.
type BOCRates struct {
	url    string
	client *http.Client
}

func NewBOCRates(pageURL string, timeout time.Duration) *BOCRates {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BOCRates{
		url:    pageURL,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *BOCRates) Name() string { return "boc_page" }

func (p *BOCRates) Fetch(ctx context.Context, field market.Field) (float64, error) {
	if field != market.FieldUSDBuy && field != market.FieldUSDSell {
		return 0, provider.NewNoDataError(p.Name(), field, "field not served by this source")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return 0, provider.NewNetworkError(p.Name(), field, "create request", err)
	}
	req.Header.Set("User-Agent", "market-watch/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, provider.NewNetworkError(p.Name(), field, "http request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, provider.NewNetworkError(p.Name(), field, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, provider.NewNetworkError(p.Name(), field, "read body", err)
	}

	m := usdRowRe.FindSubmatch(body)
	if m == nil {
		return 0, provider.NewParseError(p.Name(), field, "USD row not found in page", nil)
	}

	group := m[1]
	if field == market.FieldUSDSell {
		group = m[2]
	}
	v, err := strconv.ParseFloat(string(group), 64)
	if err != nil {
		return 0, provider.NewParseError(p.Name(), field, "parse rate", err)
	}
	return v, nil
}
