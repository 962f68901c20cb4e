package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// FinnhubProvider is the keyed fallback. Its quote endpoint carries no volume
// field, so quotes it produces rank last in the most-active view.
type FinnhubProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type finnhubResp struct {
	Current       float64 `json:"c"`
	PreviousClose float64 `json:"pc"`
}

func NewFinnhubProvider(apiKey string, timeout time.Duration) *FinnhubProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FinnhubProvider{
		baseURL: "https://finnhub.io/api/v1/quote",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *FinnhubProvider) Name() string { return "finnhub" }

func (p *FinnhubProvider) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if symbol == "" {
		return Quote{}, fmt.Errorf("symbol is empty")
	}
	if p.apiKey == "" {
		return Quote{}, fmt.Errorf("finnhub api key not configured")
	}

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return Quote{}, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("token", p.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("request finnhub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("finnhub status %d", resp.StatusCode)
	}

	var payload finnhubResp
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("decode finnhub: %w", err)
	}

	// Finnhub reports unknown symbols as an all-zero quote.
	if payload.Current <= 0 {
		return Quote{}, fmt.Errorf("%w: no last price for %s", ErrNoData, symbol)
	}
	if payload.PreviousClose <= 0 {
		return Quote{}, fmt.Errorf("%w: no previous close for %s", ErrNoData, symbol)
	}

	return newQuote(symbol, "", payload.Current, payload.PreviousClose, 0), nil
}

// WithBaseURL points the provider at an alternate endpoint, used by tests.
func (p *FinnhubProvider) WithBaseURL(base string) *FinnhubProvider {
	p.baseURL = base
	return p
}
