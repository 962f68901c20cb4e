package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

type YahooProvider struct {
	baseURL string
	client  *http.Client
}

type yahooResp struct {
	QuoteSummary struct {
		Result []yahooResult `json:"result"`
		Error  *yahooError   `json:"error"`
	} `json:"quoteSummary"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooResult struct {
	Price *yahooPrice `json:"price"`
}

type yahooPrice struct {
	Symbol                     string      `json:"symbol"`
	ShortName                  string      `json:"shortName"`
	RegularMarketPrice         *yahooValue `json:"regularMarketPrice"`
	RegularMarketPreviousClose *yahooValue `json:"regularMarketPreviousClose"`
	RegularMarketVolume        *yahooValue `json:"regularMarketVolume"`
}

type yahooValue struct {
	Raw float64 `json:"raw"`
	Fmt string  `json:"fmt"`
}

func NewYahooProvider(timeout time.Duration) *YahooProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooProvider{
		baseURL: "https://query1.finance.yahoo.com/v10/finance/quoteSummary/",
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if symbol == "" {
		return Quote{}, fmt.Errorf("symbol is empty")
	}

	u, err := url.Parse(p.baseURL + url.PathEscape(symbol))
	if err != nil {
		return Quote{}, fmt.Errorf("invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("modules", "price")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; marketpages/1.0)")

	resp, err := p.client.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("request yahoo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Quote{}, fmt.Errorf("%w: symbol %s unknown", ErrNoData, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("yahoo status %d", resp.StatusCode)
	}

	var payload yahooResp
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("decode yahoo: %w", err)
	}
	if payload.QuoteSummary.Error != nil {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoData, payload.QuoteSummary.Error.Description)
	}
	if len(payload.QuoteSummary.Result) == 0 || payload.QuoteSummary.Result[0].Price == nil {
		return Quote{}, fmt.Errorf("%w: empty result for %s", ErrNoData, symbol)
	}

	price := payload.QuoteSummary.Result[0].Price
	if price.RegularMarketPrice == nil || price.RegularMarketPrice.Raw <= 0 {
		return Quote{}, fmt.Errorf("%w: no last price for %s", ErrNoData, symbol)
	}
	if price.RegularMarketPreviousClose == nil || price.RegularMarketPreviousClose.Raw <= 0 {
		return Quote{}, fmt.Errorf("%w: no previous close for %s", ErrNoData, symbol)
	}

	var volume int64
	if price.RegularMarketVolume != nil && price.RegularMarketVolume.Raw > 0 {
		volume = int64(price.RegularMarketVolume.Raw)
	}

	return newQuote(
		symbol,
		price.ShortName,
		price.RegularMarketPrice.Raw,
		price.RegularMarketPreviousClose.Raw,
		volume,
	), nil
}

// WithBaseURL points the provider at an alternate endpoint, used by tests.
func (p *YahooProvider) WithBaseURL(base string) *YahooProvider {
	p.baseURL = base
	return p
}
