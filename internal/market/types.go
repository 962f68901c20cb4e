package market

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoData means the quote service answered but had no usable quote for the
// symbol (missing last price, zero reference price, unknown ticker). Transport
// and decode failures are returned as ordinary wrapped errors.
var ErrNoData = errors.New("no quote data")

type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name,omitempty"`
	Price         float64   `json:"price"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	FetchedAt     time.Time `json:"fetched_at"`
}

type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
	Name() string
}

// DisplaySymbol strips index prefix markers ("^GSPC" -> "GSPC") for slugs and
// rendered pages; the raw symbol is still what gets sent to the provider.
func DisplaySymbol(symbol string) string {
	return strings.TrimLeft(strings.TrimSpace(symbol), "^")
}

// newQuote derives the change fields from the reference price. Callers must
// have checked previousClose > 0 already; a zero reference is never stored.
func newQuote(symbol, name string, price, previousClose float64, volume int64) Quote {
	change := price - previousClose
	return Quote{
		Symbol:        DisplaySymbol(symbol),
		Name:          name,
		Price:         price,
		PreviousClose: previousClose,
		Change:        change,
		ChangePercent: change / previousClose * 100,
		Volume:        volume,
		FetchedAt:     time.Now(),
	}
}
