package market

import (
	"context"
	"errors"
	"fmt"
)

// MultiProvider tries providers in order and returns the first usable quote.
// A definitive ErrNoData from every provider stays ErrNoData so callers can
// tell "the symbol has no quote" from "the services were unreachable".
type MultiProvider struct {
	providers []QuoteProvider
}

func NewMultiProvider(providers ...QuoteProvider) *MultiProvider {
	return &MultiProvider{providers: providers}
}

func (m *MultiProvider) Name() string { return "multi" }

func (m *MultiProvider) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if len(m.providers) == 0 {
		return Quote{}, fmt.Errorf("no quote providers configured")
	}
	var lastErr error
	allNoData := true
	for _, p := range m.providers {
		q, err := p.GetQuote(ctx, symbol)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, ErrNoData) {
			allNoData = false
		}
		lastErr = err
	}
	if allNoData && !errors.Is(lastErr, ErrNoData) {
		lastErr = fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	return Quote{}, lastErr
}
