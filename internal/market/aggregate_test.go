package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	quotes map[string]Quote
	errs   map[string]error
	calls  []string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) GetQuote(_ context.Context, symbol string) (Quote, error) {
	s.calls = append(s.calls, symbol)
	if err, ok := s.errs[symbol]; ok {
		return Quote{}, err
	}
	q, ok := s.quotes[symbol]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	return q, nil
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func quoteOf(symbol string, price, prevClose float64, volume int64) Quote {
	return newQuote(symbol, "", price, prevClose, volume)
}

func TestAggregateWorkedExample(t *testing.T) {
	provider := &stubProvider{
		quotes: map[string]Quote{
			"A": quoteOf("A", 110, 100, 500),
			"B": quoteOf("B", 90, 100, 900),
		},
		errs: map[string]error{
			"C": errors.New("connection reset"),
		},
	}
	agg := NewAggregator(provider, AggregatorOptions{TopN: 10}, newTestLogger())

	sum := agg.Aggregate(context.Background(), []string{"A", "B", "C"})

	require.Len(t, sum.Gainers, 1)
	assert.Equal(t, "A", sum.Gainers[0].Symbol)
	assert.InDelta(t, 10.0, sum.Gainers[0].ChangePercent, 1e-9)

	require.Len(t, sum.Decliners, 1)
	assert.Equal(t, "B", sum.Decliners[0].Symbol)
	assert.InDelta(t, -10.0, sum.Decliners[0].ChangePercent, 1e-9)

	require.Len(t, sum.MostActive, 2)
	assert.Equal(t, "B", sum.MostActive[0].Symbol)
	assert.Equal(t, "A", sum.MostActive[1].Symbol)

	assert.Equal(t, []string{"C"}, sum.Failed)
	for _, view := range [][]Quote{sum.Quotes, sum.Gainers, sum.Decliners, sum.MostActive} {
		for _, q := range view {
			assert.NotEqual(t, "C", q.Symbol)
		}
	}
}

func TestAggregateOrderingAndCaps(t *testing.T) {
	provider := &stubProvider{quotes: map[string]Quote{}}
	symbols := make([]string, 0, 30)
	for i := 0; i < 15; i++ {
		up := fmt.Sprintf("UP%02d", i)
		down := fmt.Sprintf("DN%02d", i)
		provider.quotes[up] = quoteOf(up, 100+float64(i+1), 100, int64(1000*(i+1)))
		provider.quotes[down] = quoteOf(down, 100-float64(i+1), 100, int64(500*(i+1)))
		symbols = append(symbols, up, down)
	}
	agg := NewAggregator(provider, AggregatorOptions{TopN: 10}, newTestLogger())

	sum := agg.Aggregate(context.Background(), symbols)

	assert.Len(t, sum.Gainers, 10)
	assert.Len(t, sum.Decliners, 10)
	assert.Len(t, sum.MostActive, 10)

	for i := 1; i < len(sum.Gainers); i++ {
		assert.GreaterOrEqual(t, sum.Gainers[i-1].ChangePercent, sum.Gainers[i].ChangePercent)
	}
	for _, q := range sum.Gainers {
		assert.Greater(t, q.ChangePercent, 0.0)
	}
	for i := 1; i < len(sum.Decliners); i++ {
		assert.LessOrEqual(t, sum.Decliners[i-1].ChangePercent, sum.Decliners[i].ChangePercent)
	}
	for _, q := range sum.Decliners {
		assert.Less(t, q.ChangePercent, 0.0)
	}
	for i := 1; i < len(sum.MostActive); i++ {
		assert.GreaterOrEqual(t, sum.MostActive[i-1].Volume, sum.MostActive[i].Volume)
	}
}

func TestAggregateStableAmongEqualKeys(t *testing.T) {
	provider := &stubProvider{
		quotes: map[string]Quote{
			"X": quoteOf("X", 105, 100, 300),
			"Y": quoteOf("Y", 105, 100, 300),
			"Z": quoteOf("Z", 105, 100, 300),
		},
	}
	agg := NewAggregator(provider, AggregatorOptions{TopN: 10}, newTestLogger())

	sum := agg.Aggregate(context.Background(), []string{"X", "Y", "Z"})

	require.Len(t, sum.Gainers, 3)
	assert.Equal(t, "X", sum.Gainers[0].Symbol)
	assert.Equal(t, "Y", sum.Gainers[1].Symbol)
	assert.Equal(t, "Z", sum.Gainers[2].Symbol)
	require.Len(t, sum.MostActive, 3)
	assert.Equal(t, "X", sum.MostActive[0].Symbol)
}

func TestAggregateZeroChangeInNeitherMoversView(t *testing.T) {
	provider := &stubProvider{
		quotes: map[string]Quote{
			"FLAT": quoteOf("FLAT", 100, 100, 10),
		},
	}
	agg := NewAggregator(provider, AggregatorOptions{TopN: 10}, newTestLogger())

	sum := agg.Aggregate(context.Background(), []string{"FLAT"})

	assert.Empty(t, sum.Gainers)
	assert.Empty(t, sum.Decliners)
	require.Len(t, sum.MostActive, 1)
}

func TestAggregateNeverFails(t *testing.T) {
	tests := []struct {
		name    string
		symbols []string
	}{
		{name: "empty input", symbols: nil},
		{name: "all failing", symbols: []string{"BAD1", "BAD2"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubProvider{errs: map[string]error{
				"BAD1": errors.New("timeout"),
				"BAD2": fmt.Errorf("%w: delisted", ErrNoData),
			}}
			agg := NewAggregator(provider, AggregatorOptions{}, newTestLogger())

			sum := agg.Aggregate(context.Background(), tc.symbols)

			assert.Empty(t, sum.Quotes)
			assert.Empty(t, sum.Gainers)
			assert.Empty(t, sum.Decliners)
			assert.Empty(t, sum.MostActive)
		})
	}
}

func TestAggregateCancelledContextDropsRemainder(t *testing.T) {
	provider := &stubProvider{
		quotes: map[string]Quote{
			"A": quoteOf("A", 101, 100, 1),
			"B": quoteOf("B", 102, 100, 2),
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	agg := NewAggregator(provider, AggregatorOptions{TopN: 10, Pace: time.Minute}, newTestLogger())

	// Cancelled up front: the first fetch has no pacing delay and succeeds,
	// the delay before the second one observes the cancellation.
	cancel()

	sum := agg.Aggregate(ctx, []string{"A", "B"})

	require.Len(t, sum.Quotes, 1)
	assert.Equal(t, "A", sum.Quotes[0].Symbol)
	assert.Contains(t, sum.Failed, "B")
}

func TestDisplaySymbolStripsIndexPrefix(t *testing.T) {
	assert.Equal(t, "GSPC", DisplaySymbol("^GSPC"))
	assert.Equal(t, "AAPL", DisplaySymbol(" AAPL "))
}
