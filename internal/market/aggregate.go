package market

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

type AggregatorOptions struct {
	// TopN caps the gainers, decliners and most-active views.
	TopN int
	// Pace is the flat delay between consecutive quote requests. It is rate
	// limit avoidance, not a retry or backoff policy.
	Pace time.Duration
}

type Aggregator struct {
	provider QuoteProvider
	opts     AggregatorOptions
	logger   *logrus.Logger
}

// Summary is the result of one aggregation pass. Quotes holds every symbol
// that fetched successfully, in input order; the three views are derived from
// it. Failed lists the symbols that were dropped.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at"`
	Quotes      []Quote   `json:"quotes"`
	Gainers     []Quote   `json:"gainers"`
	Decliners   []Quote   `json:"decliners"`
	MostActive  []Quote   `json:"most_active"`
	Failed      []string  `json:"failed,omitempty"`
}

func NewAggregator(provider QuoteProvider, opts AggregatorOptions, logger *logrus.Logger) *Aggregator {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	if opts.Pace < 0 {
		opts.Pace = 0
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Aggregator{provider: provider, opts: opts, logger: logger}
}

// Aggregate fetches every symbol sequentially and partitions the results. It
// never fails: a symbol that cannot be fetched is dropped from all views.
func (a *Aggregator) Aggregate(ctx context.Context, symbols []string) Summary {
	sum := Summary{GeneratedAt: time.Now()}

	for i, symbol := range symbols {
		if i > 0 && a.opts.Pace > 0 {
			select {
			case <-time.After(a.opts.Pace):
			case <-ctx.Done():
				a.logger.WithField("remaining", len(symbols)-i).Warn("aggregation cancelled")
				sum.Failed = append(sum.Failed, symbols[i:]...)
				return a.finish(sum)
			}
		}

		q, err := a.provider.GetQuote(ctx, symbol)
		if err != nil {
			if errors.Is(err, ErrNoData) {
				a.logger.WithField("symbol", symbol).Debug("no quote data, skipping")
			} else {
				a.logger.WithField("symbol", symbol).WithError(err).Warn("quote fetch failed, skipping")
			}
			sum.Failed = append(sum.Failed, symbol)
			continue
		}
		sum.Quotes = append(sum.Quotes, q)
	}

	return a.finish(sum)
}

func (a *Aggregator) finish(sum Summary) Summary {
	sum.Gainers = topBy(sum.Quotes, a.opts.TopN,
		func(q Quote) bool { return q.ChangePercent > 0 },
		func(x, y Quote) bool { return x.ChangePercent > y.ChangePercent })
	sum.Decliners = topBy(sum.Quotes, a.opts.TopN,
		func(q Quote) bool { return q.ChangePercent < 0 },
		func(x, y Quote) bool { return x.ChangePercent < y.ChangePercent })
	sum.MostActive = topBy(sum.Quotes, a.opts.TopN,
		func(q Quote) bool { return true },
		func(x, y Quote) bool { return x.Volume > y.Volume })
	return sum
}

// topBy filters, stable-sorts and truncates without mutating the input slice.
// The stable sort keeps fetch order among equal keys.
func topBy(quotes []Quote, n int, keep func(Quote) bool, less func(x, y Quote) bool) []Quote {
	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}
