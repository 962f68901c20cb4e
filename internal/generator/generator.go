// Package generator wires one generation run: fetch and aggregate quotes,
// render the page tree, archive the run, then commit and ping.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"marketpages/internal/brief"
	"marketpages/internal/config"
	"marketpages/internal/market"
	"marketpages/internal/publish"
	"marketpages/internal/site"
	"marketpages/internal/store"
)

type Generator struct {
	cfg        *config.Config
	aggregator *market.Aggregator
	builder    *site.Builder
	st         *store.Store
	briefAgent *brief.Agent
	committer  *publish.Committer
	pinger     *publish.Pinger
	logger     *logrus.Logger
}

// BuildProvider assembles the quote provider chain from config: Yahoo first,
// Finnhub as keyed fallback when configured.
func BuildProvider(cfg *config.Config) market.QuoteProvider {
	timeout := time.Duration(cfg.Market.RequestTimeoutMs) * time.Millisecond
	providers := []market.QuoteProvider{market.NewYahooProvider(timeout)}
	if cfg.Market.FinnhubAPIKey != "" {
		providers = append(providers, market.NewFinnhubProvider(cfg.Market.FinnhubAPIKey, timeout))
	}
	return market.NewMultiProvider(providers...)
}

func New(cfg *config.Config, provider market.QuoteProvider, st *store.Store, logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	aggregator := market.NewAggregator(provider, market.AggregatorOptions{
		TopN: cfg.Market.TopN,
		Pace: time.Duration(cfg.Market.RequestPacingMs) * time.Millisecond,
	}, logger)

	landing := make([]site.LandingPage, 0, len(cfg.Landing))
	for _, lp := range cfg.Landing {
		landing = append(landing, site.LandingPage{Slug: lp.Slug, Title: lp.Title, Description: lp.Description})
	}
	builder := site.NewBuilder(site.Config{
		BaseURL:     cfg.Site.BaseURL,
		Title:       cfg.Site.Title,
		Description: cfg.Site.Description,
		OutputDir:   cfg.Site.OutputDir,
		Sectors:     cfg.Market.Sectors,
		Landing:     landing,
	}, logger)

	g := &Generator{
		cfg:        cfg,
		aggregator: aggregator,
		builder:    builder,
		st:         st,
		briefAgent: brief.New(brief.Config(cfg.Brief), logger),
		logger:     logger,
	}
	if cfg.Publish.Git.Enabled {
		g.committer = publish.NewCommitter(cfg.Site.OutputDir, cfg.Publish.Git.Author, cfg.Publish.Git.Email, logger)
	}
	if cfg.Publish.Ping.Enabled {
		g.pinger = publish.NewPinger(cfg.Publish.Ping.Endpoints,
			time.Duration(cfg.Publish.Ping.TimeoutMs)*time.Millisecond, logger)
	}
	return g
}

// Run performs one full generation pass. Per-symbol fetch failures never fail
// the run; config, store and render errors do.
func (g *Generator) Run(ctx context.Context) (store.Run, error) {
	start := time.Now()
	date := start.Format("2006-01-02")

	summary := g.aggregator.Aggregate(ctx, g.cfg.Market.Symbols)
	g.logger.WithFields(logrus.Fields{
		"date":    date,
		"fetched": len(summary.Quotes),
		"failed":  len(summary.Failed),
	}).Info("quotes aggregated")

	var pageBrief *site.Brief
	if b, err := g.briefAgent.Generate(ctx, brief.Input{Date: date, Summary: summary}); err == nil || b.Body != "" {
		pageBrief = &site.Brief{Headline: b.Headline, Body: b.Body}
	}

	var archiveDates []string
	if g.st != nil {
		dates, err := g.st.ListDates(0)
		if err != nil {
			return store.Run{}, fmt.Errorf("list archive dates: %w", err)
		}
		archiveDates = dates
	}

	res, err := g.builder.Build(site.BuildInput{
		Date:         date,
		Summary:      summary,
		Brief:        pageBrief,
		ArchiveDates: archiveDates,
	})
	if err != nil {
		return store.Run{}, fmt.Errorf("build site: %w", err)
	}

	run := store.Run{
		Date:          date,
		TS:            start.Unix(),
		DurationMs:    time.Since(start).Milliseconds(),
		PagesWritten:  len(res.Pages),
		SymbolsOK:     len(summary.Quotes),
		SymbolsFailed: len(summary.Failed),
	}
	if g.st != nil {
		runID, err := g.st.InsertRun(run)
		if err != nil {
			return store.Run{}, fmt.Errorf("archive run: %w", err)
		}
		run.ID = runID
		snapshots := make([]store.Snapshot, 0, len(summary.Quotes))
		for _, q := range summary.Quotes {
			snapshots = append(snapshots, store.Snapshot{
				RunID:         runID,
				Date:          date,
				TS:            q.FetchedAt.Unix(),
				Symbol:        q.Symbol,
				Name:          q.Name,
				Price:         q.Price,
				PreviousClose: q.PreviousClose,
				ChangePct:     q.ChangePercent,
				Volume:        q.Volume,
			})
		}
		if err := g.st.InsertSnapshots(snapshots); err != nil {
			return store.Run{}, fmt.Errorf("archive snapshots: %w", err)
		}
	}

	// Post-build side effects are best effort.
	if g.committer != nil {
		if _, err := g.committer.CommitIfChanged(time.Now()); err != nil {
			g.logger.WithError(err).Warn("auto commit failed")
		}
	}
	if g.pinger != nil {
		g.pinger.PingAll(ctx, g.cfg.Site.BaseURL+"/sitemap.xml")
	}

	g.logger.WithFields(logrus.Fields{
		"pages":       run.PagesWritten,
		"duration_ms": run.DurationMs,
	}).Info("generation run complete")
	return run, nil
}
