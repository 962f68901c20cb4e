package site

import (
	"fmt"

	"github.com/gorilla/feeds"

	"marketpages/internal/market"
)

// renderFeed builds the RSS feed: one item per top gainer and decliner for
// the current session.
func (b *Builder) renderFeed(in BuildInput) ([]byte, error) {
	feed := &feeds.Feed{
		Title:       b.cfg.Title,
		Link:        &feeds.Link{Href: b.cfg.BaseURL + "/"},
		Description: b.cfg.Description,
		Created:     in.Summary.GeneratedAt,
	}

	add := func(kind string, q market.Quote) {
		title := fmt.Sprintf("%s %s %+.2f%% to %.2f", q.Symbol, kind, q.ChangePercent, q.Price)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:      fmt.Sprintf("%s/%s/%s/%s", b.cfg.BaseURL, in.Date, kind, q.Symbol),
			Title:   title,
			Link:    &feeds.Link{Href: b.pageURL("archive/" + in.Date + ".html")},
			Created: in.Summary.GeneratedAt,
			Description: fmt.Sprintf(
				"%s closed the reference session at %.2f and last traded at %.2f (%+.2f, %+.2f%%) on volume %d.",
				q.Symbol, q.PreviousClose, q.Price, q.Change, q.ChangePercent, q.Volume,
			),
		})
	}
	for _, q := range in.Summary.Gainers {
		add("up", q)
	}
	for _, q := range in.Summary.Decliners {
		add("down", q)
	}

	out, err := feed.ToRss()
	if err != nil {
		return nil, fmt.Errorf("rss encode: %w", err)
	}
	return []byte(out), nil
}
