// Package site renders aggregated market data into the static page tree:
// homepage, sector pages, SEO landing pages, a dated archive, an RSS feed
// and a sitemap.
package site

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"marketpages/internal/market"
)

type Config struct {
	BaseURL     string
	Title       string
	Description string
	OutputDir   string
	Sectors     map[string][]string
	Landing     []LandingPage
}

type LandingPage struct {
	Slug        string
	Title       string
	Description string
}

// Brief is an optional editorial paragraph shown on the homepage.
type Brief struct {
	Headline string
	Body     string
}

type BuildInput struct {
	Date         string
	Summary      market.Summary
	Brief        *Brief
	ArchiveDates []string
}

type BuildResult struct {
	// Pages holds the written files relative to the output dir.
	Pages []string
}

type Builder struct {
	cfg    Config
	logger *logrus.Logger
}

func NewBuilder(cfg Config, logger *logrus.Logger) *Builder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Builder{cfg: cfg, logger: logger}
}

// Build writes the whole page tree for one generation run. Rendering is all
// local string work; the only failure modes are template and filesystem errors.
func (b *Builder) Build(in BuildInput) (BuildResult, error) {
	var res BuildResult
	start := time.Now()

	if in.Date == "" {
		in.Date = in.Summary.GeneratedAt.Format("2006-01-02")
	}

	pages := []struct {
		rel    string
		render func() ([]byte, error)
	}{
		{rel: "index.html", render: func() ([]byte, error) { return b.renderHome(in) }},
		{rel: filepath.Join("archive", in.Date+".html"), render: func() ([]byte, error) { return b.renderArchiveDay(in) }},
		{rel: filepath.Join("archive", "index.html"), render: func() ([]byte, error) { return b.renderArchiveIndex(in) }},
		{rel: "rss.xml", render: func() ([]byte, error) { return b.renderFeed(in) }},
		{rel: "robots.txt", render: func() ([]byte, error) { return b.renderRobots() }},
	}
	for _, sector := range b.sectorNames() {
		sector := sector
		pages = append(pages, struct {
			rel    string
			render func() ([]byte, error)
		}{
			rel:    filepath.Join("sectors", Slugify(sector)+".html"),
			render: func() ([]byte, error) { return b.renderSector(in, sector) },
		})
	}
	for _, lp := range b.cfg.Landing {
		lp := lp
		pages = append(pages, struct {
			rel    string
			render func() ([]byte, error)
		}{
			rel:    lp.Slug + ".html",
			render: func() ([]byte, error) { return b.renderLanding(in, lp) },
		})
	}

	for _, p := range pages {
		data, err := p.render()
		if err != nil {
			return res, fmt.Errorf("render %s: %w", p.rel, err)
		}
		if err := b.writeFile(p.rel, data); err != nil {
			return res, err
		}
		res.Pages = append(res.Pages, p.rel)
	}

	// The sitemap must cover every page of this run, so it renders last.
	sitemap, err := b.renderSitemap(in, res.Pages)
	if err != nil {
		return res, fmt.Errorf("render sitemap.xml: %w", err)
	}
	if err := b.writeFile("sitemap.xml", sitemap); err != nil {
		return res, err
	}
	res.Pages = append(res.Pages, "sitemap.xml")

	b.logger.WithFields(logrus.Fields{
		"pages":       len(res.Pages),
		"output_dir":  b.cfg.OutputDir,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("site build complete")
	return res, nil
}

func (b *Builder) writeFile(rel string, data []byte) error {
	path := filepath.Join(b.cfg.OutputDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", rel, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

func (b *Builder) sectorNames() []string {
	names := make([]string, 0, len(b.cfg.Sectors))
	for name := range b.cfg.Sectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// sectorQuotes filters the run's quotes down to one sector, keeping the
// aggregate's change-ranked order.
func (b *Builder) sectorQuotes(in BuildInput, sector string) []market.Quote {
	members := make(map[string]bool, len(b.cfg.Sectors[sector]))
	for _, sym := range b.cfg.Sectors[sector] {
		members[market.DisplaySymbol(sym)] = true
	}
	var out []market.Quote
	for _, q := range in.Summary.Quotes {
		if members[q.Symbol] {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangePercent > out[j].ChangePercent })
	return out
}

func (b *Builder) pageURL(rel string) string {
	return b.cfg.BaseURL + "/" + filepath.ToSlash(rel)
}

// Slugify lowercases and dash-joins a name for use in page paths.
func Slugify(name string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
