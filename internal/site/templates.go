package site

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dustin/go-humanize"

	"marketpages/internal/market"
)

var pageFuncs = template.FuncMap{
	"price": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
	"vol":   func(v int64) string { return humanize.Comma(v) },
	"cls": func(v float64) string {
		if v < 0 {
			return "down"
		}
		return "up"
	},
}

var pageTmpl = template.Must(template.New("page").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.PageTitle}} | {{.SiteTitle}}</title>
<meta name="description" content="{{.Description}}">
<link rel="canonical" href="{{.Canonical}}">
<link rel="alternate" type="application/rss+xml" title="{{.SiteTitle}}" href="{{.BaseURL}}/rss.xml">
<style>
body{font-family:system-ui,sans-serif;max-width:960px;margin:0 auto;padding:1rem;color:#1a1a1a}
table{border-collapse:collapse;width:100%;margin:1rem 0}
th,td{text-align:left;padding:.4rem .6rem;border-bottom:1px solid #ddd}
.up{color:#0a7f3f}.down{color:#b02a2a}
nav a{margin-right:1rem}
footer{margin-top:2rem;font-size:.8rem;color:#666}
</style>
</head>
<body>
<header>
<h1><a href="{{.BaseURL}}/">{{.SiteTitle}}</a></h1>
<nav>
{{- range .Nav}}
<a href="{{.URL}}">{{.Label}}</a>
{{- end}}
</nav>
</header>
<main>
<h2>{{.PageTitle}}</h2>
{{- if .Intro}}
<p>{{.Intro}}</p>
{{- end}}
{{- if .Brief}}
<section>
<h3>{{.Brief.Headline}}</h3>
<p>{{.Brief.Body}}</p>
</section>
{{- end}}
{{- range .Tables}}
<section>
<h3>{{.Title}}</h3>
{{- if .Quotes}}
<table>
<thead><tr><th>Symbol</th><th>Name</th><th>Price</th><th>Change</th><th>Change %</th><th>Volume</th></tr></thead>
<tbody>
{{- range .Quotes}}
<tr>
<td>{{.Symbol}}</td>
<td>{{.Name}}</td>
<td>{{price .Price}}</td>
<td class="{{cls .Change}}">{{price .Change}}</td>
<td class="{{cls .ChangePercent}}">{{pct .ChangePercent}}</td>
<td>{{vol .Volume}}</td>
</tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p>No data for this session.</p>
{{- end}}
</section>
{{- end}}
{{- if .Links}}
<section>
<h3>{{.LinksTitle}}</h3>
<ul>
{{- range .Links}}
<li><a href="{{.URL}}">{{.Label}}</a></li>
{{- end}}
</ul>
</section>
{{- end}}
</main>
<footer>
<p>Generated {{.Generated}}. Data is delayed and informational only, not investment advice.</p>
</footer>
</body>
</html>
`))

type pageLink struct {
	Label string
	URL   string
}

type pageTable struct {
	Title  string
	Quotes []market.Quote
}

type pageData struct {
	SiteTitle   string
	PageTitle   string
	Description string
	Canonical   string
	BaseURL     string
	Generated   string
	Intro       string
	Brief       *Brief
	Nav         []pageLink
	Tables      []pageTable
	Links       []pageLink
	LinksTitle  string
}

func (b *Builder) basePage(in BuildInput, rel, title, description string) pageData {
	nav := []pageLink{{Label: "Home", URL: b.cfg.BaseURL + "/"}}
	for _, sector := range b.sectorNames() {
		nav = append(nav, pageLink{Label: sector, URL: b.pageURL("sectors/" + Slugify(sector) + ".html")})
	}
	nav = append(nav, pageLink{Label: "Archive", URL: b.pageURL("archive/index.html")})
	return pageData{
		SiteTitle:   b.cfg.Title,
		PageTitle:   title,
		Description: description,
		Canonical:   b.pageURL(rel),
		BaseURL:     b.cfg.BaseURL,
		Generated:   in.Summary.GeneratedAt.Format("2006-01-02 15:04 MST"),
		Nav:         nav,
	}
}

func renderPage(data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func summaryTables(sum market.Summary) []pageTable {
	return []pageTable{
		{Title: "Top Gainers", Quotes: sum.Gainers},
		{Title: "Top Decliners", Quotes: sum.Decliners},
		{Title: "Most Active", Quotes: sum.MostActive},
	}
}

func (b *Builder) renderHome(in BuildInput) ([]byte, error) {
	data := b.basePage(in, "index.html", "Market Movers "+in.Date, b.cfg.Description)
	data.Canonical = b.cfg.BaseURL + "/"
	data.Brief = in.Brief
	data.Tables = summaryTables(in.Summary)
	if len(b.cfg.Landing) > 0 {
		data.LinksTitle = "More"
		for _, lp := range b.cfg.Landing {
			data.Links = append(data.Links, pageLink{Label: lp.Title, URL: b.pageURL(lp.Slug + ".html")})
		}
	}
	return renderPage(data)
}

func (b *Builder) renderSector(in BuildInput, sector string) ([]byte, error) {
	rel := "sectors/" + Slugify(sector) + ".html"
	desc := fmt.Sprintf("%s stocks ranked by daily change on %s.", sector, in.Date)
	data := b.basePage(in, rel, sector+" Stocks", desc)
	data.Tables = []pageTable{{Title: sector, Quotes: b.sectorQuotes(in, sector)}}
	return renderPage(data)
}

func (b *Builder) renderLanding(in BuildInput, lp LandingPage) ([]byte, error) {
	data := b.basePage(in, lp.Slug+".html", lp.Title, lp.Description)
	data.Intro = lp.Description
	data.Tables = summaryTables(in.Summary)
	return renderPage(data)
}

func (b *Builder) renderArchiveDay(in BuildInput) ([]byte, error) {
	rel := "archive/" + in.Date + ".html"
	desc := fmt.Sprintf("Market movers for %s: gainers, decliners and most active stocks.", in.Date)
	data := b.basePage(in, rel, "Market Movers "+in.Date, desc)
	data.Tables = summaryTables(in.Summary)
	return renderPage(data)
}

func (b *Builder) renderArchiveIndex(in BuildInput) ([]byte, error) {
	data := b.basePage(in, "archive/index.html", "Archive", "Daily market mover archive.")
	data.LinksTitle = "Past sessions"
	seen := map[string]bool{}
	for _, d := range append([]string{in.Date}, in.ArchiveDates...) {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		data.Links = append(data.Links, pageLink{Label: d, URL: b.pageURL("archive/" + d + ".html")})
	}
	return renderPage(data)
}

func (b *Builder) renderRobots() ([]byte, error) {
	return []byte(fmt.Sprintf("User-agent: *\nAllow: /\n\nSitemap: %s/sitemap.xml\n", b.cfg.BaseURL)), nil
}
