package site

import (
	"encoding/xml"
	"fmt"
	"strings"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// renderSitemap lists every HTML page written in this run. robots.txt and the
// feed itself are deliberately not sitemap entries.
func (b *Builder) renderSitemap(in BuildInput, pages []string) ([]byte, error) {
	set := sitemapURLSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	lastMod := in.Summary.GeneratedAt.Format("2006-01-02")
	for _, rel := range pages {
		if !strings.HasSuffix(rel, ".html") {
			continue
		}
		loc := b.pageURL(rel)
		if rel == "index.html" {
			loc = b.cfg.BaseURL + "/"
		}
		set.URLs = append(set.URLs, sitemapURL{Loc: loc, LastMod: lastMod})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("sitemap encode: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
