package site

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpages/internal/market"
)

func testQuote(symbol string, price, prevClose float64, volume int64) market.Quote {
	change := price - prevClose
	return market.Quote{
		Symbol:        symbol,
		Name:          symbol + " Inc.",
		Price:         price,
		PreviousClose: prevClose,
		Change:        change,
		ChangePercent: change / prevClose * 100,
		Volume:        volume,
		FetchedAt:     time.Now(),
	}
}

func testSummary() market.Summary {
	up := testQuote("AAPL", 231.5, 225, 48200000)
	down := testQuote("TSLA", 310, 322, 91000000)
	return market.Summary{
		GeneratedAt: time.Date(2026, 8, 21, 8, 30, 0, 0, time.UTC),
		Quotes:      []market.Quote{up, down},
		Gainers:     []market.Quote{up},
		Decliners:   []market.Quote{down},
		MostActive:  []market.Quote{down, up},
	}
}

func testBuilder(t *testing.T) (*Builder, string) {
	t.Helper()
	dir := t.TempDir()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	b := NewBuilder(Config{
		BaseURL:     "https://movers.example.org/",
		Title:       "Market Movers",
		Description: "Daily market movers.",
		OutputDir:   dir,
		Sectors:     map[string][]string{"Technology": {"AAPL"}, "Consumer Cyclical": {"TSLA"}},
		Landing: []LandingPage{
			{Slug: "pre-market-gainers", Title: "Pre-Market Gainers", Description: "Stocks moving up early."},
		},
	}, logger)
	return b, dir
}

func readPage(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, rel))
	require.NoError(t, err, rel)
	return string(data)
}

func TestBuildWritesFullTree(t *testing.T) {
	b, dir := testBuilder(t)

	res, err := b.Build(BuildInput{
		Date:         "2026-08-21",
		Summary:      testSummary(),
		Brief:        &Brief{Headline: "Tech leads the morning", Body: "Large caps opened firm."},
		ArchiveDates: []string{"2026-08-20", "2026-08-19"},
	})
	require.NoError(t, err)

	expected := []string{
		"index.html",
		"archive/2026-08-21.html",
		"archive/index.html",
		"rss.xml",
		"robots.txt",
		"sectors/consumer-cyclical.html",
		"sectors/technology.html",
		"pre-market-gainers.html",
		"sitemap.xml",
	}
	assert.ElementsMatch(t, expected, res.Pages)
	for _, rel := range expected {
		_, err := os.Stat(filepath.Join(dir, rel))
		assert.NoError(t, err, rel)
	}
}

func TestHomepageContent(t *testing.T) {
	b, dir := testBuilder(t)
	_, err := b.Build(BuildInput{
		Date:    "2026-08-21",
		Summary: testSummary(),
		Brief:   &Brief{Headline: "Tech leads", Body: "Large caps opened firm."},
	})
	require.NoError(t, err)

	home := readPage(t, dir, "index.html")
	assert.Contains(t, home, "Top Gainers")
	assert.Contains(t, home, "Top Decliners")
	assert.Contains(t, home, "Most Active")
	assert.Contains(t, home, "AAPL")
	assert.Contains(t, home, "+2.89%")
	assert.Contains(t, home, "-3.73%")
	assert.Contains(t, home, "48,200,000")
	assert.Contains(t, home, "Tech leads")
	assert.Contains(t, home, `href="https://movers.example.org/rss.xml"`)
}

func TestSectorPageFiltersMembers(t *testing.T) {
	b, dir := testBuilder(t)
	_, err := b.Build(BuildInput{Date: "2026-08-21", Summary: testSummary()})
	require.NoError(t, err)

	tech := readPage(t, dir, "sectors/technology.html")
	assert.Contains(t, tech, "AAPL")
	assert.NotContains(t, tech, "TSLA")
}

func TestArchiveIndexListsDatesOnce(t *testing.T) {
	b, dir := testBuilder(t)
	_, err := b.Build(BuildInput{
		Date:         "2026-08-21",
		Summary:      testSummary(),
		ArchiveDates: []string{"2026-08-21", "2026-08-20"},
	})
	require.NoError(t, err)

	index := readPage(t, dir, "archive/index.html")
	assert.Equal(t, 1, strings.Count(index, "archive/2026-08-21.html"))
	assert.Contains(t, index, "archive/2026-08-20.html")
}

func TestFeedHasGainerAndDeclinerItems(t *testing.T) {
	b, dir := testBuilder(t)
	_, err := b.Build(BuildInput{Date: "2026-08-21", Summary: testSummary()})
	require.NoError(t, err)

	rss := readPage(t, dir, "rss.xml")
	assert.Contains(t, rss, "<rss")
	assert.Contains(t, rss, "AAPL up +2.89%")
	assert.Contains(t, rss, "TSLA down -3.73%")
}

func TestSitemapCoversHTMLPagesOnly(t *testing.T) {
	b, dir := testBuilder(t)
	_, err := b.Build(BuildInput{Date: "2026-08-21", Summary: testSummary()})
	require.NoError(t, err)

	var set struct {
		URLs []struct {
			Loc string `xml:"loc"`
		} `xml:"url"`
	}
	data, err := os.ReadFile(filepath.Join(dir, "sitemap.xml"))
	require.NoError(t, err)
	require.NoError(t, xml.Unmarshal(data, &set))

	locs := make([]string, 0, len(set.URLs))
	for _, u := range set.URLs {
		locs = append(locs, u.Loc)
	}
	assert.Contains(t, locs, "https://movers.example.org/")
	assert.Contains(t, locs, "https://movers.example.org/archive/2026-08-21.html")
	assert.Contains(t, locs, "https://movers.example.org/sectors/technology.html")
	assert.NotContains(t, locs, "https://movers.example.org/rss.xml")
	assert.NotContains(t, locs, "https://movers.example.org/robots.txt")
}

func TestRobotsPointsAtSitemap(t *testing.T) {
	b, dir := testBuilder(t)
	_, err := b.Build(BuildInput{Date: "2026-08-21", Summary: testSummary()})
	require.NoError(t, err)

	robots := readPage(t, dir, "robots.txt")
	assert.Contains(t, robots, "Sitemap: https://movers.example.org/sitemap.xml")
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Technology", want: "technology"},
		{in: "Consumer Cyclical", want: "consumer-cyclical"},
		{in: "  Oil & Gas  ", want: "oil-gas"},
		{in: "S&P 500", want: "s-p-500"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Slugify(tc.in), tc.in)
	}
}
