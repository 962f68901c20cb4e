// Package publish holds the post-build side effects: committing the output
// tree and notifying search engines about the fresh sitemap.
package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

type Pinger struct {
	endpoints  []string
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewPinger(endpoints []string, timeout time.Duration, logger *logrus.Logger) *Pinger {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pinger{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// PingAll notifies every configured endpoint and returns how many accepted
// the ping. Failures are logged, never fatal.
func (p *Pinger) PingAll(ctx context.Context, sitemapURL string) int {
	ok := 0
	for _, endpoint := range p.endpoints {
		if err := p.ping(ctx, endpoint, sitemapURL); err != nil {
			p.logger.WithField("endpoint", endpoint).WithError(err).Warn("sitemap ping failed")
			continue
		}
		p.logger.WithField("endpoint", endpoint).Info("sitemap ping accepted")
		ok++
	}
	return ok
}

func (p *Pinger) ping(ctx context.Context, endpoint, sitemapURL string) error {
	if sitemapURL == "" {
		return fmt.Errorf("sitemap url is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid ping endpoint: %w", err)
	}
	q := u.Query()
	q.Set("sitemap", sitemapURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ping status %d", resp.StatusCode)
	}
	return nil
}
