// Package enrich crawls a lead's website and extracts contact details and
// service hints for personalization. Crawling is best-effort: unreachable
// pages yield empty data, never an error.
package enrich

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// crawlPaths are the fixed site paths visited per lead, in order.
var crawlPaths = []string{"/", "/about", "/services", "/contact"}

const defaultUserAgent = "Mozilla/5.0 (compatible; outreach-cli/1.0)"

// FetcherOptions configure the site fetcher.
type FetcherOptions struct {
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	MaxBodyKB  int
	UserAgent  string
}

// Fetcher downloads the fixed crawl set of a site with a shared rate limit
// across all leads.
type Fetcher struct {
	http      *http.Client
	limiter   *rate.Limiter
	maxBody   int64
	userAgent string
}

// Page is one fetched site page.
type Page struct {
	Path string
	Body string
}

// NewFetcher creates a rate-limited site fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 4
	}
	if opts.MaxBodyKB <= 0 {
		opts.MaxBodyKB = 1024
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Fetcher{
		http: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		maxBody:   int64(opts.MaxBodyKB) * 1024,
		userAgent: opts.UserAgent,
	}
}

// FetchSite downloads the crawl set for a site. Pages that fail or return a
// non-200 status are skipped; the returned slice holds whatever succeeded.
func (f *Fetcher) FetchSite(ctx context.Context, siteURL string) []Page {
	base, err := url.Parse(strings.TrimSuffix(siteURL, "/"))
	if err != nil || base.Host == "" {
		zap.L().Debug("unusable website url", zap.String("url", siteURL))
		return nil
	}

	var pages []Page
	for _, path := range crawlPaths {
		if err := f.limiter.Wait(ctx); err != nil {
			return pages
		}
		body, ok := f.fetchPage(ctx, base.String()+path)
		if !ok {
			continue
		}
		pages = append(pages, Page{Path: path, Body: body})
	}
	return pages
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.http.Do(req)
	if err != nil {
		zap.L().Debug("page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return "", false
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", false
	}
	return string(body), true
}
