package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSite_VisitsFixedPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/services" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("<html><body>Ace Plumbing</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{RatePerSec: 100, Burst: 10})
	pages := f.FetchSite(context.Background(), srv.URL)

	assert.Equal(t, []string{"/", "/about", "/services", "/contact"}, paths)
	require.Len(t, pages, 3)
	assert.Equal(t, "/", pages[0].Path)
	assert.Contains(t, pages[0].Body, "Ace Plumbing")
}

func TestFetchSite_UnreachableSiteReturnsEmpty(t *testing.T) {
	f := NewFetcher(FetcherOptions{RatePerSec: 100, Burst: 10})
	pages := f.FetchSite(context.Background(), "http://127.0.0.1:1")
	assert.Empty(t, pages)
}

func TestFetchSite_BadURL(t *testing.T) {
	f := NewFetcher(FetcherOptions{RatePerSec: 100, Burst: 10})
	assert.Empty(t, f.FetchSite(context.Background(), "::not-a-url"))
}

func TestFetchSite_BodyCap(t *testing.T) {
	big := strings.Repeat("x", 64*1024)
	var served atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		served.Add(1)
		_, _ = w.Write([]byte(big))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherOptions{RatePerSec: 100, Burst: 10, MaxBodyKB: 1})
	pages := f.FetchSite(context.Background(), srv.URL)

	require.NotEmpty(t, pages)
	assert.Len(t, pages[0].Body, 1024)
}

func TestExtract_ContactAndKeywords(t *testing.T) {
	pages := []Page{
		{Path: "/", Body: `<html><head><style>body{}</style></head><body>
			<h1>Ace Plumbing</h1>
			<p>Emergency repair and installation, residential and commercial.</p>
			<p>Family owned with over 20 years of experience.</p>
		</body></html>`},
		{Path: "/contact", Body: `<html><body>
			Call us at (512) 555-0100 or email info@aceplumbing.com
		</body></html>`},
	}

	data := Extract(pages)

	require.NotNil(t, data.Phone)
	assert.Equal(t, "+15125550100", *data.Phone)
	require.NotNil(t, data.Email)
	assert.Equal(t, "info@aceplumbing.com", *data.Email)
	assert.Contains(t, data.ServiceKeywords, "emergency")
	assert.Contains(t, data.ServiceKeywords, "repair")
	assert.Contains(t, data.ServiceKeywords, "residential")
	require.NotEmpty(t, data.Claims)
	assert.Contains(t, data.Claims[0], "Family owned")
	assert.Equal(t, 2, data.PagesVisited)
}

func TestExtract_EmptyPages(t *testing.T) {
	data := Extract(nil)
	assert.Nil(t, data.Phone)
	assert.Nil(t, data.Email)
	assert.Empty(t, data.ServiceKeywords)
	assert.Empty(t, data.Claims)
	assert.Zero(t, data.PagesVisited)
}

func TestExtract_SkipsImageFilenameEmails(t *testing.T) {
	pages := []Page{
		{Path: "/", Body: `<img src="logo@2x.png"> Reach us: hello@aceplumbing.com`},
	}
	data := Extract(pages)
	require.NotNil(t, data.Email)
	assert.Equal(t, "hello@aceplumbing.com", *data.Email)
}

func TestNormalizePhone_StripsCountryCode(t *testing.T) {
	assert.Equal(t, "+15125550100", normalizePhone("1-512-555-0100"))
	assert.Equal(t, "+15125550100", normalizePhone("512.555.0100"))
}

func TestExtract_ClaimLimit(t *testing.T) {
	body := strings.Repeat("We are a family owned business serving the area with pride. ", 10)
	data := Extract([]Page{{Path: "/", Body: body}})
	assert.LessOrEqual(t, len(data.Claims), maxClaims)
}
