// Package pagemeta fetches article pages for the Open Graph lead image
// and for readable full-text extraction.
package pagemeta

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Fetcher struct {
	httpClient *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewFetcherWithClient is used by tests to inject a client.
func NewFetcherWithClient(client *http.Client) *Fetcher {
	return &Fetcher{httpClient: client}
}

// LeadImage fetches the page at url and returns the og:image URL, or an
// empty string when the page declares none. Failures here are expected to
// be treated as non-fatal per article by the caller.
func (f *Fetcher) LeadImage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build metadata request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("metadata fetch returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	image, _ := doc.Find(`meta[property="og:image"]`).First().Attr("content")

	return image, nil
}
