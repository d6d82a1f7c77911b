package pagemeta

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/microcosm-cc/bluemonday"
)

// Pages whose extracted text is shorter than this are treated as not
// readable; the caller falls back to the feed-provided content.
const minReadableTextLength = 200

var contentPolicy = newContentPolicy()

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return p
}

// ReadableContent fetches the page at url and extracts its main body as
// sanitized HTML. A page that yields no usable extraction resolves to an
// empty string without error; only fetch failures are reported as errors.
func (f *Fetcher) ReadableContent(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build content request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("article page fetch returned status %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return "", nil
	}

	var text strings.Builder
	if err := article.RenderText(&text); err != nil {
		return "", nil
	}

	if len(strings.TrimSpace(text.String())) < minReadableTextLength {
		return "", nil
	}

	var html strings.Builder
	if err := article.RenderHTML(&html); err != nil {
		return "", nil
	}

	return strings.TrimSpace(contentPolicy.Sanitize(html.String())), nil
}
