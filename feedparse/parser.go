// Package feedparse wraps syndication parsing of a feed URL into a
// normalized sequence of items. It is stateless; every call fetches and
// parses the feed anew.
package feedparse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dav-apps/storyline-api/domain"
)

// Item is a single normalized feed entry.
type Item struct {
	GUID        string
	Link        string
	Title       string
	Snippet     string
	Content     string
	Published   string
	PublishedAt *time.Time
}

// Feed is the parsed feed metadata plus its items.
type Feed struct {
	Title       string
	Description string
	Language    string
	Copyright   string
	Items       []Item
}

type Parser struct {
	fp *gofeed.Parser
}

func NewParser() *Parser {
	fp := gofeed.NewParser()
	fp.Client = &http.Client{Timeout: 30 * time.Second}

	return &Parser{fp: fp}
}

// Parse fetches and parses the feed at url. It returns
// domain.ErrFeedUnreachable for network failures and domain.ErrFeedParse
// for format failures, both wrapped with detail. Callers must treat either
// as non-fatal for the feed and continue with their remaining work.
func (p *Parser) Parse(ctx context.Context, url string) (*Feed, error) {
	parsed, err := p.fp.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, classifyError(url, err)
	}

	feed := &Feed{
		Title:       parsed.Title,
		Description: parsed.Description,
		Language:    strings.ToLower(parsed.Language),
		Copyright:   parsed.Copyright,
		Items:       make([]Item, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		feed.Items = append(feed.Items, Item{
			GUID:        item.GUID,
			Link:        item.Link,
			Title:       item.Title,
			Snippet:     snippet(item),
			Content:     strings.TrimSpace(item.Content),
			Published:   item.Published,
			PublishedAt: item.PublishedParsed,
		})
	}

	return feed, nil
}

// snippet prefers the item description and falls back to the raw content.
func snippet(item *gofeed.Item) string {
	if item.Description != "" {
		return item.Description
	}

	return item.Content
}

func classifyError(url string, err error) error {
	var urlErr *neturl.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %s: %v", domain.ErrFeedUnreachable, url, err)
	}

	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return fmt.Errorf("%w: %s: %v", domain.ErrFeedUnreachable, url, err)
	}

	return fmt.Errorf("%w: %s: %v", domain.ErrFeedParse, url, err)
}
