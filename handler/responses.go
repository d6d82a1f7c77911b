package handler

import (
	"time"

	"github.com/dav-apps/storyline-api/domain"
)

type articleResponse struct {
	UUID        string        `json:"uuid"`
	Slug        string        `json:"slug"`
	URL         string        `json:"url"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Date        time.Time     `json:"date"`
	ImageURL    *string       `json:"imageUrl"`
	Content     *string       `json:"content,omitempty"`
	Summary     *string       `json:"summary,omitempty"`
	Publisher   *publisherRef `json:"publisher,omitempty"`
}

// publisherRef is the embedded publisher reference on article responses.
type publisherRef struct {
	UUID string `json:"uuid"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

type publisherResponse struct {
	UUID        string `json:"uuid"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	LogoURL     string `json:"logoUrl"`
}

type feedResponse struct {
	UUID        string `json:"uuid"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

type contentResponse struct {
	Content string `json:"content"`
}

func toArticleResponse(article *domain.Article) articleResponse {
	return articleResponse{
		UUID:        article.UUID,
		Slug:        article.Slug,
		URL:         article.URL,
		Title:       article.Title,
		Description: article.Description,
		Date:        article.Date,
		ImageURL:    article.ImageURL,
		Content:     article.Content,
		Summary:     article.Summary,
	}
}

func toArticleList(list *domain.List[domain.Article]) domain.List[articleResponse] {
	items := make([]articleResponse, 0, len(list.Items))

	for i := range list.Items {
		items = append(items, toArticleResponse(&list.Items[i]))
	}

	return domain.List[articleResponse]{Total: list.Total, Items: items}
}

func toPublisherResponse(publisher *domain.Publisher) publisherResponse {
	return publisherResponse{
		UUID:        publisher.UUID,
		Slug:        publisher.Slug,
		Name:        publisher.Name,
		Description: publisher.Description,
		URL:         publisher.URL,
		LogoURL:     publisher.LogoURL,
	}
}

func toFeedResponse(feed *domain.Feed) feedResponse {
	return feedResponse{
		UUID:        feed.UUID,
		URL:         feed.URL,
		Name:        feed.Name,
		Description: feed.Description,
		Language:    feed.Language,
	}
}
