package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dav-apps/storyline-api/cache"
	"github.com/dav-apps/storyline-api/domain"
	"github.com/dav-apps/storyline-api/driver/storylinedb"
)

// ListArticles serves the paged article feed, optionally filtered by
// publisher set and feed-exclusion set. Requests with an exclusion set
// from paying subscribers hit the feed-scoped cache.
func (h *Handler) ListArticles(c echo.Context) error {
	args := cache.FeedArgs{
		Publishers:   c.QueryParams()["publishers"],
		ExcludeFeeds: c.QueryParams()["excludeFeeds"],
		Limit:        intQuery(c, "limit", 10),
		Offset:       intQuery(c, "offset", 0),
	}

	list, err := h.listArticles(c.Request().Context(), args, h.caller(c))
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, list)
}

// RetrieveArticle serves a single article by uuid or slug.
func (h *Handler) RetrieveArticle(c echo.Context) error {
	id := c.Param("id")

	article, err := h.retrieveArticle(c.Request().Context(), cache.Request{
		Args:   []cache.Arg{{Name: "uuid", Value: id}},
		Caller: h.caller(c),
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, article)
}

// RetrieveArticleSummary serves the article's generated summary. The
// summary is computed on first request and persisted; later requests read
// the stored text.
func (h *Handler) RetrieveArticleSummary(c echo.Context) error {
	ctx := c.Request().Context()

	article, err := h.store.FindArticleByUUIDOrSlug(ctx, c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}

	if article == nil {
		return respondAPIError(c, domain.ErrArticleDoesNotExist)
	}

	if article.Summary != nil {
		return c.JSON(http.StatusOK, summaryResponse{Summary: *article.Summary})
	}

	text := article.Description
	if article.Content != nil && *article.Content != "" {
		text = *article.Content
	}

	language, err := h.store.ArticleLanguage(ctx, article.ID)
	if err != nil {
		return h.respondError(c, err)
	}

	summary, err := h.summarizer.Summarize(ctx, text, language)
	if err != nil {
		return h.respondError(c, err)
	}

	// Only the first writer wins; a concurrent request may have stored its
	// summary already.
	if err := h.store.SaveArticleSummary(ctx, article.UUID, summary); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, summaryResponse{Summary: summary})
}

// RetrieveArticleContent serves the article's readable full text, extracted
// from the source page. When the page yields nothing readable the stored
// feed-provided content is served instead.
func (h *Handler) RetrieveArticleContent(c echo.Context) error {
	content, err := h.articleContent(c.Request().Context(), cache.Request{
		Args:   []cache.Arg{{Name: "uuid", Value: c.Param("id")}},
		Caller: h.caller(c),
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, content)
}

// ListPublisherArticles serves the paged articles of a single publisher.
func (h *Handler) ListPublisherArticles(c echo.Context) error {
	ctx := c.Request().Context()

	publisher, err := h.store.FindPublisherByUUID(ctx, c.Param("uuid"))
	if err != nil {
		return h.respondError(c, err)
	}

	if publisher == nil {
		return respondAPIError(c, domain.ErrPublisherDoesNotExist)
	}

	limit := intQuery(c, "limit", 10)
	offset := intQuery(c, "offset", 0)

	list, err := h.publisherArticles(ctx, cache.Request{
		ParentUUID: publisher.UUID,
		Args: []cache.Arg{
			{Name: "limit", Value: strconv.Itoa(limit)},
			{Name: "offset", Value: strconv.Itoa(offset)},
		},
		Caller: h.caller(c),
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, list)
}

// resolveArticlePage is the uncached feed query shared by the request path
// and the cache refresh sweep.
func (h *Handler) resolveArticlePage(ctx context.Context, args cache.FeedArgs, caller cache.Caller) (domain.List[articleResponse], error) {
	list, err := h.store.CountAndListArticles(ctx, storylinedb.ListArticlesOptions{
		Publishers:   args.Publishers,
		ExcludeFeeds: args.ExcludeFeeds,
		Limit:        args.Limit,
		Offset:       args.Offset,
	})
	if err != nil {
		return domain.List[articleResponse]{}, err
	}

	return toArticleList(list), nil
}

// RefetchArticlePage re-executes a feed page query for the ingestion
// scheduler's cache refresh sweep. The returned value has the same shape
// as the cached responses it replaces.
func (h *Handler) RefetchArticlePage(ctx context.Context, args cache.FeedArgs) (any, error) {
	return h.resolveArticlePage(ctx, args, cache.Caller{})
}

func intQuery(c echo.Context, name string, fallback int) int {
	value := c.QueryParam(name)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}
