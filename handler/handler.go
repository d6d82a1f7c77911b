// Package handler exposes the query and admin API over HTTP. Read
// endpoints resolve through the response cache; admin mutations require an
// authenticated administrator.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dav-apps/storyline-api/cache"
	"github.com/dav-apps/storyline-api/config"
	"github.com/dav-apps/storyline-api/domain"
	"github.com/dav-apps/storyline-api/driver/dav"
	"github.com/dav-apps/storyline-api/driver/storylinedb"
	"github.com/dav-apps/storyline-api/feedparse"
)

const userContextKey = "storyline.user"

type Store interface {
	CountAndListArticles(ctx context.Context, opts storylinedb.ListArticlesOptions) (*domain.List[domain.Article], error)
	FindArticleByUUIDOrSlug(ctx context.Context, id string) (*domain.Article, error)
	ArticleLanguage(ctx context.Context, articleID int64) (string, error)
	ArticlePublisher(ctx context.Context, articleID int64) (*domain.Publisher, error)
	SaveArticleSummary(ctx context.Context, articleUUID, summary string) error
	FindPublisherByUUID(ctx context.Context, publisherUUID string) (*domain.Publisher, error)
	CreatePublisher(ctx context.Context, publisher *domain.Publisher) error
	FindFeedByUUID(ctx context.Context, feedUUID string) (*domain.Feed, error)
	CreateFeed(ctx context.Context, feed *domain.Feed) error
}

type UserRetriever interface {
	RetrieveUser(ctx context.Context, accessToken string) (*dav.User, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, content, language string) (string, error)
}

type FeedParser interface {
	Parse(ctx context.Context, url string) (*feedparse.Feed, error)
}

type ContentExtractor interface {
	ReadableContent(ctx context.Context, url string) (string, error)
}

type Handler struct {
	store      Store
	users      UserRetriever
	summarizer Summarizer
	parser     FeedParser
	extractor  ContentExtractor
	cfg        *config.Config
	logger     *slog.Logger

	listArticles      cache.FeedResolveFunc[domain.List[articleResponse]]
	retrieveArticle   cache.ResolveFunc[articleResponse]
	articleContent    cache.ResolveFunc[contentResponse]
	retrievePublisher cache.ResolveFunc[publisherResponse]
	publisherArticles cache.ResolveFunc[domain.List[articleResponse]]
	retrieveFeed      cache.ResolveFunc[feedResponse]
}

func New(
	store Store,
	responseCache *cache.Cache,
	users UserRetriever,
	summarizer Summarizer,
	parser FeedParser,
	extractor ContentExtractor,
	cfg *config.Config,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		store:      store,
		users:      users,
		summarizer: summarizer,
		parser:     parser,
		extractor:  extractor,
		cfg:        cfg,
		logger:     logger,
	}

	h.listArticles = cache.WithFeedCache(responseCache, "Query-listArticles", h.resolveArticlePage)

	h.retrieveArticle = cache.WithCache(responseCache, "Query-retrieveArticle", cache.Options{},
		func(ctx context.Context, req cache.Request) (articleResponse, error) {
			article, err := h.store.FindArticleByUUIDOrSlug(ctx, argValue(req, "uuid"))
			if err != nil {
				return articleResponse{}, err
			}

			if article == nil {
				return articleResponse{}, domain.ErrArticleDoesNotExist
			}

			resp := toArticleResponse(article)

			publisher, err := h.store.ArticlePublisher(ctx, article.ID)
			if err != nil {
				return articleResponse{}, err
			}

			if publisher != nil {
				resp.Publisher = &publisherRef{
					UUID: publisher.UUID,
					Slug: publisher.Slug,
					Name: publisher.Name,
				}
			}

			return resp, nil
		})

	h.articleContent = cache.WithCache(responseCache, "Article-content", cache.Options{},
		func(ctx context.Context, req cache.Request) (contentResponse, error) {
			article, err := h.store.FindArticleByUUIDOrSlug(ctx, argValue(req, "uuid"))
			if err != nil {
				return contentResponse{}, err
			}

			if article == nil {
				return contentResponse{}, domain.ErrArticleDoesNotExist
			}

			content, err := h.extractor.ReadableContent(ctx, article.URL)
			if err != nil {
				h.logger.WarnContext(ctx, "failed to extract article content, serving stored content",
					"article", article.UUID, "error", err)
			}

			if content == "" && article.Content != nil {
				content = *article.Content
			}

			return contentResponse{Content: content}, nil
		})

	h.retrievePublisher = cache.WithCache(responseCache, "Query-retrievePublisher", cache.Options{},
		func(ctx context.Context, req cache.Request) (publisherResponse, error) {
			publisher, err := h.store.FindPublisherByUUID(ctx, argValue(req, "uuid"))
			if err != nil {
				return publisherResponse{}, err
			}

			if publisher == nil {
				return publisherResponse{}, domain.ErrPublisherDoesNotExist
			}

			return toPublisherResponse(publisher), nil
		})

	h.publisherArticles = cache.WithCache(responseCache, "Publisher-articles", cache.Options{},
		func(ctx context.Context, req cache.Request) (domain.List[articleResponse], error) {
			list, err := h.store.CountAndListArticles(ctx, storylinedb.ListArticlesOptions{
				Publishers: []string{req.ParentUUID},
				Limit:      intArgValue(req, "limit"),
				Offset:     intArgValue(req, "offset"),
			})
			if err != nil {
				return domain.List[articleResponse]{}, err
			}

			return toArticleList(list), nil
		})

	h.retrieveFeed = cache.WithCache(responseCache, "Query-retrieveFeed", cache.Options{},
		func(ctx context.Context, req cache.Request) (feedResponse, error) {
			feed, err := h.store.FindFeedByUUID(ctx, argValue(req, "uuid"))
			if err != nil {
				return feedResponse{}, err
			}

			if feed == nil {
				return feedResponse{}, domain.ErrFeedDoesNotExist
			}

			return toFeedResponse(feed), nil
		})

	return h
}

// Register wires the routes into the echo server.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)

	v1 := e.Group("/v1", h.resolveCaller)

	v1.GET("/articles", h.ListArticles)
	v1.GET("/articles/:id", h.RetrieveArticle)
	v1.GET("/articles/:id/summary", h.RetrieveArticleSummary)
	v1.GET("/articles/:id/content", h.RetrieveArticleContent)
	v1.GET("/publishers/:uuid", h.RetrievePublisher)
	v1.GET("/publishers/:uuid/articles", h.ListPublisherArticles)
	v1.GET("/feeds/:uuid", h.RetrieveFeed)
	v1.POST("/publishers", h.CreatePublisher)
	v1.POST("/feeds", h.CreateFeed)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// resolveCaller attaches the dav user behind the Authorization header to
// the request context. Requests without a verifiable session proceed as
// anonymous; only an explicitly expired session is rejected.
func (h *Handler) resolveCaller(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		accessToken := c.Request().Header.Get(echo.HeaderAuthorization)
		if accessToken == "" {
			return next(c)
		}

		user, err := h.users.RetrieveUser(c.Request().Context(), accessToken)
		if errors.Is(err, domain.ErrSessionExpired) {
			return respondAPIError(c, domain.ErrSessionExpiredAPI)
		}

		if err != nil {
			h.logger.ErrorContext(c.Request().Context(),
				"failed to resolve caller, continuing as anonymous", "error", err)
		}

		if user != nil {
			c.Set(userContextKey, user)
		}

		return next(c)
	}
}

func (h *Handler) user(c echo.Context) *dav.User {
	user, _ := c.Get(userContextKey).(*dav.User)

	return user
}

func (h *Handler) caller(c echo.Context) cache.Caller {
	user := h.user(c)

	return cache.Caller{
		Authenticated: user != nil,
		PaidPlan:      user.OnPaidPlan(),
	}
}

// requireAdmin returns the API error to respond with when the caller may
// not run administrative mutations.
func (h *Handler) requireAdmin(c echo.Context) *domain.APIError {
	user := h.user(c)

	if user == nil {
		return domain.ErrNotAuthenticated
	}

	if !h.cfg.IsAdmin(user.ID) {
		return domain.ErrActionNotAllowed
	}

	return nil
}

func argValue(req cache.Request, name string) string {
	for _, arg := range req.Args {
		if arg.Name == name {
			return arg.Value
		}
	}

	return ""
}

func intArgValue(req cache.Request, name string) int {
	value, _ := strconv.Atoi(argValue(req, name))

	return value
}
