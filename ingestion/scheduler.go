// Package ingestion runs the periodic feed crawl: parse every registered
// feed, create articles for unseen items, fan out notifications for each
// new article and refresh the feed-scoped cache entries afterwards.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dav-apps/storyline-api/cache"
	"github.com/dav-apps/storyline-api/domain"
	"github.com/dav-apps/storyline-api/feedparse"
	"github.com/dav-apps/storyline-api/utils/textutil"
)

type FeedStore interface {
	ListFeeds(ctx context.Context) ([]domain.Feed, error)
}

type ArticleStore interface {
	FindArticleByURL(ctx context.Context, url string) (*domain.Article, error)
	CreateArticle(ctx context.Context, article *domain.Article, feedID int64) error
	ArticleHasFeed(ctx context.Context, articleID, feedID int64) (bool, error)
	AttachArticleToFeed(ctx context.Context, articleID, feedID int64) error
}

type FeedParser interface {
	Parse(ctx context.Context, url string) (*feedparse.Feed, error)
}

type MetadataFetcher interface {
	LeadImage(ctx context.Context, url string) (string, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, article *domain.Article, feed *domain.Feed) error
}

type CacheRefresher interface {
	RefreshFeedEntries(ctx context.Context, refetch cache.FeedRefreshFunc) (int, error)
}

// State reports whether an ingestion cycle is currently running.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Scheduler drives the ingestion loop. Feeds are processed one at a time
// and items within a feed one at a time; the article store's unique URL
// constraint is the only guard against duplicate creation.
type Scheduler struct {
	feeds     FeedStore
	articles  ArticleStore
	parser    FeedParser
	metadata  MetadataFetcher
	notifier  Notifier
	refresher CacheRefresher
	refetch   cache.FeedRefreshFunc
	interval  time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

func NewScheduler(
	feeds FeedStore,
	articles ArticleStore,
	parser FeedParser,
	metadata MetadataFetcher,
	notifier Notifier,
	refresher CacheRefresher,
	refetch cache.FeedRefreshFunc,
	interval time.Duration,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		feeds:     feeds,
		articles:  articles,
		parser:    parser,
		metadata:  metadata,
		notifier:  notifier,
		refresher: refresher,
		refetch:   refetch,
		interval:  interval,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the scheduler's current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run executes ingestion cycles at the configured interval until the
// context is canceled. After each cycle the feed-scoped cache entries are
// refreshed so their stored pages reflect the newly created articles.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		start := time.Now()

		count, err := s.RunCycle(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "ingestion cycle failed", "error", err)
		} else {
			s.logger.InfoContext(ctx, "ingestion cycle finished",
				"newArticles", count,
				"duration", time.Since(start).String(),
			)
		}

		if s.refresher != nil && s.refetch != nil {
			refreshed, err := s.refresher.RefreshFeedEntries(ctx, s.refetch)
			if err != nil {
				s.logger.ErrorContext(ctx, "feed cache refresh failed", "error", err)
			} else if refreshed > 0 {
				s.logger.InfoContext(ctx, "feed cache refreshed", "entries", refreshed)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

// RunCycle processes every registered feed once and returns the number of
// newly created articles. A failure of a single feed or item never aborts
// the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) (int, error) {
	s.setState(StateRunning)
	defer s.setState(StateIdle)

	feeds, err := s.feeds.ListFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list feeds: %w", err)
	}

	newArticles := 0

	for i := range feeds {
		feed := &feeds[i]

		created, err := s.processFeed(ctx, feed)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to process feed",
				"feed", feed.UUID,
				"url", feed.URL,
				"error", err,
			)
			continue
		}

		newArticles += created
	}

	return newArticles, nil
}

func (s *Scheduler) processFeed(ctx context.Context, feed *domain.Feed) (int, error) {
	parsed, err := s.parser.Parse(ctx, feed.URL)
	if err != nil {
		return 0, err
	}

	created := 0

	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}

		article, err := s.articles.FindArticleByURL(ctx, item.Link)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to look up article",
				"url", item.Link, "error", err)
			continue
		}

		if article == nil {
			if s.createArticle(ctx, feed, item) {
				created++
			}

			continue
		}

		if err := s.ensureFeedAssociation(ctx, article, feed); err != nil {
			s.logger.ErrorContext(ctx, "failed to associate article with feed",
				"article", article.UUID,
				"feed", feed.UUID,
				"error", err,
			)
		}
	}

	return created, nil
}

// createArticle builds and persists a new article from a feed item and
// fans out notifications afterwards. It reports whether an article was
// created. Items whose metadata fetch fails are skipped entirely so no
// partial article is ever stored.
func (s *Scheduler) createArticle(ctx context.Context, feed *domain.Feed, item feedparse.Item) bool {
	imageURL, err := s.metadata.LeadImage(ctx, item.Link)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch article metadata, skipping item",
			"url", item.Link, "error", err)
		return false
	}

	articleUUID := uuid.NewString()

	date := time.Now()
	if item.PublishedAt != nil {
		date = *item.PublishedAt
	}

	article := &domain.Article{
		UUID:        articleUUID,
		Slug:        fmt.Sprintf("%s-%s", textutil.Slugify(item.Title), articleUUID),
		URL:         item.Link,
		Title:       item.Title,
		Description: item.Snippet,
		Date:        date,
	}

	if imageURL != "" {
		article.ImageURL = &imageURL
	}

	if content := item.Content; content != "" {
		article.Content = &content
	}

	if err := s.articles.CreateArticle(ctx, article, feed.ID); err != nil {
		// A concurrent creation of the same URL lost the race; the
		// article exists, nothing more to do.
		if errors.Is(err, domain.ErrArticleExists) {
			return false
		}

		s.logger.ErrorContext(ctx, "failed to create article",
			"url", item.Link, "error", err)
		return false
	}

	// Notification happens strictly after durable creation. A failure here
	// loses at most the notification, never the article.
	if s.notifier != nil {
		if err := s.notifier.Dispatch(ctx, article, feed); err != nil {
			s.logger.ErrorContext(ctx, "failed to dispatch notifications",
				"article", article.UUID, "error", err)
		}
	}

	return true
}

func (s *Scheduler) ensureFeedAssociation(ctx context.Context, article *domain.Article, feed *domain.Feed) error {
	attached, err := s.articles.ArticleHasFeed(ctx, article.ID, feed.ID)
	if err != nil {
		return err
	}

	if attached {
		return nil
	}

	return s.articles.AttachArticleToFeed(ctx, article.ID, feed.ID)
}
