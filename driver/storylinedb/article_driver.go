package storylinedb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dav-apps/storyline-api/domain"
)

const articleColumns = `id, uuid, slug, url, title, description, date, image_url, content, summary`

const findArticleByURLQuery = `
	SELECT ` + articleColumns + `
	FROM articles
	WHERE url = $1
`

const findArticleByUUIDQuery = `
	SELECT ` + articleColumns + `
	FROM articles
	WHERE uuid = $1
`

const findArticleBySlugQuery = `
	SELECT ` + articleColumns + `
	FROM articles
	WHERE slug = $1
`

const createArticleQuery = `
	INSERT INTO articles (uuid, slug, url, title, description, date, image_url, content)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
`

const attachArticleToFeedQuery = `
	INSERT INTO article_feeds (article_id, feed_id)
	VALUES ($1, $2)
	ON CONFLICT (article_id, feed_id) DO NOTHING
`

const articleHasFeedQuery = `
	SELECT EXISTS (
		SELECT 1 FROM article_feeds
		WHERE article_id = $1 AND feed_id = $2
	)
`

const countArticlesQuery = `
	SELECT COUNT(DISTINCT a.id)
	FROM articles a
	JOIN article_feeds af ON af.article_id = a.id
	JOIN feeds f ON f.id = af.feed_id
	JOIN publishers p ON p.id = f.publisher_id
	WHERE ($1::text[] IS NULL OR p.uuid = ANY($1))
	  AND ($2::text[] IS NULL OR f.uuid <> ALL($2))
`

const listArticlesQuery = `
	SELECT DISTINCT a.id, a.uuid, a.slug, a.url, a.title, a.description, a.date, a.image_url, a.content, a.summary
	FROM articles a
	JOIN article_feeds af ON af.article_id = a.id
	JOIN feeds f ON f.id = af.feed_id
	JOIN publishers p ON p.id = f.publisher_id
	WHERE ($1::text[] IS NULL OR p.uuid = ANY($1))
	  AND ($2::text[] IS NULL OR f.uuid <> ALL($2))
	ORDER BY a.date DESC
	LIMIT $3 OFFSET $4
`

const articleLanguageQuery = `
	SELECT f.language
	FROM feeds f
	JOIN article_feeds af ON af.feed_id = f.id
	WHERE af.article_id = $1
	ORDER BY f.id
	LIMIT 1
`

const articlePublisherQuery = `
	SELECT p.id, p.uuid, p.slug, p.name, p.description, p.url, p.logo_url
	FROM publishers p
	JOIN feeds f ON f.publisher_id = p.id
	JOIN article_feeds af ON af.feed_id = f.id
	WHERE af.article_id = $1
	ORDER BY f.id
	LIMIT 1
`

const saveArticleSummaryQuery = `
	UPDATE articles
	SET summary = $2
	WHERE uuid = $1 AND summary IS NULL
`

// ListArticlesOptions filters and pages an article listing. Nil slices
// mean "no filter".
type ListArticlesOptions struct {
	Publishers   []string
	ExcludeFeeds []string
	Limit        int
	Offset       int
}

// FindArticleByURL returns the article with the given source URL, or nil
// when none exists.
func (r *Repository) FindArticleByURL(ctx context.Context, url string) (*domain.Article, error) {
	article, err := r.scanArticle(r.db.QueryRow(ctx, findArticleByURLQuery, url))
	if err != nil {
		return nil, fmt.Errorf("failed to find article by url: %w", err)
	}

	return article, nil
}

// FindArticleByUUIDOrSlug accepts either a UUID-shaped or a slug-shaped
// identifier and dispatches to the matching lookup.
func (r *Repository) FindArticleByUUIDOrSlug(ctx context.Context, id string) (*domain.Article, error) {
	query := findArticleBySlugQuery
	if _, err := uuid.Parse(id); err == nil {
		query = findArticleByUUIDQuery
	}

	article, err := r.scanArticle(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to find article by uuid or slug: %w", err)
	}

	return article, nil
}

// CreateArticle atomically inserts the article and its association with the
// given feed. A concurrent duplicate-URL attempt surfaces as
// domain.ErrArticleExists; the caller treats that as "already exists".
func (r *Repository) CreateArticle(ctx context.Context, article *domain.Article, feedID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, createArticleQuery,
		article.UUID,
		article.Slug,
		article.URL,
		article.Title,
		article.Description,
		article.Date,
		article.ImageURL,
		article.Content,
	).Scan(&article.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrArticleExists
		}

		return fmt.Errorf("failed to create article: %w", err)
	}

	if _, err := tx.Exec(ctx, attachArticleToFeedQuery, article.ID, feedID); err != nil {
		return fmt.Errorf("failed to attach article to feed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit article creation: %w", err)
	}

	return nil
}

// ArticleHasFeed reports whether the article is already associated with
// the feed.
func (r *Repository) ArticleHasFeed(ctx context.Context, articleID, feedID int64) (bool, error) {
	var exists bool

	err := r.db.QueryRow(ctx, articleHasFeedQuery, articleID, feedID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check article feed association: %w", err)
	}

	return exists, nil
}

// AttachArticleToFeed associates the article with the feed. The operation
// is idempotent.
func (r *Repository) AttachArticleToFeed(ctx context.Context, articleID, feedID int64) error {
	if _, err := r.db.Exec(ctx, attachArticleToFeedQuery, articleID, feedID); err != nil {
		return fmt.Errorf("failed to attach article to feed: %w", err)
	}

	return nil
}

// CountAndListArticles returns the total count and one page of articles in
// a single transaction, sorted by publish date descending. Limit defaults
// to 10 when non-positive, offset to 0 when negative.
func (r *Repository) CountAndListArticles(ctx context.Context, opts ListArticlesOptions) (*domain.List[domain.Article], error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	list := &domain.List[domain.Article]{Items: []domain.Article{}}

	err = tx.QueryRow(ctx, countArticlesQuery, opts.Publishers, opts.ExcludeFeeds).Scan(&list.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	rows, err := tx.Query(ctx, listArticlesQuery, opts.Publishers, opts.ExcludeFeeds, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var article domain.Article

		err := rows.Scan(
			&article.ID,
			&article.UUID,
			&article.Slug,
			&article.URL,
			&article.Title,
			&article.Description,
			&article.Date,
			&article.ImageURL,
			&article.Content,
			&article.Summary,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}

		list.Items = append(list.Items, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read article rows: %w", err)
	}

	rows.Close()

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit article listing: %w", err)
	}

	return list, nil
}

// ArticleLanguage returns the language of the article's first feed, or an
// empty string when the article has no feed association.
func (r *Repository) ArticleLanguage(ctx context.Context, articleID int64) (string, error) {
	var language string

	err := r.db.QueryRow(ctx, articleLanguageQuery, articleID).Scan(&language)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("failed to find article language: %w", err)
	}

	return language, nil
}

// ArticlePublisher returns the publisher behind the article's first feed,
// or nil when the article has no feed association.
func (r *Repository) ArticlePublisher(ctx context.Context, articleID int64) (*domain.Publisher, error) {
	publisher, err := scanPublisher(r.db.QueryRow(ctx, articlePublisherQuery, articleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find article publisher: %w", err)
	}

	return publisher, nil
}

// SaveArticleSummary persists the generated summary. The summary is set at
// most once; later calls are no-ops.
func (r *Repository) SaveArticleSummary(ctx context.Context, articleUUID, summary string) error {
	if _, err := r.db.Exec(ctx, saveArticleSummaryQuery, articleUUID, summary); err != nil {
		return fmt.Errorf("failed to save article summary: %w", err)
	}

	return nil
}

func (r *Repository) scanArticle(row pgx.Row) (*domain.Article, error) {
	var article domain.Article

	err := row.Scan(
		&article.ID,
		&article.UUID,
		&article.Slug,
		&article.URL,
		&article.Title,
		&article.Description,
		&article.Date,
		&article.ImageURL,
		&article.Content,
		&article.Summary,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &article, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
