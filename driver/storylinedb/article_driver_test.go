package storylinedb

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dav-apps/storyline-api/domain"
)

var articleRowColumns = []string{
	"id", "uuid", "slug", "url", "title", "description", "date",
	"image_url", "content", "summary",
}

func articleRow(id int64, articleUUID, slug, url string) *pgxmock.Rows {
	return pgxmock.NewRows(articleRowColumns).AddRow(
		id, articleUUID, slug, url, "A Title", "A description",
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), nil, nil, nil,
	)
}

func TestFindArticleByURL(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(findArticleByURLQuery)).
			WithArgs("https://example.com/a").
			WillReturnRows(articleRow(1, "uuid-1", "a-title-uuid-1", "https://example.com/a"))

		article, err := repo.FindArticleByURL(ctx, "https://example.com/a")
		require.NoError(t, err)
		require.NotNil(t, article)
		assert.Equal(t, "uuid-1", article.UUID)
		assert.Nil(t, article.ImageURL)
	})

	t.Run("not found returns nil without error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(findArticleByURLQuery)).
			WithArgs("https://example.com/missing").
			WillReturnError(pgx.ErrNoRows)

		article, err := repo.FindArticleByURL(ctx, "https://example.com/missing")
		require.NoError(t, err)
		assert.Nil(t, article)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindArticleByUUIDOrSlug(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	t.Run("uuid-shaped identifier uses uuid lookup", func(t *testing.T) {
		id := "a63ba2a4-0a1c-4c2b-8f6f-2b6cf27b0c5d"

		mock.ExpectQuery(regexp.QuoteMeta(findArticleByUUIDQuery)).
			WithArgs(id).
			WillReturnRows(articleRow(1, id, "a-title-"+id, "https://example.com/a"))

		article, err := repo.FindArticleByUUIDOrSlug(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, article)
		assert.Equal(t, id, article.UUID)
	})

	t.Run("slug-shaped identifier uses slug lookup", func(t *testing.T) {
		slug := "a-title-a63ba2a4"

		mock.ExpectQuery(regexp.QuoteMeta(findArticleBySlugQuery)).
			WithArgs(slug).
			WillReturnRows(articleRow(1, "uuid-1", slug, "https://example.com/a"))

		article, err := repo.FindArticleByUUIDOrSlug(ctx, slug)
		require.NoError(t, err)
		require.NotNil(t, article)
		assert.Equal(t, slug, article.Slug)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateArticle(t *testing.T) {
	ctx := context.Background()

	article := func() *domain.Article {
		return &domain.Article{
			UUID:        "uuid-1",
			Slug:        "a-title-uuid-1",
			URL:         "https://example.com/a",
			Title:       "A Title",
			Description: "A description",
			Date:        time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	t.Run("success inserts article and feed association", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepository(mock, nil)
		a := article()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(createArticleQuery)).
			WithArgs(a.UUID, a.Slug, a.URL, a.Title, a.Description, a.Date, a.ImageURL, a.Content).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))
		mock.ExpectExec(regexp.QuoteMeta(attachArticleToFeedQuery)).
			WithArgs(int64(7), int64(3)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreateArticle(ctx, a, 3))
		assert.Equal(t, int64(7), a.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate url surfaces as ErrArticleExists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepository(mock, nil)
		a := article()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(createArticleQuery)).
			WithArgs(a.UUID, a.Slug, a.URL, a.Title, a.Description, a.Date, a.ImageURL, a.Content).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "articles_url_key"})
		mock.ExpectRollback()

		err = repo.CreateArticle(ctx, a, 3)
		require.ErrorIs(t, err, domain.ErrArticleExists)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors propagate", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepository(mock, nil)
		a := article()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(createArticleQuery)).
			WithArgs(a.UUID, a.Slug, a.URL, a.Title, a.Description, a.Date, a.ImageURL, a.Content).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err = repo.CreateArticle(ctx, a, 3)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrArticleExists)
	})
}

func TestAttachArticleToFeed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	// ON CONFLICT DO NOTHING: attaching twice is a no-op.
	mock.ExpectExec(regexp.QuoteMeta(attachArticleToFeedQuery)).
		WithArgs(int64(7), int64(3)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, repo.AttachArticleToFeed(ctx, 7, 3))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleHasFeed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(articleHasFeedQuery)).
		WithArgs(int64(7), int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	has, err := repo.ArticleHasFeed(ctx, 7, 3)
	require.NoError(t, err)
	assert.True(t, has)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAndListArticles(t *testing.T) {
	ctx := context.Background()

	t.Run("coerces non-positive limit and negative offset", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepository(mock, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(countArticlesQuery)).
			WithArgs([]string(nil), []string(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
		mock.ExpectQuery(regexp.QuoteMeta(listArticlesQuery)).
			WithArgs([]string(nil), []string(nil), 10, 0).
			WillReturnRows(articleRow(1, "uuid-1", "a-title-uuid-1", "https://example.com/a"))
		mock.ExpectCommit()

		list, err := repo.CountAndListArticles(ctx, ListArticlesOptions{Limit: 0, Offset: -5})
		require.NoError(t, err)
		assert.Equal(t, int64(1), list.Total)
		require.Len(t, list.Items, 1)
		assert.Equal(t, "uuid-1", list.Items[0].UUID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes filters through", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewRepository(mock, nil)

		publishers := []string{"pub-uuid"}
		excludeFeeds := []string{"feed-uuid"}

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(countArticlesQuery)).
			WithArgs(publishers, excludeFeeds).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectQuery(regexp.QuoteMeta(listArticlesQuery)).
			WithArgs(publishers, excludeFeeds, 5, 20).
			WillReturnRows(pgxmock.NewRows(articleRowColumns))
		mock.ExpectCommit()

		list, err := repo.CountAndListArticles(ctx, ListArticlesOptions{
			Publishers:   publishers,
			ExcludeFeeds: excludeFeeds,
			Limit:        5,
			Offset:       20,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), list.Total)
		assert.Empty(t, list.Items)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSaveArticleSummary(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(saveArticleSummaryQuery)).
		WithArgs("uuid-1", "a summary").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SaveArticleSummary(ctx, "uuid-1", "a summary"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticlePublisher(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(articlePublisherQuery)).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "uuid", "slug", "name", "description", "url", "logo_url",
		}).AddRow(
			int64(3), "pub-uuid", "daily-planet", "Daily Planet",
			"Metropolis news", "https://dailyplanet.example.com",
			"https://dailyplanet.example.com/logo.png",
		))

	publisher, err := repo.ArticlePublisher(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, publisher)
	assert.Equal(t, "pub-uuid", publisher.UUID)
	assert.Equal(t, "daily-planet", publisher.Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticlePublisherWithoutFeeds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(articlePublisherQuery)).
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	publisher, err := repo.ArticlePublisher(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, publisher)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleLanguage(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(articleLanguageQuery)).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"language"}).AddRow("de"))

	language, err := repo.ArticleLanguage(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "de", language)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleLanguageWithoutFeeds(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepository(mock, nil)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(articleLanguageQuery)).
		WithArgs(int64(8)).
		WillReturnError(pgx.ErrNoRows)

	language, err := repo.ArticleLanguage(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, language)
	require.NoError(t, mock.ExpectationsWereMet())
}
