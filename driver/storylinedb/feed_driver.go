package storylinedb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dav-apps/storyline-api/domain"
)

const feedColumns = `id, uuid, publisher_id, url, name, description, language, channel_id`

const listFeedsQuery = `
	SELECT ` + feedColumns + `
	FROM feeds
	ORDER BY id
`

const findFeedByUUIDQuery = `
	SELECT ` + feedColumns + `
	FROM feeds
	WHERE uuid = $1
`

const createFeedQuery = `
	INSERT INTO feeds (uuid, publisher_id, url, name, description, language)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
`

// ListFeeds returns all known feeds. The ingestion cycle iterates the full
// set without filtering.
func (r *Repository) ListFeeds(ctx context.Context) ([]domain.Feed, error) {
	rows, err := r.db.Query(ctx, listFeedsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []domain.Feed

	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}

		feeds = append(feeds, *feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feed rows: %w", err)
	}

	return feeds, nil
}

// FindFeedByUUID returns the feed with the given uuid, or nil when none
// exists.
func (r *Repository) FindFeedByUUID(ctx context.Context, feedUUID string) (*domain.Feed, error) {
	feed, err := scanFeed(r.db.QueryRow(ctx, findFeedByUUIDQuery, feedUUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find feed by uuid: %w", err)
	}

	return feed, nil
}

// CreateFeed persists a new feed for the publisher.
func (r *Repository) CreateFeed(ctx context.Context, feed *domain.Feed) error {
	err := r.db.QueryRow(ctx, createFeedQuery,
		feed.UUID,
		feed.PublisherID,
		feed.URL,
		feed.Name,
		feed.Description,
		feed.Language,
	).Scan(&feed.ID)
	if err != nil {
		return fmt.Errorf("failed to create feed: %w", err)
	}

	return nil
}

func scanFeed(row pgx.Row) (*domain.Feed, error) {
	var feed domain.Feed

	err := row.Scan(
		&feed.ID,
		&feed.UUID,
		&feed.PublisherID,
		&feed.URL,
		&feed.Name,
		&feed.Description,
		&feed.Language,
		&feed.ChannelID,
	)
	if err != nil {
		return nil, err
	}

	return &feed, nil
}
