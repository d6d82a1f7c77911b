package storylinedb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dav-apps/storyline-api/domain"
)

const publisherColumns = `id, uuid, slug, name, description, url, logo_url`

const findPublisherByIDQuery = `
	SELECT ` + publisherColumns + `
	FROM publishers
	WHERE id = $1
`

const findPublisherByUUIDQuery = `
	SELECT ` + publisherColumns + `
	FROM publishers
	WHERE uuid = $1
`

const createPublisherQuery = `
	INSERT INTO publishers (uuid, slug, name, description, url, logo_url)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id
`

// FindPublisherByID returns the publisher with the given id, or nil when
// none exists.
func (r *Repository) FindPublisherByID(ctx context.Context, id int64) (*domain.Publisher, error) {
	publisher, err := scanPublisher(r.db.QueryRow(ctx, findPublisherByIDQuery, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find publisher by id: %w", err)
	}

	return publisher, nil
}

// FindPublisherByUUID returns the publisher with the given uuid, or nil
// when none exists.
func (r *Repository) FindPublisherByUUID(ctx context.Context, publisherUUID string) (*domain.Publisher, error) {
	publisher, err := scanPublisher(r.db.QueryRow(ctx, findPublisherByUUIDQuery, publisherUUID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to find publisher by uuid: %w", err)
	}

	return publisher, nil
}

// CreatePublisher persists a new publisher.
func (r *Repository) CreatePublisher(ctx context.Context, publisher *domain.Publisher) error {
	err := r.db.QueryRow(ctx, createPublisherQuery,
		publisher.UUID,
		publisher.Slug,
		publisher.Name,
		publisher.Description,
		publisher.URL,
		publisher.LogoURL,
	).Scan(&publisher.ID)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	return nil
}

func scanPublisher(row pgx.Row) (*domain.Publisher, error) {
	var publisher domain.Publisher

	err := row.Scan(
		&publisher.ID,
		&publisher.UUID,
		&publisher.Slug,
		&publisher.Name,
		&publisher.Description,
		&publisher.URL,
		&publisher.LogoURL,
	)
	if err != nil {
		return nil, err
	}

	return &publisher, nil
}
