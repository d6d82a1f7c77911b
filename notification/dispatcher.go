// Package notification fans out new-article notifications to subscribers
// of the article's publisher.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dav-apps/storyline-api/domain"
	"github.com/dav-apps/storyline-api/driver/dav"
	"github.com/dav-apps/storyline-api/utils/textutil"
)

const (
	notificationTableName     = "Notification"
	followTableName           = "Follow"
	publisherPropertyName     = "publisher"
	excludedFeedsPropertyName = "excludedFeeds"

	// registryPageLimit is large enough to fetch every record in one page.
	registryPageLimit = 1_000_000

	titleMaxLength = 40
	bodyMaxLength  = 150
)

type PublisherFinder interface {
	FindPublisherByID(ctx context.Context, id int64) (*domain.Publisher, error)
}

type RegistryClient interface {
	ListTableObjectsByProperty(ctx context.Context, params dav.ListTableObjectsParams) (*dav.TableObjectList, error)
	CreateNotification(ctx context.Context, params dav.CreateNotificationParams) error
}

type ChannelMessenger interface {
	SendChannelMessage(ctx context.Context, channelID, text string) error
}

// Dispatcher resolves the subscribers of a publisher and emits one push
// notification per subscriber, plus a channel message when the feed has a
// linked chat channel. Delivery is best effort.
type Dispatcher struct {
	publishers     PublisherFinder
	registry       RegistryClient
	messenger      ChannelMessenger
	appID          int64
	websiteBaseURL string
	logger         *slog.Logger
}

func NewDispatcher(
	publishers PublisherFinder,
	registry RegistryClient,
	messenger ChannelMessenger,
	appID int64,
	websiteBaseURL string,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		publishers:     publishers,
		registry:       registry,
		messenger:      messenger,
		appID:          appID,
		websiteBaseURL: websiteBaseURL,
		logger:         logger,
	}
}

// Dispatch notifies every subscriber of the feed's publisher about the
// article. Subscribers without a follow record for the publisher are
// skipped, as are subscribers whose follow record excludes this feed.
// Per-subscriber failures are logged and do not stop the fan-out.
func (d *Dispatcher) Dispatch(ctx context.Context, article *domain.Article, feed *domain.Feed) error {
	publisher, err := d.publishers.FindPublisherByID(ctx, feed.PublisherID)
	if err != nil {
		return fmt.Errorf("failed to resolve publisher of feed %s: %w", feed.UUID, err)
	}

	if publisher == nil {
		return fmt.Errorf("feed %s references unknown publisher %d", feed.UUID, feed.PublisherID)
	}

	subscriptions, err := d.registry.ListTableObjectsByProperty(ctx, dav.ListTableObjectsParams{
		AppID:         d.appID,
		TableName:     notificationTableName,
		PropertyName:  publisherPropertyName,
		PropertyValue: publisher.UUID,
		ExactMatch:    true,
		Limit:         registryPageLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list subscriptions of publisher %s: %w", publisher.UUID, err)
	}

	if len(subscriptions.Items) > 0 {
		follows, err := d.followRecordsByUser(ctx, publisher.UUID)
		if err != nil {
			return err
		}

		articleURL := fmt.Sprintf("%s/article/%s", d.websiteBaseURL, article.Slug)

		for _, subscription := range subscriptions.Items {
			follow, ok := follows[subscription.UserID]
			if !ok {
				continue
			}

			if slices.Contains(excludedFeeds(follow), feed.UUID) {
				continue
			}

			params := dav.CreateNotificationParams{
				UserID:   subscription.UserID,
				AppID:    d.appID,
				Time:     time.Now().Unix(),
				Interval: 0,
				Title:    textutil.Truncate(article.Title, titleMaxLength),
				Body:     textutil.Truncate(article.Description, bodyMaxLength),
				Icon:     publisher.LogoURL,
				Href:     articleURL,
			}

			if article.ImageURL != nil {
				params.Image = *article.ImageURL
			}

			if err := d.registry.CreateNotification(ctx, params); err != nil {
				d.logger.ErrorContext(ctx, "failed to create notification",
					"userId", subscription.UserID,
					"article", article.UUID,
					"error", err,
				)
			}
		}
	}

	if feed.ChannelID != nil && *feed.ChannelID != "" && d.messenger != nil {
		text := fmt.Sprintf("<a href=\"%s/article/%s\">%s</a>",
			d.websiteBaseURL, article.Slug, article.Title)

		if err := d.messenger.SendChannelMessage(ctx, *feed.ChannelID, text); err != nil {
			d.logger.ErrorContext(ctx, "failed to send channel message",
				"channelId", *feed.ChannelID,
				"article", article.UUID,
				"error", err,
			)
		}
	}

	return nil
}

// followRecordsByUser fetches all follow records for the publisher in one
// page and indexes them by user.
func (d *Dispatcher) followRecordsByUser(ctx context.Context, publisherUUID string) (map[int64]dav.TableObject, error) {
	list, err := d.registry.ListTableObjectsByProperty(ctx, dav.ListTableObjectsParams{
		AppID:         d.appID,
		TableName:     followTableName,
		PropertyName:  publisherPropertyName,
		PropertyValue: publisherUUID,
		ExactMatch:    true,
		Limit:         registryPageLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list follows of publisher %s: %w", publisherUUID, err)
	}

	follows := make(map[int64]dav.TableObject, len(list.Items))

	for _, item := range list.Items {
		follows[item.UserID] = item
	}

	return follows, nil
}

// excludedFeeds parses the follow record's excluded-feeds property, a JSON
// array of feed UUIDs. A missing or malformed property excludes nothing.
func excludedFeeds(follow dav.TableObject) []string {
	raw, ok := follow.Properties[excludedFeedsPropertyName]
	if !ok || raw == "" {
		return nil
	}

	var uuids []string
	if err := json.Unmarshal([]byte(raw), &uuids); err != nil {
		return nil
	}

	return uuids
}
