package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dav-apps/storyline-api/cache"
	"github.com/dav-apps/storyline-api/domain"
	"github.com/dav-apps/storyline-api/service"
)

type createFeedRequest struct {
	PublisherUUID string `json:"publisherUuid"`
	URL           string `json:"url"`
}

// RetrieveFeed serves a single feed by uuid.
func (h *Handler) RetrieveFeed(c echo.Context) error {
	feed, err := h.retrieveFeed(c.Request().Context(), cache.Request{
		Args:   []cache.Arg{{Name: "uuid", Value: c.Param("uuid")}},
		Caller: h.caller(c),
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, feed)
}

// CreateFeed registers a new feed under a publisher. The feed is parsed
// before creation; its metadata must pass the same validations as manual
// input. Administrators only.
func (h *Handler) CreateFeed(c echo.Context) error {
	if apiErr := h.requireAdmin(c); apiErr != nil {
		return respondAPIError(c, apiErr)
	}

	var req createFeedRequest
	if err := c.Bind(&req); err != nil {
		return respondAPIError(c, domain.ErrUnexpected)
	}

	ctx := c.Request().Context()

	publisher, err := h.store.FindPublisherByUUID(ctx, req.PublisherUUID)
	if err != nil {
		return h.respondError(c, err)
	}

	if publisher == nil {
		return respondAPIError(c, domain.ErrPublisherDoesNotExist)
	}

	if err := domain.NewValidationError(service.ValidateURL(req.URL)); err != nil {
		return h.respondError(c, err)
	}

	parsed, err := h.parser.Parse(ctx, req.URL)
	if err != nil {
		// A URL that cannot be fetched or parsed as a feed fails the same
		// way as a malformed one.
		if errors.Is(err, domain.ErrFeedUnreachable) || errors.Is(err, domain.ErrFeedParse) {
			return h.respondError(c, domain.NewValidationError(domain.ValidationURLInvalid))
		}

		return h.respondError(c, err)
	}

	language := strings.ToLower(parsed.Language)
	if language == "" {
		language = "en"
	}

	if err := domain.NewValidationError(
		service.ValidateNameLength(parsed.Title),
		service.ValidateDescriptionLength(parsed.Description),
		service.ValidateLanguage(language),
	); err != nil {
		return h.respondError(c, err)
	}

	feed := &domain.Feed{
		UUID:        uuid.NewString(),
		PublisherID: publisher.ID,
		URL:         req.URL,
		Name:        parsed.Title,
		Description: parsed.Description,
		Language:    language,
	}

	if err := h.store.CreateFeed(ctx, feed); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusCreated, toFeedResponse(feed))
}
