package handler

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dav-apps/storyline-api/cache"
	"github.com/dav-apps/storyline-api/domain"
	"github.com/dav-apps/storyline-api/service"
	"github.com/dav-apps/storyline-api/utils/textutil"
)

type createPublisherRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	LogoURL     string `json:"logoUrl"`
}

// RetrievePublisher serves a single publisher by uuid.
func (h *Handler) RetrievePublisher(c echo.Context) error {
	publisher, err := h.retrievePublisher(c.Request().Context(), cache.Request{
		Args:   []cache.Arg{{Name: "uuid", Value: c.Param("uuid")}},
		Caller: h.caller(c),
	})
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusOK, publisher)
}

// CreatePublisher registers a new publisher. Administrators only; every
// failed field is reported, not just the first.
func (h *Handler) CreatePublisher(c echo.Context) error {
	if apiErr := h.requireAdmin(c); apiErr != nil {
		return respondAPIError(c, apiErr)
	}

	var req createPublisherRequest
	if err := c.Bind(&req); err != nil {
		return respondAPIError(c, domain.ErrUnexpected)
	}

	if err := domain.NewValidationError(
		service.ValidateNameLength(req.Name),
		service.ValidateDescriptionLength(req.Description),
		service.ValidateURL(req.URL),
		service.ValidateLogoURL(req.LogoURL),
	); err != nil {
		return h.respondError(c, err)
	}

	publisherUUID := uuid.NewString()

	publisher := &domain.Publisher{
		UUID:        publisherUUID,
		Slug:        fmt.Sprintf("%s-%s", textutil.Slugify(req.Name), publisherUUID),
		Name:        req.Name,
		Description: req.Description,
		URL:         req.URL,
		LogoURL:     req.LogoURL,
	}

	if err := h.store.CreatePublisher(c.Request().Context(), publisher); err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusCreated, toPublisherResponse(publisher))
}
