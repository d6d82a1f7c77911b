package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dav-apps/storyline-api/domain"
)

type errorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func respondAPIError(c echo.Context, apiErr *domain.APIError) error {
	return c.JSON(apiErr.Status, errorResponse{
		Code:    apiErr.Code,
		Message: apiErr.Message,
	})
}

func respondValidationError(c echo.Context, validationErr *domain.ValidationError) error {
	return c.JSON(http.StatusBadRequest, errorResponse{
		Code:    "VALIDATION_FAILED",
		Message: "Validation failed",
		Errors:  validationErr.Codes,
	})
}

// respondError maps any error to its API response. Unknown errors are
// logged by the caller and surface as UNEXPECTED_ERROR.
func (h *Handler) respondError(c echo.Context, err error) error {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return respondAPIError(c, apiErr)
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return respondValidationError(c, validationErr)
	}

	h.logger.ErrorContext(c.Request().Context(), "request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)

	return respondAPIError(c, domain.ErrUnexpected)
}
