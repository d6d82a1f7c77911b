// Package domain holds the entities and error taxonomy shared across layers.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors checked with errors.Is().
var (
	// ErrArticleExists indicates a concurrent attempt created an article
	// with the same URL first. Callers treat this as success-by-idempotence.
	ErrArticleExists = errors.New("article already exists")

	// ErrFeedUnreachable indicates the feed endpoint could not be fetched.
	ErrFeedUnreachable = errors.New("feed unreachable")

	// ErrFeedParse indicates the feed was fetched but is not valid RSS/Atom.
	ErrFeedParse = errors.New("feed not parseable")

	// ErrSessionExpired indicates the identity service rejected the session.
	ErrSessionExpired = errors.New("session expired")

	// ErrCacheMiss indicates the requested key is not cached.
	ErrCacheMiss = errors.New("cache miss")
)

// APIError is a machine-readable error surfaced to API callers.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	ErrUnexpected = &APIError{
		Code:    "UNEXPECTED_ERROR",
		Message: "Unexpected error",
		Status:  500,
	}
	ErrNotAuthenticated = &APIError{
		Code:    "NOT_AUTHENTICATED",
		Message: "You are not authenticated",
		Status:  401,
	}
	ErrActionNotAllowed = &APIError{
		Code:    "ACTION_NOT_ALLOWED",
		Message: "Action not allowed",
		Status:  403,
	}
	ErrSessionExpiredAPI = &APIError{
		Code:    "SESSION_EXPIRED",
		Message: "Session has expired and must be renewed",
		Status:  403,
	}
	ErrPublisherDoesNotExist = &APIError{
		Code:    "PUBLISHER_DOES_NOT_EXIST",
		Message: "Publisher does not exist",
		Status:  404,
	}
	ErrArticleDoesNotExist = &APIError{
		Code:    "ARTICLE_DOES_NOT_EXIST",
		Message: "Article does not exist",
		Status:  404,
	}
	ErrFeedDoesNotExist = &APIError{
		Code:    "FEED_DOES_NOT_EXIST",
		Message: "Feed does not exist",
		Status:  404,
	}
)

// Validation error codes. A failed mutation reports every failed field,
// not just the first.
const (
	ValidationNameTooShort        = "NAME_TOO_SHORT"
	ValidationNameTooLong         = "NAME_TOO_LONG"
	ValidationDescriptionTooShort = "DESCRIPTION_TOO_SHORT"
	ValidationDescriptionTooLong  = "DESCRIPTION_TOO_LONG"
	ValidationURLInvalid          = "URL_INVALID"
	ValidationLogoURLInvalid      = "LOGO_URL_INVALID"
	ValidationLanguageInvalid     = "LANGUAGE_INVALID"
)

// ValidationError carries the full list of failed field codes.
type ValidationError struct {
	Codes []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Codes, ", ")
}

// NewValidationError filters empty codes and returns nil when nothing failed.
func NewValidationError(codes ...string) error {
	filtered := make([]string, 0, len(codes))

	for _, code := range codes {
		if code != "" {
			filtered = append(filtered, code)
		}
	}

	if len(filtered) == 0 {
		return nil
	}

	return &ValidationError{Codes: filtered}
}
