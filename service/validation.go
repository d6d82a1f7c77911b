// Package service holds the field validations for administrative
// mutations. Each validator returns a machine-readable code or an empty
// string; callers collect every code before failing.
package service

import (
	"regexp"
	"slices"

	"github.com/dav-apps/storyline-api/domain"
)

var urlRegex = regexp.MustCompile(`^(https?://)?(([\w.-]+(\.[\w.-]{2,4})+)|(localhost:[0-9]{3,4}))`)

var allowedLanguages = []string{"en", "en-us", "en-gb", "de", "de-de", "de-at", "de-ch"}

func ValidateNameLength(name string) string {
	if len([]rune(name)) < 2 {
		return domain.ValidationNameTooShort
	}

	if len([]rune(name)) > 50 {
		return domain.ValidationNameTooLong
	}

	return ""
}

func ValidateDescriptionLength(description string) string {
	if len([]rune(description)) < 2 {
		return domain.ValidationDescriptionTooShort
	}

	if len([]rune(description)) > 400 {
		return domain.ValidationDescriptionTooLong
	}

	return ""
}

func ValidateURL(url string) string {
	if url == "" || !urlRegex.MatchString(url) {
		return domain.ValidationURLInvalid
	}

	return ""
}

func ValidateLogoURL(logoURL string) string {
	if logoURL == "" || !urlRegex.MatchString(logoURL) {
		return domain.ValidationLogoURLInvalid
	}

	return ""
}

func ValidateLanguage(language string) string {
	if !slices.Contains(allowedLanguages, language) {
		return domain.ValidationLanguageInvalid
	}

	return ""
}
