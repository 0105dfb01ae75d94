package fetcher

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/jonesrussell/venuescout/internal/domain"
)

// placeholderPatterns match pages that exist but carry no venue content.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)coming\s+soon`),
	regexp.MustCompile(`(?i)under\s+construction`),
	regexp.MustCompile(`(?i)maintenance\s+mode`),
	regexp.MustCompile(`(?i)site\s+is\s+being\s+built`),
}

// ValidMime reports whether the Content-Type header names an HTML
// document.
func ValidMime(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	return ct == "text/html" || ct == "application/xhtml+xml"
}

// QualityReason applies the page quality gate. It returns "" for an
// acceptable page, or the reason code that disqualifies it.
func QualityReason(status int, contentType, cleanedText string, minVisibleChars int) string {
	if status != http.StatusOK {
		if status == http.StatusTooManyRequests {
			return domain.ReasonHTTP429
		}
		if status >= 500 {
			return domain.ReasonHTTP5xx
		}
		return domain.ReasonNon200Status
	}

	if !ValidMime(contentType) {
		return domain.ReasonInvalidMime
	}

	if len(strings.TrimSpace(cleanedText)) < minVisibleChars {
		return domain.ReasonThinContent
	}

	for _, p := range placeholderPatterns {
		if p.MatchString(cleanedText) {
			return domain.ReasonThinContent
		}
	}

	return ""
}
