// Package sanitize provides sanitization for user-supplied catalog text.
// Uses bluemonday to strip every HTML element so stored names, types and
// abilities are always plain text, and restricts image references to
// http(s) URLs.
package sanitize

import (
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday policy for plain-text fields.
// Initialized once via sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all markup from input and trims surrounding whitespace. The
// result is HTML-escaped ("&" becomes "&amp;") and safe to render as-is.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(getPolicy().Sanitize(input))
}

// ImageURL returns input if it is an absolute http or https URL, and ""
// otherwise, so javascript: and data: references are never stored.
func ImageURL(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.String()
	default:
		return ""
	}
}
