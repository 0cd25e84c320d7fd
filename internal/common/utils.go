package common

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

	// Must start with http:// or https://, have a plain host with an
	// optional port, and may carry a path.
	urlPattern = regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9](:[0-9]+)?(/[^\s]*)?$`)
)

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste issues.
// Removes whitespace, trailing punctuation and markdown artifacts.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// [text](url) -> url
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	// The trailing "/" of a template like https://host/{id}/ is kept.
	trailingChars := []string{",", ".", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}

	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// ValidateURL checks that rawURL is usable as-is: an http(s) URL with a plain
// host and no surrounding punctuation. No cleanup is applied.
func ValidateURL(rawURL string) error {
	if rawURL == "" || strings.ContainsAny(rawURL, " \t\n") || !urlPattern.MatchString(rawURL) {
		return fmt.Errorf("invalid URL %q", rawURL)
	}
	if SanitizeURL(rawURL) != rawURL {
		return fmt.Errorf("invalid URL %q: stray leading or trailing characters", rawURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("invalid URL %q: want an http(s) URL with a host", rawURL)
	}

	// Example: "https://example.com{}" should fail
	if strings.ContainsAny(parsed.Host, "{}[]<>\"'") {
		return fmt.Errorf("invalid URL %q: bad characters in host", rawURL)
	}
	return nil
}
