package lookup

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// expiryPatterns are checked in priority order; earlier labels win.
var expiryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)Registry Expiry Date:[ \t]*(.+)$`),
	regexp.MustCompile(`(?im)Registrar Registration Expiration Date:[ \t]*(.+)$`),
	regexp.MustCompile(`(?im)Expiration Date:[ \t]*(.+)$`),
	regexp.MustCompile(`(?im)Expires On:[ \t]*(.+)$`),
	regexp.MustCompile(`(?im)Expiry Date:[ \t]*(.+)$`),
}

var rateLimitMarkers = []string{
	"rate limit",
	"limit exceeded",
	"too many requests",
	"query rate",
	"exceeded the maximum",
	"try again later",
}

// IsRateLimited reports whether a WHOIS response is a throttling notice
// rather than registration data.
func IsRateLimited(raw string) bool {
	lower := strings.ToLower(raw)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ExtractExpiry scans a WHOIS response for the expiration date.
// Patterns are tried in order; within a pattern, matches are tried top to bottom.
func ExtractExpiry(raw string) (time.Time, bool) {
	for _, re := range expiryPatterns {
		for _, m := range re.FindAllStringSubmatch(raw, -1) {
			if t, err := ParseDate(m[1]); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// layouts seen in registry responses, tried before the generic parser.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"02-Jan-2006 15:04:05 MST",
	"2006.01.02",
	"2006.01.02 15:04:05",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"02.01.2006",
	"02.01.2006 15:04:05",
	"January 2 2006",
	"Mon Jan 2 15:04:05 MST 2006",
}

// ParseDate parses a registry date value. Values without a zone are UTC.
func ParseDate(value string) (time.Time, error) {
	value = cleanValue(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseIn(value, time.UTC)
}

// trailingNote matches comments some registries append,
// e.g. "2025-03-01 (YYYY-MM-DD)".
var trailingNote = regexp.MustCompile(`\s*\([^0-9()]*\)$`)

func cleanValue(value string) string {
	value = strings.TrimSpace(value)
	return strings.TrimSpace(trailingNote.ReplaceAllString(value, ""))
}
