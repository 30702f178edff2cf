package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// NormalizeString trims whitespace and normalizes string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// NormalizeEmail normalizes email addresses (lowercase and trim)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail performs basic email validation
func IsValidEmail(email string) bool {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return false
	}

	// Very basic email validation - contains @ and domain
	parts := strings.Split(normalized, "@")
	if len(parts) != 2 {
		return false
	}

	local, domain := parts[0], parts[1]
	return len(local) > 0 && len(domain) > 2 && strings.Contains(domain, ".")
}

var urlPattern = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)

// CountURLs counts URL-like substrings in free text
func CountURLs(s string) int {
	return len(urlPattern.FindAllString(s, -1))
}

// DisplayName reduces a full name to first name plus last initial,
// e.g. "Jane Doe" -> "Jane D."
func DisplayName(name string) string {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "Anonymous"
	case 1:
		return fields[0]
	}

	last := []rune(fields[len(fields)-1])
	initial := string(unicode.ToUpper(last[0]))
	return fields[0] + " " + initial + "."
}
