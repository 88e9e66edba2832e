package utils

import (
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// NormalizeEmail trims and lowercases an address. Invitations and profiles
// are matched on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidSparkID accepts lowercase slugs such as "short-saver".
func IsValidSparkID(sparkID string) bool {
	return sparkIDRegex.MatchString(sparkID)
}

var sparkIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9\-_]{0,62}$`)
