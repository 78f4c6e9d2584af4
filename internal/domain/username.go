package domain

import "strings"

const (
	UsernameMinLen = 3
	UsernameMaxLen = 24
)

// ValidUsername reports whether s is 3-24 characters of [A-Za-z0-9_].
func ValidUsername(s string) bool {
	if len(s) < UsernameMinLen || len(s) > UsernameMaxLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// UsernameKey is the case-insensitive key a username is claimed under.
func UsernameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
