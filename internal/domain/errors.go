package domain

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

// Sentinels shared by the stores and services. The HTTP layer maps each
// one to a status code and an error code string equal to its text.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserDisabled       = errors.New("user_disabled")
	ErrRateLimited        = errors.New("rate_limited")
	ErrUnavailable        = errors.New("unavailable")
	ErrValidation         = errors.New("validation")

	// Uniqueness conflicts.
	ErrUsernameTaken         = errors.New("username_taken")
	ErrEmailTaken            = errors.New("email_taken")
	ErrFriendshipExists      = errors.New("friendship_exists")
	ErrExternalAccountExists = errors.New("external_account_exists")
)

// ValidationError carries per-field messages; it matches ErrValidation
// with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, k := range slices.Sorted(maps.Keys(e.Fields)) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k + ": " + e.Fields[k])
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}

// Invalid is a ValidationError for a single field.
func Invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
