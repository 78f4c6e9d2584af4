package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

var ErrInvalidIDToken = errors.New("invalid id token")

// ExternalTokenClaims is the identity a provider vouches for. Email is
// lowercased and may be empty.
type ExternalTokenClaims struct {
	Issuer  string
	Subject string
	Email   string
}

// IDTokenVerifier checks a third-party ID token and returns its identity claims.
type IDTokenVerifier interface {
	Verify(ctx context.Context, token string) (*ExternalTokenClaims, error)
}

func invalidToken(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidIDToken, fmt.Sprintf(format, args...))
}

// checkInputs rejects an empty token before any network call and reports a
// missing audience as a configuration error, not a bad token.
func checkInputs(token, audience, audienceName string) error {
	if strings.TrimSpace(token) == "" {
		return invalidToken("missing id token")
	}
	if strings.TrimSpace(audience) == "" {
		return fmt.Errorf("missing %s", audienceName)
	}
	return nil
}

func claimsFor(issuer, subject, email string) *ExternalTokenClaims {
	return &ExternalTokenClaims{
		Issuer:  issuer,
		Subject: subject,
		Email:   strings.ToLower(strings.TrimSpace(email)),
	}
}

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// GoogleVerifier validates Google Sign-In tokens issued for ClientID.
type GoogleVerifier struct {
	ClientID string

	// validate defaults to idtoken.Validate.
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func (v GoogleVerifier) Verify(ctx context.Context, token string) (*ExternalTokenClaims, error) {
	if err := checkInputs(token, v.ClientID, "google client id"); err != nil {
		return nil, err
	}
	validate := v.validate
	if validate == nil {
		validate = idtoken.Validate
	}
	payload, err := validate(ctx, token, v.ClientID)
	if err != nil {
		return nil, invalidToken("%v", err)
	}
	if !slices.Contains(googleIssuers, payload.Issuer) {
		return nil, invalidToken("unexpected issuer %s", payload.Issuer)
	}
	email, _ := payload.Claims["email"].(string)
	return claimsFor(payload.Issuer, payload.Subject, email), nil
}

const appleIssuer = "https://appleid.apple.com"

// AppleVerifier validates Sign in with Apple tokens for ServiceID.
type AppleVerifier struct {
	ServiceID string
}

func (v AppleVerifier) Verify(ctx context.Context, token string) (*ExternalTokenClaims, error) {
	if err := checkInputs(token, v.ServiceID, "apple service id"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tok, err := validator.NewClient().VerifyIdToken(v.ServiceID, token)
	if err != nil {
		return nil, invalidToken("%v", err)
	}
	if tok.Iss != appleIssuer {
		return nil, invalidToken("unexpected issuer %s", tok.Iss)
	}
	return claimsFor(tok.Iss, tok.Sub, tok.Email), nil
}
