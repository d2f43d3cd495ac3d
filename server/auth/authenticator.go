// Package auth resolves bearer credentials to a user identity.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	apperrors "github.com/hrygo/vectornotes/internal/errors"
)

const (
	// DefaultAudience is the audience claim required on access tokens.
	DefaultAudience = "authenticated"
	// DevSecret signs access tokens in dev mode when no secret is configured.
	DevSecret = "vectornotes-dev-secret"

	bearerPrefix = "Bearer "
)

// Claims are the access token claims. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 access tokens.
type Authenticator struct {
	secret   []byte
	audience string
	parser   *jwt.Parser
}

// NewAuthenticator creates an authenticator for tokens signed with secret.
func NewAuthenticator(secret, audience string) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("auth secret is required")
	}
	if audience == "" {
		audience = DefaultAudience
	}
	return &Authenticator{
		secret:   []byte(secret),
		audience: audience,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}, nil
}

// Authenticate validates the Authorization header value and returns the token claims.
func (a *Authenticator) Authenticate(_ context.Context, authHeader string) (*Claims, error) {
	token, ok := extractBearerToken(authHeader)
	if !ok {
		return nil, apperrors.Unauthorized("missing bearer token")
	}

	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid access token")
	}
	if claims.Subject == "" {
		return nil, apperrors.Unauthorized("access token has no subject")
	}
	return claims, nil
}

// GenerateToken signs an access token for userID valid for ttl.
func (a *Authenticator) GenerateToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{a.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return token, nil
}

func extractBearerToken(authHeader string) (string, bool) {
	if len(authHeader) < len(bearerPrefix) || !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	return token, token != ""
}
