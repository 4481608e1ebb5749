package auth

import (
	"errors"
	"fmt"

	"github.com/BradenHooton/irdebg/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAudience is the audience the provider puts in user access tokens
const DefaultAudience = "authenticated"

// TokenVerifier validates access tokens issued by the identity provider.
// Tokens are HS256-signed with the project's JWT secret.
type TokenVerifier struct {
	secret   []byte
	audience string
}

// NewTokenVerifier creates a new TokenVerifier. An empty audience disables the aud check.
func NewTokenVerifier(secret, audience string) *TokenVerifier {
	return &TokenVerifier{
		secret:   []byte(secret),
		audience: audience,
	}
}

// Verify parses tokenString and returns its claims
func (tv *TokenVerifier) Verify(tokenString string) (*models.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if tv.audience != "" {
		opts = append(opts, jwt.WithAudience(tv.audience))
	}

	claims := &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tv.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}

	return claims, nil
}
