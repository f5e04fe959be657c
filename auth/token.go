// Package auth validates the access tokens issued by the external auth
// subsystem. Only validation lives here; issuance is out of scope.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
}

// NewTokens builds a validator around the shared HS256 secret, loaded from
// configuration by the caller.
func NewTokens(secret string) Tokens {
	return Tokens{secret: []byte(secret)}
}

// Validate parses and validates the signature and expiration of a JWT string
// and returns the authenticated user id.
func (t Tokens) Validate(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return uuid.Nil, jwt.ErrSignatureInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user_id claim: %w", err)
	}
	return userID, nil
}
