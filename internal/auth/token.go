package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSubject is the claim payload carried inside an access token.
// The nested "subject" shape is the platform's token wire format.
type TokenSubject struct {
	UserID string   `json:"user_id"`
	Scopes []string `json:"scopes"`
}

type tokenClaims struct {
	Subject TokenSubject `json:"subject"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 access tokens.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates a TokenIssuer with the given signing secret and
// token lifetime.
func NewTokenIssuer(secret string, lifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Issue creates a signed access token for the user with the given scopes.
func (i *TokenIssuer) Issue(userID string, scopes []string) (string, error) {
	now := i.now()
	claims := tokenClaims{
		Subject: TokenSubject{UserID: userID, Scopes: scopes},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an access token. Any failure (bad signature,
// wrong algorithm, expiry, missing subject) yields ErrUnauthenticated so
// callers surface a uniform auth challenge.
func (i *TokenIssuer) Verify(tokenString string) (*TokenSubject, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	if claims.Subject.UserID == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}

	return &claims.Subject, nil
}
