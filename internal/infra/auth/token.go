// Package auth signs and verifies the seller tokens presented during the
// websocket handshake. Tokens are HS256 JWTs with the seller ID as subject.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SatoshiJr1/liveshop-link-sub003/internal/domain"
)

// Tokens issues and verifies seller connection tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

// New creates a token service with the given HMAC secret and token lifetime.
func New(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for sellerID.
func (t *Tokens) Sign(sellerID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sellerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns the seller ID it was issued for.
func (t *Tokens) Verify(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", domain.ErrTokenMissing
	}
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", domain.ErrAuthFailed, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", domain.ErrAuthFailed
	}
	return claims.Subject, nil
}
