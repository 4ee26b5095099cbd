package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourorg/snkrshop/internal/config"
)

var (
	// ErrMalformedToken means the payload could not be decoded at all.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidToken means the signature or claims did not check out.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken means the token was valid once but its expiry passed.
	ErrExpiredToken = errors.New("token expired")
)

// Issue signs a session token for the given user id. The token carries the
// user id as subject plus issued-at and expiry claims; TTL and secret come
// from AppConfig.
func Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(config.AppConfig.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(config.AppConfig.JWTSecret)
	return signed, expires, err
}

// Verify parses a signed token and returns the embedded user id.
func Verify(tokenString string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return config.AppConfig.JWTSecret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", ErrExpiredToken
		default:
			return "", ErrInvalidToken
		}
	}

	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
