// Package auth guards price table edits: a shared passcode for the CLI and
// short-lived HS256 tokens for the HTTP API.
package auth

import (
	"crypto/subtle"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"timbercalc/internal/errors"
)

// RoleAdmin may edit the price table
const RoleAdmin = "admin"

// Claims represents JWT claims used by this service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// CheckPasscode compares the given passcode with the configured one in
// constant time. An empty configured passcode disables editing.
func CheckPasscode(configured, given string) error {
	if configured == "" {
		return errors.Unauthorized("Editing disabled.")
	}
	if given == "" {
		return errors.Unauthorized("Please enter the passcode to make changes.")
	}
	if subtle.ConstantTimeCompare([]byte(configured), []byte(given)) != 1 {
		return errors.Unauthorized("Incorrect Passcode. Cannot edit.")
	}
	return nil
}

// IssueToken signs an admin token for subject valid for ttl.
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errors.Config("auth: empty secret", nil)
	}
	now := time.Now().UTC()
	expires := now.Add(ttl)
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, errors.Internal("sign token", err)
	}
	return signed, expires, nil
}

// ParseToken validates an admin token and returns its claims.
func ParseToken(secret []byte, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.Unauthorized("auth: empty token")
	}
	if len(secret) == 0 {
		return nil, errors.Unauthorized("auth: empty secret")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Unauthorized("auth: invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.TypeUnauthorized, "auth: invalid token", err)
	}
	if !token.Valid {
		return nil, errors.Unauthorized("auth: invalid token")
	}
	if claims.Role != RoleAdmin {
		return nil, errors.Unauthorized("auth: invalid role")
	}
	return claims, nil
}
