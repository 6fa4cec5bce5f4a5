// Package auth issues and verifies platform credentials: bcrypt password
// hashes and HS256 JWT access/refresh tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned when a token fails signature, expiry, or
// claim checks.
var ErrInvalidToken = errors.New("auth: invalid token")

// TokenKind distinguishes access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Issuer mints and verifies signed tokens for user sessions.
type Issuer struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewIssuer builds a token issuer. Zero durations fall back to 30 minutes
// for access tokens and 7 days for refresh tokens.
func NewIssuer(secret string, accessExpiry, refreshExpiry time.Duration) *Issuer {
	if accessExpiry <= 0 {
		accessExpiry = 30 * time.Minute
	}
	if refreshExpiry <= 0 {
		refreshExpiry = 7 * 24 * time.Hour
	}
	return &Issuer{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// AccessExpiry reports the access token lifetime.
func (i *Issuer) AccessExpiry() time.Duration {
	return i.accessExpiry
}

type claims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// IssueAccess mints an access token with the user ID as subject.
func (i *Issuer) IssueAccess(userID string) (string, error) {
	return i.issue(userID, TokenAccess, i.accessExpiry)
}

// IssueRefresh mints a refresh token with the user ID as subject.
func (i *Issuer) IssueRefresh(userID string) (string, error) {
	return i.issue(userID, TokenRefresh, i.refreshExpiry)
}

func (i *Issuer) issue(userID string, kind TokenKind, expiry time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify validates a token of the expected kind and returns its subject
// (the user ID).
func (i *Issuer) Verify(tokenString string, kind TokenKind) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if c.Kind != kind || c.Subject == "" {
		return "", ErrInvalidToken
	}
	return c.Subject, nil
}

// HashPassword derives a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePasswordStrength applies the platform's minimum password rules.
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must mix upper case, lower case, and digits")
	}
	return nil
}
