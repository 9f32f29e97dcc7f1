// Package auth issues and verifies session tokens, hashes passwords, and
// provides the HTTP middleware that resolves a request's identity.
//
// SESSION FLOW:
//  1. POST /api/auth/login verifies the password and issues a JWT.
//  2. The JWT is set as the httpOnly "token" cookie and also returned in
//     the response body so non-browser clients can send it as a bearer.
//  3. RequireAuth reads the cookie (or the Authorization header), verifies
//     the JWT, and stores the resolved Identity in the request context.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"42","email":"ada@example.com","iss":"halfbake","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "halfbake"

	// DefaultTokenLifetime applies when no lifetime is configured.
	DefaultTokenLifetime = 7 * 24 * time.Hour

	minSecretLength = 16
)

// ErrInvalidToken is returned by Verify for every rejected token. The cause
// is wrapped for logging but never shown to clients.
var ErrInvalidToken = errors.New("auth: invalid token")

// Identity is the subject a verified token asserts.
type Identity struct {
	ID    int64
	Email string
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used for both signing and verifying, the token
// lifetime, and a clock that tests can replace.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A non-positive lifetime selects DefaultTokenLifetime.
func NewTokenService(secret string, lifetime time.Duration) (*TokenService, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", minSecretLength)
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenService{
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// Lifetime is how long issued tokens stay valid. The login handler uses it
// for the cookie Max-Age so cookie and token expire together.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// claims is the JWT payload: the registered claims plus the user's email.
// The subject carries the numeric user ID as a decimal string.
type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issue creates and signs a token for the given user.
func (s *TokenService) Issue(userID int64, email string) (string, error) {
	return s.issueAt(userID, email, s.now(), s.lifetime)
}

func (s *TokenService) issueAt(userID int64, email string, at time.Time, lifetime time.Duration) (string, error) {
	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(lifetime)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a token and returns the identity it asserts.
//
// VALIDATION CHECKS:
//   - Signature is valid and the algorithm is HS256 (no "none" or RS/HS confusion)
//   - Issuer is "halfbake"
//   - exp is present and in the future (per the service clock)
//   - sub is a positive integer and email is non-empty
func (s *TokenService) Verify(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}

	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, fmt.Errorf("%w: malformed subject %q", ErrInvalidToken, c.Subject)
	}
	if c.Email == "" {
		return Identity{}, fmt.Errorf("%w: missing email claim", ErrInvalidToken)
	}

	return Identity{ID: id, Email: c.Email}, nil
}
