// Package auth provides token issuing, password hashing and the HTTP
// authentication middleware for the Foodgram API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client posts email + password to /api/auth/token/login/
//  2. Server verifies the bcrypt hash, issues a signed JWT and records its
//     token id ("jti") in the auth_tokens table
//  3. Client sends "Authorization: Token <jwt>" on every call
//  4. Middleware verifies the signature and expiry, then asks the service
//     whether the jti is still recorded, and puts the user id in the context
//  5. Logout deletes the jti row, so the token stops working immediately
//
// WHY JWT PLUS A TOKEN TABLE?
// A bare JWT cannot be revoked before it expires, but Foodgram clients expect
// logout to end the session. The signature still rejects forged tokens
// without touching the database; the table lookup only runs for tokens that
// were genuinely issued by this server.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	issuer = "foodgram"

	// DefaultTokenTTL is how long a login stays valid when no TTL is configured.
	DefaultTokenTTL = 30 * 24 * time.Hour
)

// TokenService signs and verifies access tokens with an HMAC secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. The secret must be at least 16
// characters; a ttl of zero selects DefaultTokenTTL.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. "sub" holds the user id in decimal and "jti"
// the token id recorded in auth_tokens.
type claims struct {
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed token together with the metadata the caller
// needs to record it.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Claims is what a valid token says about its bearer.
type Claims struct {
	UserID  int64
	TokenID string
}

// Issue signs a new token for userID with the configured lifetime.
func (s *TokenService) Issue(userID int64) (*IssuedToken, error) {
	return s.IssueWithDuration(userID, s.ttl)
}

// IssueWithDuration signs a token with an explicit lifetime. Tests use a
// negative duration to produce already-expired tokens.
func (s *TokenService) IssueWithDuration(userID int64, d time.Duration) (*IssuedToken, error) {
	now := time.Now()
	id := xid.New().String()
	expires := now.Add(d)

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return &IssuedToken{Token: signed, ID: id, ExpiresAt: expires}, nil
}

// Validate parses tokenStr, verifies its signature, issuer and expiry, and
// returns the user and token ids it carries. It does not check revocation.
//
// SECURITY: WithValidMethods pins the algorithm to HS256. Without it an
// attacker could send a token with "alg": "none" and no signature.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("auth: token has no valid subject")
	}
	if c.ID == "" {
		return nil, fmt.Errorf("auth: token has no id")
	}

	return &Claims{UserID: userID, TokenID: c.ID}, nil
}
