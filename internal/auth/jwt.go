// Package auth provides JWT issuing/verification, bcrypt password hashing,
// and the HTTP middleware that turns a Bearer token into a request identity.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /auth/register or /auth/login checks the credentials
//  2. The server issues a signed JWT valid for 24 hours
//  3. The client sends it back on every protected call:
//     Authorization: Bearer <token>
//  4. RequireAuth verifies it and stores the Identity in the request context
//
// Tokens are stateless: nothing is stored server-side, so there is no way to
// revoke one before it expires. Logging out means the client forgets it.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"userId":7,"username":"alice","email":"...","iat":...,"exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

// TokenLifetime is fixed. There is no refresh token: when it runs out the
// user logs in again.
const TokenLifetime = 24 * time.Hour

const issuer = "recipebox"

// Verification failures come in exactly two kinds so callers can tell the
// user "log in again" apart from "this token is broken".
var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// Identity is what a token proves about its bearer.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens. The same
// secret must be used for both operations.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
//
// An empty or short secret is an error rather than a warning: the server must
// not start if it would issue forgeable tokens.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("auth: JWT secret is required")
	}
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload: the identity fields next to the registered
// claims (sub, iss, iat, exp, jti).
type claims struct {
	Identity
	jwt.RegisteredClaims
}

// Issue creates and signs a token for id that expires after TokenLifetime.
func (s *TokenService) Issue(id Identity) (string, error) {
	return s.IssueWithDuration(id, TokenLifetime)
}

// IssueWithDuration creates a token with a custom lifetime.
// Used in tests (a negative d yields an already expired token).
func (s *TokenService) IssueWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			ID:        xid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Verify parses and verifies a token and returns the identity inside it.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid
//   - Algorithm is HS256 (prevents "alg: none" and algorithm confusion)
//   - Token is not expired, and has an expiry at all
//   - Issuer is "recipebox"
//
// The returned error always matches ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) Verify(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.UserID <= 0 {
		return nil, fmt.Errorf("%w: token has no user id", ErrTokenInvalid)
	}

	id := c.Identity
	return &id, nil
}
