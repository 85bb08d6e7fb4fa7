package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// Using a package-private type prevents collisions: only THIS package can
// create a key of type contextKey, so only this package can read or write
// the identity stored in the context.
type contextKey string

const identityKey contextKey = "identity"

// Messages returned with 401. Kept as constants so handlers and tests agree.
const (
	MsgNoToken      = "Access denied. No token provided."
	MsgTokenExpired = "Token has expired. Please log in again."
	MsgTokenInvalid = "Invalid token. Please log in again."
)

// Verifier is the part of TokenService the middleware needs.
type Verifier interface {
	Verify(token string) (*Identity, error)
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads "Authorization: Bearer <token>", verifies the token and stores the
// Identity in the request context. Otherwise it answers 401 and stops the
// chain:
//   - no header, wrong scheme or empty token → "no token provided"
//     (the verifier is not called)
//   - expired token → "token has expired"
//   - anything else → "invalid token"
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler that
// wraps it. Chi applies them in a chain: req → M1 → M2 → Handler.
func RequireAuth(tokens Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				unauthorized(w, MsgNoToken)
				return
			}

			id, err := tokens.Verify(raw)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					unauthorized(w, MsgTokenExpired)
					return
				}
				unauthorized(w, MsgTokenInvalid)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), *id)))
		})
	}
}

// OptionalAuth is a middleware that extracts the identity if a valid token
// is present, but does NOT block the request if it's missing or invalid.
//
// Used on GET /recipes/{id}: anonymous callers still reach the external
// recipe lookup, logged-in callers can also see their own saved recipes.
func OptionalAuth(tokens Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := BearerToken(r); ok {
				if id, err := tokens.Verify(raw); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), *id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the authenticated identity, or false for an
// anonymous request.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID > 0
}

// UserIDFromContext is a shortcut for IdentityFromContext(ctx).UserID.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

// unauthorized writes the same {"error": ...} body the handler package uses.
// The auth package can't import handler (handler imports auth), so the
// shape is repeated here.
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  "unauthorized",
	})
}
