package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/service"
)

// Authenticator is the part of *service.AuthService the handler uses.
// Accepting an interface here lets the tests swap in a fake.
type Authenticator interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	CurrentUser(ctx context.Context, userID int64) (*model.PublicUser, error)
}

// AuthResponse is the body of a successful register or login.
type AuthResponse struct {
	Message string           `json:"message"`
	User    model.PublicUser `json:"user"`
	Token   string           `json:"token"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	User model.PublicUser `json:"user"`
}

// AuthHandler manages registration, login and session endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account, answer with a token
//   - HandleLogin    → check credentials, answer with a token
//   - HandleLogout   → acknowledge; tokens are stateless
//   - HandleMe       → return the currently logged-in user's profile
type AuthHandler struct {
	auth Authenticator
	errs errorWriter
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(authn Authenticator, logger *slog.Logger, development bool) *AuthHandler {
	return &AuthHandler{auth: authn, errs: newErrorWriter(logger, development)}
}

// HandleRegister creates an account.
//
// HTTP: POST /auth/register
// REQUEST BODY: {"username": "alice", "email": "alice@example.com", "password": "secret123"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.errs.write(w, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Message: "User registered successfully.",
		User:    res.User,
		Token:   res.Token,
	})
}

// HandleLogin checks credentials and issues a token.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"username": "alice", "password": "secret123"}
// "username" may also be the account's email address.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.errs.write(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Message: "Login successful.",
		User:    res.User,
		Token:   res.Token,
	})
}

// HandleLogout acknowledges a logout.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless JWTs, so there is nothing to revoke server-side.
// The client drops its token; the token itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful."})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /auth/me
// Auth: Required (RequireAuth middleware puts the identity in the context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Only reachable if the route is mounted without RequireAuth.
		h.errs.write(w, r, apperror.Unauthorized(auth.MsgNoToken))
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: *user})
}
