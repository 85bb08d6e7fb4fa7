// AuthService sits between the HTTP handlers and the storage/crypto pieces:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

const (
	msgUserTaken          = "Username or email already exists."
	msgInvalidCredentials = "Invalid username or password."
	msgPasswordTooLong    = "Password must be at most 72 bytes long."
)

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

var registerRules = []rule{
	{tag: "required", message: "Username, email, and password are required."},
	{field: "email", message: "Please provide a valid email address."},
	{field: "password", message: "Password must be at least 6 characters long."},
	{field: "username", message: "Username must be between 3 and 50 characters long."},
}

// LoginInput is the body of POST /auth/login. Username may also be the
// account's email address.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var loginRules = []rule{
	{tag: "required", message: "Username and password are required."},
}

// AuthResult bundles the public user record and a fresh token so the
// handler can answer in one step.
type AuthResult struct {
	User  model.PublicUser `json:"user"`
	Token string           `json:"token"`
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → issue JWTs
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - logger     *slog.Logger              → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates an account and logs it in.
//
// The "already taken" pre-check gives a friendly error in the common case.
// It is not what guarantees uniqueness: two concurrent registrations can
// both pass it, and then the database's UNIQUE constraint rejects the
// second INSERT, which the store reports as the same ConflictError.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := validateInput(in, registerRules); err != nil {
		return nil, err
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, apperror.ValidationFailed("password", msgPasswordTooLong)
	}

	const failed = "Registration failed. Please try again later."

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email, 0)
	if err != nil {
		return nil, storeError(s.logger, err, failed)
	}
	if taken {
		return nil, apperror.Conflict(msgUserTaken)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, storeError(s.logger, err, failed)
	}

	user := &model.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(s.logger, err, failed)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)

	return s.issue(user, failed)
}

// Login checks the credentials and issues a token.
//
// USERNAME ENUMERATION:
// An unknown login and a wrong password return the very same error, and
// the unknown-login path still runs one bcrypt comparison so both paths
// take roughly as long. A caller can't learn which usernames exist.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)

	if err := validateInput(in, loginRules); err != nil {
		return nil, err
	}

	const failed = "Login failed. Please try again later."

	user, err := s.users.GetByLogin(ctx, in.Username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.BurnCompare(in.Password)
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, storeError(s.logger, err, failed)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		// The stored hash itself is broken. That's our problem, not the user's.
		return nil, storeError(s.logger, err, failed)
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))

	return s.issue(user, failed)
}

// CurrentUser returns the account behind a verified token (GET /auth/me).
// The token can outlive the account, so a deleted user is a NotFoundError.
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*model.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, err, "Failed to get user information.")
	}
	public := user.Public()
	return &public, nil
}

func (s *AuthService) issue(user *model.User, failed string) (*AuthResult, error) {
	token, err := s.tokens.Issue(auth.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
	if err != nil {
		return nil, storeError(s.logger, err, failed)
	}
	return &AuthResult{User: user.Public(), Token: token}, nil
}
