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

// ProfileInput is the body of PUT /users/{id}.
type ProfileInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
}

var profileRules = []rule{
	{tag: "required", message: "Username and email are required."},
	{field: "email", message: "Please provide a valid email address."},
	{field: "username", message: "Username must be between 3 and 50 characters long."},
}

// PasswordChangeInput is the body of PUT /users/{id}/password.
type PasswordChangeInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword"     validate:"required,min=6"`
}

var passwordChangeRules = []rule{
	{tag: "required", message: "Current password and new password are required."},
	{field: "newPassword", message: "New password must be at least 6 characters long."},
}

// UserService is self-service account management: every method takes the
// authenticated actor and the target id, and refuses to act on anyone else.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{
		users:     users,
		passwords: passwords,
		logger:    logger,
	}
}

// GetUser returns the actor's own profile.
func (s *UserService) GetUser(ctx context.Context, actor, id int64) (*model.PublicUser, error) {
	if actor != id {
		return nil, apperror.Forbidden("Access denied. You can only access your own information.")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, err, "Failed to fetch user information.")
	}
	public := user.Public()
	return &public, nil
}

// UpdateProfile changes the actor's username and email.
func (s *UserService) UpdateProfile(ctx context.Context, actor, id int64, in ProfileInput) (*model.PublicUser, error) {
	if actor != id {
		return nil, apperror.Forbidden("Access denied. You can only update your own information.")
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateInput(in, profileRules); err != nil {
		return nil, err
	}

	const failed = "Failed to update user information."

	taken, err := s.users.ExistsByUsernameOrEmail(ctx, in.Username, in.Email, id)
	if err != nil {
		return nil, storeError(s.logger, err, failed)
	}
	if taken {
		return nil, apperror.Conflict(msgUserTaken)
	}

	user, err := s.users.UpdateProfile(ctx, id, in.Username, in.Email)
	if err != nil {
		return nil, storeError(s.logger, err, failed)
	}

	s.logger.Info("user profile updated", slog.Int64("userID", id))

	public := user.Public()
	return &public, nil
}

// ChangePassword replaces the actor's password after checking the current
// one. Tokens issued before the change stay valid until they expire.
func (s *UserService) ChangePassword(ctx context.Context, actor, id int64, in PasswordChangeInput) error {
	if actor != id {
		return apperror.Forbidden("Access denied. You can only change your own password.")
	}

	if err := validateInput(in, passwordChangeRules); err != nil {
		return err
	}
	if len(in.NewPassword) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("newPassword", msgPasswordTooLong)
	}

	const failed = "Failed to change password."

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeError(s.logger, err, failed)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.CurrentPassword); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperror.Unauthorized("Current password is incorrect.")
		}
		return storeError(s.logger, err, failed)
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return storeError(s.logger, err, failed)
	}
	if err := s.users.UpdatePasswordHash(ctx, id, hash); err != nil {
		return storeError(s.logger, err, failed)
	}

	s.logger.Info("user password changed", slog.Int64("userID", id))
	return nil
}

// DeleteAccount removes the actor's account and every recipe they saved.
// The repository does both in one transaction.
func (s *UserService) DeleteAccount(ctx context.Context, actor, id int64) (*model.DeletedUser, error) {
	if actor != id {
		return nil, apperror.Forbidden("Access denied. You can only delete your own account.")
	}

	deleted, err := s.users.DeleteWithRecipes(ctx, id)
	if err != nil {
		return nil, storeError(s.logger, err, "Failed to delete user account.")
	}

	s.logger.Info("user account deleted",
		slog.Int64("userID", deleted.ID),
		slog.String("username", deleted.Username),
	)
	return deleted, nil
}
