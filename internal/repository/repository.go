// Package repository defines the storage contracts the services depend on.
//
// The services only ever see these interfaces, never *sqlx.DB. That keeps
// SQL out of the business logic and lets service tests use small in-memory
// fakes instead of a database.
//
// Error contract for every implementation:
//   - a missing row is an *apperror.AppError wrapping apperror.ErrNotFound
//   - a UNIQUE violation is an *apperror.AppError wrapping apperror.ErrConflict
//   - anything else is a wrapped driver error (the service turns it into
//     apperror.ErrInternal)
package repository

import (
	"context"

	"github.com/sakif/recipebox/internal/model"
)

// UserRepository stores accounts.
type UserRepository interface {
	// Create inserts u and fills in its ID and timestamps.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByLogin finds a user whose username OR email equals login.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	// ExistsByUsernameOrEmail reports whether another user (id != excludeID)
	// already has the username or the email. Pass 0 to check every user.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID int64) (bool, error)
	UpdateProfile(ctx context.Context, id int64, username, email string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	// DeleteWithRecipes removes the user and all of their recipes in one
	// transaction. Either everything is gone afterwards or nothing changed.
	DeleteWithRecipes(ctx context.Context, id int64) (*model.DeletedUser, error)
}

// RecipeRepository stores favorite recipes. Every method that acts on
// behalf of a user takes that user's id and filters on it in SQL.
type RecipeRepository interface {
	// ListByUser returns the user's recipes, newest first.
	ListByUser(ctx context.Context, userID int64) ([]model.Recipe, error)
	Create(ctx context.Context, userID int64, f model.RecipeFields) (*model.Recipe, error)
	// GetByID looks a recipe up by id alone. The caller decides whether the
	// requester may see it.
	GetByID(ctx context.Context, id int64) (*model.Recipe, error)
	Update(ctx context.Context, userID, id int64, f model.RecipeFields) (*model.Recipe, error)
	// Delete removes the recipe and returns it as it was.
	Delete(ctx context.Context, userID, id int64) (*model.Recipe, error)
}
