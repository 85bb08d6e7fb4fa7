package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore is the users table. It shares the pool of the Store it came from.
type UserStore struct {
	*Store
}

// Users returns the user repository backed by s.
func (s *Store) Users() *UserStore {
	return &UserStore{Store: s}
}

const msgUserTaken = "Username or email already exists."

var userColumns = []string{"id", "username", "email", "password_hash", "created_at", "updated_at"}

// Create inserts a new user and fills in u.ID and the timestamps.
//
// The service checks for a taken username/email first, but two concurrent
// registrations can both pass that check. The UNIQUE constraints catch the
// loser, and we report it as the same ConflictError.
func (s *UserStore) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()

	query, args, err := s.sb.Insert("users").
		Columns("username", "email", "password_hash", "created_at", "updated_at").
		Values(u.Username, u.Email, u.PasswordHash, now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building user insert: %w", err)
	}

	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(msgUserTaken)
		}
		return fmt.Errorf("sqlstore: creating user %q: %w", u.Username, err)
	}

	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// GetByID retrieves a user by id.
// Returns apperror.ErrNotFound if no user exists with that id.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.getUser(ctx, sq.Eq{"id": id}, strconv.FormatInt(id, 10))
}

// GetByLogin retrieves a user whose username or email equals login.
func (s *UserStore) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.getUser(ctx, sq.Or{sq.Eq{"username": login}, sq.Eq{"email": login}}, login)
}

func (s *UserStore) getUser(ctx context.Context, where sq.Sqlizer, label string) (*model.User, error) {
	query, args, err := s.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building user select: %w", err)
	}

	var row userRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage("User not found.")
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", label, err)
	}
	return row.toModel(), nil
}

// ExistsByUsernameOrEmail reports whether a user other than excludeID
// already uses username or email.
func (s *UserStore) ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID int64) (bool, error) {
	q := s.sb.Select("id").From("users").
		Where(sq.Or{sq.Eq{"username": username}, sq.Eq{"email": email}})
	if excludeID > 0 {
		q = q.Where(sq.NotEq{"id": excludeID})
	}

	query, args, err := q.Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("sqlstore: building exists query: %w", err)
	}

	var id int64
	err = s.db.QueryRowxContext(ctx, query, args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("sqlstore: checking username/email: %w", err)
	}
	return true, nil
}

// UpdateProfile changes username and email and returns the updated user.
func (s *UserStore) UpdateProfile(ctx context.Context, id int64, username, email string) (*model.User, error) {
	query, args, err := s.sb.Update("users").
		Set("username", username).
		Set("email", email).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + joinColumns(userColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building profile update: %w", err)
	}

	var row userRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, apperror.NotFoundMessage("User not found.")
		case isUniqueViolation(err):
			return nil, apperror.Conflict(msgUserTaken)
		}
		return nil, fmt.Errorf("sqlstore: updating user %d: %w", id, err)
	}
	return row.toModel(), nil
}

// UpdatePasswordHash stores a new bcrypt hash for the user.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	query, args, err := s.sb.Update("users").
		Set("password_hash", hash).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: building password update: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlstore: updating password of user %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFoundMessage("User not found.")
	}
	return nil
}

// DeleteWithRecipes removes a user and every recipe they own.
//
// THE CASCADE RUNS IN ONE TRANSACTION:
//  1. DELETE FROM recipes WHERE user_id = ?
//  2. DELETE FROM users WHERE id = ? RETURNING id, username
//
// If either statement fails, or the user does not exist, the transaction is
// rolled back and no recipe is lost. The ON DELETE CASCADE foreign key would
// also remove the recipes, but we don't rely on it: SQLite only enforces it
// when the foreign_keys pragma is on for that connection.
func (s *UserStore) DeleteWithRecipes(ctx context.Context, id int64) (*model.DeletedUser, error) {
	deleteRecipes, recipeArgs, err := s.sb.Delete("recipes").Where(sq.Eq{"user_id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building recipe cascade: %w", err)
	}
	deleteUser, userArgs, err := s.sb.Delete("users").
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, username").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building user delete: %w", err)
	}

	var deleted model.DeletedUser
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteRecipes, recipeArgs...); err != nil {
			return fmt.Errorf("sqlstore: deleting recipes of user %d: %w", id, err)
		}

		if err := tx.QueryRowxContext(ctx, deleteUser, userArgs...).Scan(&deleted.ID, &deleted.Username); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NotFoundMessage("User not found.")
			}
			return fmt.Errorf("sqlstore: deleting user %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user deleted with recipes", slog.Int64("user_id", deleted.ID))
	return &deleted, nil
}
