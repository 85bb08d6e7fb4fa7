package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

var _ repository.RecipeRepository = (*RecipeStore)(nil)

// RecipeStore is the recipes table.
//
// OWNERSHIP IN SQL:
// Update and Delete put BOTH the recipe id and the owner's id in the WHERE
// clause. There is no "load, compare owner, then write" sequence that a
// concurrent request could slip into: a row that belongs to someone else
// simply doesn't match, and the caller gets a NotFoundError, the same as
// for an id that never existed.
type RecipeStore struct {
	*Store
}

// Recipes returns the recipe repository backed by s.
func (s *Store) Recipes() *RecipeStore {
	return &RecipeStore{Store: s}
}

const msgDuplicateFavorite = "Recipe is already in your favorites."

var recipeColumns = []string{
	"id", "user_id", "title", "image", "instructions", "ingredients",
	"ready_in", "spoonacular_id", "created_at", "updated_at",
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

func recipeNotFound(id int64) error {
	return apperror.NotFound("recipe", strconv.FormatInt(id, 10))
}

// ListByUser returns every recipe of the user, newest first.
func (s *RecipeStore) ListByUser(ctx context.Context, userID int64) ([]model.Recipe, error) {
	query, args, err := s.sb.Select(recipeColumns...).
		From("recipes").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building recipe list: %w", err)
	}

	var rows []recipeRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlstore: listing recipes of user %d: %w", userID, err)
	}

	// Return an empty slice, not nil, so JSON encodes [] instead of null.
	recipes := make([]model.Recipe, 0, len(rows))
	for _, r := range rows {
		recipes = append(recipes, r.toModel())
	}
	return recipes, nil
}

// Create saves a new recipe for userID.
//
// Saving the same external recipe twice is rejected by the
// UNIQUE (user_id, spoonacular_id) index inside this single INSERT, so two
// concurrent saves can't both succeed.
func (s *RecipeStore) Create(ctx context.Context, userID int64, f model.RecipeFields) (*model.Recipe, error) {
	now := time.Now().UTC()
	ingredients := f.Ingredients
	if ingredients == nil {
		ingredients = model.Ingredients{}
	}

	query, args, err := s.sb.Insert("recipes").
		Columns("user_id", "title", "image", "instructions", "ingredients",
			"ready_in", "spoonacular_id", "created_at", "updated_at").
		Values(userID, f.Title, f.Image, f.Instructions, ingredients,
			nullableInt(f.ReadyIn), nullableInt64(f.SpoonacularID), now, now).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building recipe insert: %w", err)
	}

	recipe := &model.Recipe{
		UserID:        userID,
		Title:         f.Title,
		Image:         f.Image,
		Instructions:  f.Instructions,
		Ingredients:   ingredients,
		ReadyIn:       f.ReadyIn,
		SpoonacularID: f.SpoonacularID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&recipe.ID); err != nil {
		switch {
		case isUniqueViolation(err):
			return nil, apperror.Conflict(msgDuplicateFavorite)
		case isForeignKeyViolation(err):
			return nil, apperror.NotFoundMessage("User not found.")
		}
		return nil, fmt.Errorf("sqlstore: creating recipe for user %d: %w", userID, err)
	}
	return recipe, nil
}

// GetByID returns the recipe with the given id, whoever owns it.
func (s *RecipeStore) GetByID(ctx context.Context, id int64) (*model.Recipe, error) {
	query, args, err := s.sb.Select(recipeColumns...).
		From("recipes").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building recipe select: %w", err)
	}

	var row recipeRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recipeNotFound(id)
		}
		return nil, fmt.Errorf("sqlstore: getting recipe %d: %w", id, err)
	}
	recipe := row.toModel()
	return &recipe, nil
}

// Update replaces the editable fields of a recipe owned by userID.
// SpoonacularID is not editable: it identifies where the recipe came from.
func (s *RecipeStore) Update(ctx context.Context, userID, id int64, f model.RecipeFields) (*model.Recipe, error) {
	ingredients := f.Ingredients
	if ingredients == nil {
		ingredients = model.Ingredients{}
	}

	query, args, err := s.sb.Update("recipes").
		Set("title", f.Title).
		Set("image", f.Image).
		Set("instructions", f.Instructions).
		Set("ingredients", ingredients).
		Set("ready_in", nullableInt(f.ReadyIn)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + joinColumns(recipeColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building recipe update: %w", err)
	}

	var row recipeRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recipeNotFound(id)
		}
		return nil, fmt.Errorf("sqlstore: updating recipe %d: %w", id, err)
	}
	recipe := row.toModel()
	return &recipe, nil
}

// Delete removes a recipe owned by userID and returns it as it was.
func (s *RecipeStore) Delete(ctx context.Context, userID, id int64) (*model.Recipe, error) {
	query, args, err := s.sb.Delete("recipes").
		Where(sq.Eq{"id": id, "user_id": userID}).
		Suffix("RETURNING " + joinColumns(recipeColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: building recipe delete: %w", err)
	}

	var row recipeRow
	if err := sqlx.GetContext(ctx, s.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, recipeNotFound(id)
		}
		return nil, fmt.Errorf("sqlstore: deleting recipe %d: %w", id, err)
	}
	recipe := row.toModel()
	return &recipe, nil
}

// nullableInt turns an optional value into something every driver accepts:
// nil becomes NULL.
func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

func nullableInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
