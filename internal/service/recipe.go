package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

const msgInvalidRecipeID = "Valid recipe ID is required."

var recipeRules = []rule{
	{field: "title", tag: "required", message: "Recipe title is required."},
	{field: "title", message: "Recipe title must be at most 255 characters long."},
	{field: "image", message: "Image URL is too long."},
	{field: "ingredients", message: "A recipe can have at most 200 ingredients."},
	{field: "readyIn", message: "Ready time must be zero or more minutes."},
	{field: "spoonacular_id", message: "spoonacular_id must be a positive number."},
}

// RecipeProxy is the external recipe catalogue. *spoonacular.Client
// implements it; tests use a fake.
type RecipeProxy interface {
	Random(ctx context.Context) (*model.RecipeSummary, error)
	Search(ctx context.Context, ingredients string) ([]model.SearchResult, error)
	RecipeInformation(ctx context.Context, id int64) (*model.RecipeDetail, error)
}

// RecipeList is the body of GET /recipes/all.
type RecipeList struct {
	Recipes []model.Recipe `json:"recipes"`
	Total   int            `json:"total"`
}

// RecipeLookup is the result of Get: exactly one of the fields is set.
type RecipeLookup struct {
	Saved    *model.Recipe
	External *model.RecipeDetail
}

// RecipeService manages saved favorites and fronts the external catalogue.
type RecipeService struct {
	recipes repository.RecipeRepository
	proxy   RecipeProxy
	logger  *slog.Logger
}

// NewRecipeService creates a RecipeService.
func NewRecipeService(recipes repository.RecipeRepository, proxy RecipeProxy, logger *slog.Logger) *RecipeService {
	return &RecipeService{
		recipes: recipes,
		proxy:   proxy,
		logger:  logger,
	}
}

// ParseRecipeID turns a path segment into a recipe id. Anything but a
// positive integer is a ValidationError.
func ParseRecipeID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", msgInvalidRecipeID)
	}
	return id, nil
}

// List returns the user's saved recipes, newest first.
func (s *RecipeService) List(ctx context.Context, userID int64) (*RecipeList, error) {
	recipes, err := s.recipes.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeError(s.logger, err, "Failed to fetch recipes.")
	}
	return &RecipeList{Recipes: recipes, Total: len(recipes)}, nil
}

// Create saves a recipe for the user.
func (s *RecipeService) Create(ctx context.Context, userID int64, f model.RecipeFields) (*model.Recipe, error) {
	f = normalizeFields(f)
	if err := validateInput(f, recipeRules); err != nil {
		return nil, err
	}

	recipe, err := s.recipes.Create(ctx, userID, f)
	if err != nil {
		return nil, storeError(s.logger, err, "Failed to save recipe.")
	}

	s.logger.Info("recipe saved",
		slog.Int64("userID", userID),
		slog.Int64("recipeID", recipe.ID),
	)
	return recipe, nil
}

// Get resolves GET /recipes/{id}.
//
// LOOKUP ORDER:
//  1. A saved recipe with this id that belongs to the requester → returned.
//  2. A saved recipe with this id that belongs to someone else, or any
//     saved recipe when the requester is anonymous (requester == 0)
//     → NotFoundError. Other users' favorites are never revealed.
//  3. No saved recipe with this id → the external catalogue is asked.
func (s *RecipeService) Get(ctx context.Context, requester, id int64) (*RecipeLookup, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", msgInvalidRecipeID)
	}

	saved, err := s.recipes.GetByID(ctx, id)
	switch {
	case err == nil:
		if requester > 0 && saved.UserID == requester {
			return &RecipeLookup{Saved: saved}, nil
		}
		return nil, apperror.NotFound("recipe", strconv.FormatInt(id, 10))

	case errors.Is(err, apperror.ErrNotFound):
		detail, err := s.proxy.RecipeInformation(ctx, id)
		if err != nil {
			return nil, err
		}
		return &RecipeLookup{External: detail}, nil

	default:
		return nil, storeError(s.logger, err, "Failed to fetch recipe details. Please try again later.")
	}
}

// Update replaces the editable fields of one of the user's recipes.
// Someone else's recipe is reported as not found.
func (s *RecipeService) Update(ctx context.Context, userID, id int64, f model.RecipeFields) (*model.Recipe, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", msgInvalidRecipeID)
	}

	f = normalizeFields(f)
	if err := validateInput(f, recipeRules); err != nil {
		return nil, err
	}

	recipe, err := s.recipes.Update(ctx, userID, id, f)
	if err != nil {
		return nil, storeError(s.logger, err, "Failed to update recipe.")
	}

	s.logger.Info("recipe updated",
		slog.Int64("userID", userID),
		slog.Int64("recipeID", id),
	)
	return recipe, nil
}

// Delete removes one of the user's recipes and returns it.
func (s *RecipeService) Delete(ctx context.Context, userID, id int64) (*model.Recipe, error) {
	if id <= 0 {
		return nil, apperror.ValidationFailed("id", msgInvalidRecipeID)
	}

	recipe, err := s.recipes.Delete(ctx, userID, id)
	if err != nil {
		return nil, storeError(s.logger, err, "Failed to delete recipe.")
	}

	s.logger.Info("recipe deleted",
		slog.Int64("userID", userID),
		slog.Int64("recipeID", id),
	)
	return recipe, nil
}

// Random returns one random recipe from the external catalogue.
func (s *RecipeService) Random(ctx context.Context) (*model.RecipeSummary, error) {
	return s.proxy.Random(ctx)
}

// Search asks the external catalogue for recipes using the ingredients.
func (s *RecipeService) Search(ctx context.Context, ingredients string) ([]model.SearchResult, error) {
	return s.proxy.Search(ctx, ingredients)
}

// normalizeFields trims the title and image. Ingredient lines are stored
// exactly as sent.
func normalizeFields(f model.RecipeFields) model.RecipeFields {
	f.Title = strings.TrimSpace(f.Title)
	f.Image = strings.TrimSpace(f.Image)
	return f
}
