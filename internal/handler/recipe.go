package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/service"
)

// RecipeManager is the part of *service.RecipeService the handler uses.
type RecipeManager interface {
	List(ctx context.Context, userID int64) (*service.RecipeList, error)
	Create(ctx context.Context, userID int64, f model.RecipeFields) (*model.Recipe, error)
	Get(ctx context.Context, requester, id int64) (*service.RecipeLookup, error)
	Update(ctx context.Context, userID, id int64, f model.RecipeFields) (*model.Recipe, error)
	Delete(ctx context.Context, userID, id int64) (*model.Recipe, error)
	Random(ctx context.Context) (*model.RecipeSummary, error)
	Search(ctx context.Context, ingredients string) ([]model.SearchResult, error)
}

// RecipeResponse is the body of a successful create or update.
type RecipeResponse struct {
	Message string       `json:"message"`
	Recipe  model.Recipe `json:"recipe"`
}

// RecipeDeleteResponse is the body of a successful delete.
type RecipeDeleteResponse struct {
	Message       string       `json:"message"`
	DeletedRecipe model.Recipe `json:"deletedRecipe"`
}

// RecipeHandler serves saved favorites and the external catalogue.
//
// ROUTES:
//   - GET    /recipes/all     → the caller's favorites        (auth)
//   - POST   /recipes         → save a favorite               (auth)
//   - GET    /recipes/random  → one random catalogue recipe
//   - GET    /recipes/search  → catalogue search by ingredients
//   - GET    /recipes/{id}    → own favorite, else catalogue  (optional auth)
//   - PUT    /recipes/{id}    → edit a favorite               (auth)
//   - DELETE /recipes/{id}    → remove a favorite             (auth)
type RecipeHandler struct {
	recipes RecipeManager
	errs    errorWriter
}

// NewRecipeHandler creates a RecipeHandler.
func NewRecipeHandler(recipes RecipeManager, logger *slog.Logger, development bool) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, errs: newErrorWriter(logger, development)}
}

// HandleList returns the caller's saved recipes, newest first.
//
// HTTP: GET /recipes/all
//
// RESPONSE FORMAT:
//
//	{"recipes": [{"id": 3, "title": "...", ...}, ...], "total": 3}
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	list, err := h.recipes.List(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleCreate saves a recipe.
//
// HTTP: POST /recipes
// REQUEST BODY: {"title": "Pancakes", "ingredients": ["2 eggs"], "readyIn": 20, "spoonacular_id": 716429}
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}

	var fields model.RecipeFields
	if err := decodeJSON(w, r, &fields); err != nil {
		h.errs.write(w, r, err)
		return
	}

	recipe, err := h.recipes.Create(r.Context(), userID, fields)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RecipeResponse{
		Message: "Recipe saved successfully.",
		Recipe:  *recipe,
	})
}

// HandleRandom returns one random recipe from the catalogue.
//
// HTTP: GET /recipes/random
func (h *RecipeHandler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.Random(r.Context())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleSearch finds catalogue recipes that use the given ingredients.
//
// HTTP: GET /recipes/search?ingredients=eggs,flour
func (h *RecipeHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	results, err := h.recipes.Search(r.Context(), r.URL.Query().Get("ingredients"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// HandleGet returns one recipe.
//
// HTTP: GET /recipes/{id}
// Auth: Optional. A logged-in caller sees their own favorite with this id;
// everyone else gets the catalogue recipe.
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := service.ParseRecipeID(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	// Zero means anonymous.
	requester, _ := auth.UserIDFromContext(r.Context())

	found, err := h.recipes.Get(r.Context(), requester, id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	if found.Saved != nil {
		writeJSON(w, http.StatusOK, found.Saved)
		return
	}
	writeJSON(w, http.StatusOK, found.External)
}

// HandleUpdate edits one of the caller's recipes.
//
// HTTP: PUT /recipes/{id}
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := service.ParseRecipeID(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	var fields model.RecipeFields
	if err := decodeJSON(w, r, &fields); err != nil {
		h.errs.write(w, r, err)
		return
	}

	recipe, err := h.recipes.Update(r.Context(), userID, id, fields)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecipeResponse{
		Message: "Recipe updated successfully.",
		Recipe:  *recipe,
	})
}

// HandleDelete removes one of the caller's recipes.
//
// HTTP: DELETE /recipes/{id}
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.caller(w, r)
	if !ok {
		return
	}
	id, err := service.ParseRecipeID(chi.URLParam(r, "id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	deleted, err := h.recipes.Delete(r.Context(), userID, id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecipeDeleteResponse{
		Message:       "Recipe deleted successfully.",
		DeletedRecipe: *deleted,
	})
}

func (h *RecipeHandler) caller(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.errs.write(w, r, apperror.Unauthorized(auth.MsgNoToken))
	}
	return userID, ok
}
