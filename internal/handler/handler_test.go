package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/service"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

type fakeAuth struct {
	registerIn service.RegisterInput
	err        error
}

func (f *fakeAuth) Register(_ context.Context, in service.RegisterInput) (*service.AuthResult, error) {
	f.registerIn = in
	if f.err != nil {
		return nil, f.err
	}
	return &service.AuthResult{User: model.PublicUser{ID: 1, Username: in.Username, Email: in.Email}, Token: "tok"}, nil
}

func (f *fakeAuth) Login(_ context.Context, in service.LoginInput) (*service.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.AuthResult{User: model.PublicUser{ID: 1, Username: in.Username}, Token: "tok"}, nil
}

func (f *fakeAuth) CurrentUser(_ context.Context, userID int64) (*model.PublicUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.PublicUser{ID: userID, Username: "alice"}, nil
}

type fakeAccounts struct {
	gotActor, gotID int64
	err             error
}

func (f *fakeAccounts) GetUser(_ context.Context, actor, id int64) (*model.PublicUser, error) {
	f.gotActor, f.gotID = actor, id
	if f.err != nil {
		return nil, f.err
	}
	return &model.PublicUser{ID: id, Username: "alice"}, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, actor, id int64, in service.ProfileInput) (*model.PublicUser, error) {
	f.gotActor, f.gotID = actor, id
	if f.err != nil {
		return nil, f.err
	}
	return &model.PublicUser{ID: id, Username: in.Username, Email: in.Email}, nil
}

func (f *fakeAccounts) ChangePassword(_ context.Context, actor, id int64, _ service.PasswordChangeInput) error {
	f.gotActor, f.gotID = actor, id
	return f.err
}

func (f *fakeAccounts) DeleteAccount(_ context.Context, actor, id int64) (*model.DeletedUser, error) {
	f.gotActor, f.gotID = actor, id
	if f.err != nil {
		return nil, f.err
	}
	return &model.DeletedUser{ID: id, Username: "alice"}, nil
}

type fakeRecipes struct {
	lookup       *service.RecipeLookup
	gotRequester int64
	gotFields    model.RecipeFields
	gotQuery     string
	err          error
}

func (f *fakeRecipes) List(context.Context, int64) (*service.RecipeList, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.RecipeList{Recipes: []model.Recipe{}, Total: 0}, nil
}

func (f *fakeRecipes) Create(_ context.Context, userID int64, fields model.RecipeFields) (*model.Recipe, error) {
	f.gotFields = fields
	if f.err != nil {
		return nil, f.err
	}
	return &model.Recipe{ID: 10, UserID: userID, Title: fields.Title, Ingredients: fields.Ingredients}, nil
}

func (f *fakeRecipes) Get(_ context.Context, requester, _ int64) (*service.RecipeLookup, error) {
	f.gotRequester = requester
	if f.err != nil {
		return nil, f.err
	}
	return f.lookup, nil
}

func (f *fakeRecipes) Update(_ context.Context, userID, id int64, fields model.RecipeFields) (*model.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Recipe{ID: id, UserID: userID, Title: fields.Title}, nil
}

func (f *fakeRecipes) Delete(_ context.Context, userID, id int64) (*model.Recipe, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Recipe{ID: id, UserID: userID, Title: "Gone"}, nil
}

func (f *fakeRecipes) Random(context.Context) (*model.RecipeSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.RecipeSummary{ID: 1, Title: "Random"}, nil
}

func (f *fakeRecipes) Search(_ context.Context, ingredients string) ([]model.SearchResult, error) {
	f.gotQuery = ingredients
	if f.err != nil {
		return nil, f.err
	}
	return []model.SearchResult{}, nil
}

// asUser pretends RequireAuth already ran for user id. Zero leaves the
// request anonymous.
func asUser(id int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id > 0 {
				r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{UserID: id, Username: "alice"}))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newTestRouter(userID int64, authn Authenticator, accounts AccountManager, recipes RecipeManager) http.Handler {
	ah := NewAuthHandler(authn, nil, false)
	uh := NewUserHandler(accounts, nil, false)
	rh := NewRecipeHandler(recipes, nil, false)

	r := chi.NewRouter()
	r.Use(asUser(userID))
	r.Post("/auth/register", ah.HandleRegister)
	r.Post("/auth/login", ah.HandleLogin)
	r.Post("/auth/logout", ah.HandleLogout)
	r.Get("/auth/me", ah.HandleMe)
	r.Get("/users/{id}", uh.HandleGet)
	r.Put("/users/{id}", uh.HandleUpdate)
	r.Put("/users/{id}/password", uh.HandleChangePassword)
	r.Delete("/users/{id}", uh.HandleDelete)
	r.Get("/recipes/all", rh.HandleList)
	r.Post("/recipes", rh.HandleCreate)
	r.Get("/recipes/random", rh.HandleRandom)
	r.Get("/recipes/search", rh.HandleSearch)
	r.Get("/recipes/{id}", rh.HandleGet)
	r.Put("/recipes/{id}", rh.HandleUpdate)
	r.Delete("/recipes/{id}", rh.HandleDelete)
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), "body: %s", rr.Body.String())
	return m
}

// =========================================================================
// AUTH
// =========================================================================

func TestAuthHandler_Register(t *testing.T) {
	fa := &fakeAuth{}
	h := newTestRouter(0, fa, &fakeAccounts{}, &fakeRecipes{})

	rr := serve(t, h, http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"secret123"}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "User registered successfully.", body["message"])
	assert.Equal(t, "tok", body["token"])
	assert.Equal(t, "alice", body["user"].(map[string]any)["username"])
	assert.Equal(t, "secret123", fa.registerIn.Password)
}

func TestAuthHandler_RegisterMalformedJSON(t *testing.T) {
	h := newTestRouter(0, &fakeAuth{}, &fakeAccounts{}, &fakeRecipes{})

	rr := serve(t, h, http.MethodPost, "/auth/register", `{"username":`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgInvalidJSON, decodeBody(t, rr)["error"])
}

func TestAuthHandler_LoginFailure(t *testing.T) {
	fa := &fakeAuth{err: apperror.Unauthorized("Invalid username or password.")}
	h := newTestRouter(0, fa, &fakeAccounts{}, &fakeRecipes{})

	rr := serve(t, h, http.MethodPost, "/auth/login", `{"username":"alice","password":"x"}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid username or password.", decodeBody(t, rr)["error"])
}

func TestAuthHandler_LogoutAndMe(t *testing.T) {
	h := newTestRouter(7, &fakeAuth{}, &fakeAccounts{}, &fakeRecipes{})

	rr := serve(t, h, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Logout successful.", decodeBody(t, rr)["message"])

	rr = serve(t, h, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(7), decodeBody(t, rr)["user"].(map[string]any)["id"])
}

// =========================================================================
// USERS
// =========================================================================

func TestUserHandler_PassesActorAndTarget(t *testing.T) {
	fa := &fakeAccounts{}
	h := newTestRouter(3, &fakeAuth{}, fa, &fakeRecipes{})

	rr := serve(t, h, http.MethodDelete, "/users/3", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "User account deleted successfully.", body["message"])
	assert.Equal(t, "alice", body["deletedUser"].(map[string]any)["username"])
	assert.Equal(t, int64(3), fa.gotActor)
	assert.Equal(t, int64(3), fa.gotID)
}

func TestUserHandler_InvalidID(t *testing.T) {
	h := newTestRouter(3, &fakeAuth{}, &fakeAccounts{}, &fakeRecipes{})

	for _, path := range []string{"/users/abc", "/users/0", "/users/-1"} {
		rr := serve(t, h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
		assert.Equal(t, "Invalid user ID.", decodeBody(t, rr)["error"], path)
	}
}

func TestUserHandler_Forbidden(t *testing.T) {
	fa := &fakeAccounts{err: apperror.Forbidden("Access denied. You can only update your own information.")}
	h := newTestRouter(3, &fakeAuth{}, fa, &fakeRecipes{})

	rr := serve(t, h, http.MethodPut, "/users/4", `{"username":"bob","email":"bob@example.com"}`)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "forbidden", decodeBody(t, rr)["code"])
}

func TestUserHandler_ChangePassword(t *testing.T) {
	h := newTestRouter(3, &fakeAuth{}, &fakeAccounts{}, &fakeRecipes{})

	rr := serve(t, h, http.MethodPut, "/users/3/password", `{"currentPassword":"a","newPassword":"bbbbbb"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Password changed successfully.", decodeBody(t, rr)["message"])
}

// =========================================================================
// RECIPES
// =========================================================================

func TestRecipeHandler_Create(t *testing.T) {
	fr := &fakeRecipes{}
	h := newTestRouter(5, &fakeAuth{}, &fakeAccounts{}, fr)

	rr := serve(t, h, http.MethodPost, "/recipes",
		`{"title":"Pancakes","ingredients":["2 eggs","1 cup flour"],"readyIn":20,"spoonacular_id":716429}`)

	require.Equal(t, http.StatusCreated, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Recipe saved successfully.", body["message"])
	assert.Equal(t, []any{"2 eggs", "1 cup flour"}, body["recipe"].(map[string]any)["ingredients"])

	require.NotNil(t, fr.gotFields.ReadyIn)
	assert.Equal(t, 20, *fr.gotFields.ReadyIn)
	require.NotNil(t, fr.gotFields.SpoonacularID)
	assert.Equal(t, int64(716429), *fr.gotFields.SpoonacularID)
}

func TestRecipeHandler_ListEmptyIsArray(t *testing.T) {
	h := newTestRouter(5, &fakeAuth{}, &fakeAccounts{}, &fakeRecipes{})

	rr := serve(t, h, http.MethodGet, "/recipes/all", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"recipes":[],"total":0}`, rr.Body.String())
}

func TestRecipeHandler_GetSavedOrExternal(t *testing.T) {
	t.Run("saved", func(t *testing.T) {
		fr := &fakeRecipes{lookup: &service.RecipeLookup{Saved: &model.Recipe{ID: 9, UserID: 5, Title: "Mine"}}}
		h := newTestRouter(5, &fakeAuth{}, &fakeAccounts{}, fr)

		rr := serve(t, h, http.MethodGet, "/recipes/9", "")
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "Mine", body["title"])
		assert.Equal(t, float64(5), body["user_id"])
		assert.Equal(t, int64(5), fr.gotRequester)
	})

	t.Run("external for anonymous caller", func(t *testing.T) {
		fr := &fakeRecipes{lookup: &service.RecipeLookup{External: &model.RecipeDetail{ID: 9, Title: "Catalogue"}}}
		h := newTestRouter(0, &fakeAuth{}, &fakeAccounts{}, fr)

		rr := serve(t, h, http.MethodGet, "/recipes/9", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Catalogue", decodeBody(t, rr)["title"])
		assert.Zero(t, fr.gotRequester)
	})

	t.Run("invalid id", func(t *testing.T) {
		h := newTestRouter(0, &fakeAuth{}, &fakeAccounts{}, &fakeRecipes{})

		rr := serve(t, h, http.MethodGet, "/recipes/abc", "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Valid recipe ID is required.", decodeBody(t, rr)["error"])
	})
}

func TestRecipeHandler_UpstreamErrors(t *testing.T) {
	tests := []struct {
		kind       error
		wantStatus int
	}{
		{apperror.ErrUpstreamTimeout, http.StatusRequestTimeout},
		{apperror.ErrRateLimited, http.StatusTooManyRequests},
		{apperror.ErrUpstreamAuth, http.StatusUnauthorized},
		{apperror.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{apperror.ErrUpstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.kind.Error(), func(t *testing.T) {
			fr := &fakeRecipes{err: apperror.Upstream(tt.kind, "upstream said no")}
			h := newTestRouter(0, &fakeAuth{}, &fakeAccounts{}, fr)

			rr := serve(t, h, http.MethodGet, "/recipes/random", "")
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "upstream said no", decodeBody(t, rr)["error"])
		})
	}
}

func TestRecipeHandler_SearchPassesQuery(t *testing.T) {
	fr := &fakeRecipes{}
	h := newTestRouter(0, &fakeAuth{}, &fakeAccounts{}, fr)

	rr := serve(t, h, http.MethodGet, "/recipes/search?ingredients=eggs,flour", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
	assert.Equal(t, "eggs,flour", fr.gotQuery)
}

func TestRecipeHandler_UpdateAndDelete(t *testing.T) {
	h := newTestRouter(5, &fakeAuth{}, &fakeAccounts{}, &fakeRecipes{})

	rr := serve(t, h, http.MethodPut, "/recipes/4", `{"title":"Better"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Recipe updated successfully.", decodeBody(t, rr)["message"])

	rr = serve(t, h, http.MethodDelete, "/recipes/4", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Recipe deleted successfully.", body["message"])
	assert.Equal(t, float64(4), body["deletedRecipe"].(map[string]any)["id"])
}

func TestRecipeHandler_RequiresIdentity(t *testing.T) {
	// Mounted without an identity, protected handlers refuse to run.
	h := newTestRouter(0, &fakeAuth{}, &fakeAccounts{}, &fakeRecipes{})

	rr := serve(t, h, http.MethodGet, "/recipes/all", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// =========================================================================
// HEALTH
// =========================================================================

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	ok := NewHealthHandler(pingFunc(func(context.Context) error { return nil }), nil)
	rr := httptest.NewRecorder()
	ok.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])

	down := NewHealthHandler(pingFunc(func(context.Context) error { return context.DeadlineExceeded }), nil)
	rr = httptest.NewRecorder()
	down.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", decodeBody(t, rr)["status"])
}
