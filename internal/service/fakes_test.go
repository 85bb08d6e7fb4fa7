package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/auth"
	"github.com/sakif/recipebox/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// Using a fake (not a mock framework) keeps tests easy to read: you can see
// exactly what the fake does.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64

	// set to a non-nil error to simulate a database failure
	err error
	// recipes counts recipes per user so DeleteWithRecipes has something to cascade
	recipes map[int64]int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*model.User{}, recipes: map[int64]int{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperror.Conflict("Username or email already exists.")
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFoundMessage("User not found.")
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetByLogin(_ context.Context, login string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Username == login || u.Email == login {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFoundMessage("User not found.")
}

func (f *fakeUserRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string, excludeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	for id, u := range f.users {
		if id != excludeID && (u.Username == username || u.Email == email) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id int64, username, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFoundMessage("User not found.")
	}
	u.Username, u.Email = username, email
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFoundMessage("User not found.")
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) DeleteWithRecipes(_ context.Context, id int64) (*model.DeletedUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFoundMessage("User not found.")
	}
	delete(f.users, id)
	delete(f.recipes, id)
	return &model.DeletedUser{ID: u.ID, Username: u.Username}, nil
}

// fakeRecipeRepo is an in-memory repository.RecipeRepository that applies
// the same ownership rules as the SQL store.
type fakeRecipeRepo struct {
	mu      sync.Mutex
	recipes map[int64]model.Recipe
	nextID  int64
	err     error
}

func newFakeRecipeRepo() *fakeRecipeRepo {
	return &fakeRecipeRepo{recipes: map[int64]model.Recipe{}}
}

func (f *fakeRecipeRepo) ListByUser(_ context.Context, userID int64) ([]model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Recipe{}
	for _, r := range f.recipes {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRecipeRepo) Create(_ context.Context, userID int64, fields model.RecipeFields) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if fields.SpoonacularID != nil {
		for _, r := range f.recipes {
			if r.UserID == userID && r.SpoonacularID != nil && *r.SpoonacularID == *fields.SpoonacularID {
				return nil, apperror.Conflict("Recipe is already in your favorites.")
			}
		}
	}
	f.nextID++
	r := model.Recipe{
		ID:            f.nextID,
		UserID:        userID,
		Title:         fields.Title,
		Image:         fields.Image,
		Instructions:  fields.Instructions,
		Ingredients:   fields.Ingredients,
		ReadyIn:       fields.ReadyIn,
		SpoonacularID: fields.SpoonacularID,
	}
	f.recipes[r.ID] = r
	return &r, nil
}

func (f *fakeRecipeRepo) GetByID(_ context.Context, id int64) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recipes[id]
	if !ok {
		return nil, apperror.NotFound("recipe", strconv.FormatInt(id, 10))
	}
	return &r, nil
}

func (f *fakeRecipeRepo) Update(_ context.Context, userID, id int64, fields model.RecipeFields) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recipes[id]
	if !ok || r.UserID != userID {
		return nil, apperror.NotFound("recipe", strconv.FormatInt(id, 10))
	}
	r.Title, r.Image, r.Instructions = fields.Title, fields.Image, fields.Instructions
	r.Ingredients, r.ReadyIn = fields.Ingredients, fields.ReadyIn
	f.recipes[id] = r
	return &r, nil
}

func (f *fakeRecipeRepo) Delete(_ context.Context, userID, id int64) (*model.Recipe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.recipes[id]
	if !ok || r.UserID != userID {
		return nil, apperror.NotFound("recipe", strconv.FormatInt(id, 10))
	}
	delete(f.recipes, id)
	return &r, nil
}

// fakeProxy stands in for the external recipe API.
type fakeProxy struct {
	detail *model.RecipeDetail
	err    error
	calls  int
}

func (p *fakeProxy) Random(context.Context) (*model.RecipeSummary, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return &model.RecipeSummary{ID: 1, Title: "Random"}, nil
}

func (p *fakeProxy) Search(_ context.Context, ingredients string) ([]model.SearchResult, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []model.SearchResult{{ID: 2, Title: ingredients}}, nil
}

func (p *fakeProxy) RecipeInformation(_ context.Context, id int64) (*model.RecipeDetail, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.detail != nil {
		return p.detail, nil
	}
	return &model.RecipeDetail{ID: id, Title: "External"}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// testPasswords uses bcrypt's minimum cost so tests stay fast.
func testPasswords() *auth.PasswordService {
	return auth.NewPasswordServiceForTest(bcrypt.MinCost)
}

func testTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("service-test-secret-0123456789")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
