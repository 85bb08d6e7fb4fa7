package model

import "encoding/json"

// The types below are the reshaped responses of the external recipe API.
// They are never stored.

// RecipeSummary is what GET /recipes/random returns.
type RecipeSummary struct {
	ID           int64    `json:"id"`
	Title        string   `json:"title"`
	Image        string   `json:"image"`
	Instructions string   `json:"instructions"`
	Ingredients  []string `json:"ingredients"`
}

// RecipeDetail is what GET /recipes/{id} returns when the id is not a local
// favorite. ExtendedIngredients is passed through untouched.
type RecipeDetail struct {
	ID                  int64             `json:"id"`
	Title               string            `json:"title"`
	Image               string            `json:"image"`
	Summary             string            `json:"summary"`
	ReadyInMinutes      *int              `json:"readyInMinutes"`
	Instructions        string            `json:"instructions"`
	ExtendedIngredients []json.RawMessage `json:"extendedIngredients"`
}

// SearchResult is one entry of GET /recipes/search.
type SearchResult struct {
	ID                int64             `json:"id"`
	Title             string            `json:"title"`
	Image             string            `json:"image"`
	UsedIngredients   []json.RawMessage `json:"usedIngredients"`
	MissedIngredients []json.RawMessage `json:"missedIngredients"`
}
