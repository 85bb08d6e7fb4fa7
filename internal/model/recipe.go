package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Recipe is a favorite recipe saved by one user.
//
// OWNERSHIP:
// UserID is the owner. Every query made on behalf of a user filters on it,
// so a recipe is invisible to everybody else.
//
// SpoonacularID links the row to the external recipe it was saved from. It
// is nil for recipes the user typed in by hand. The pair
// (UserID, SpoonacularID) is unique, which stops the same external recipe
// from being saved twice by the same user.
type Recipe struct {
	ID            int64       `json:"id"             db:"id"`
	UserID        int64       `json:"user_id"        db:"user_id"`
	Title         string      `json:"title"          db:"title"`
	Image         string      `json:"image"          db:"image"`
	Instructions  string      `json:"instructions"   db:"instructions"`
	Ingredients   Ingredients `json:"ingredients"    db:"ingredients"`
	ReadyIn       *int        `json:"readyIn"        db:"ready_in"`
	SpoonacularID *int64      `json:"spoonacular_id" db:"spoonacular_id"`
	CreatedAt     time.Time   `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"     db:"updated_at"`
}

// RecipeFields are the user-editable parts of a Recipe. Create uses all of
// them; Update replaces everything except SpoonacularID.
//
// The validate tags are checked by the service layer (go-playground/validator).
type RecipeFields struct {
	Title         string      `json:"title"          validate:"required,max=255"`
	Image         string      `json:"image"          validate:"max=2048"`
	Instructions  string      `json:"instructions"`
	Ingredients   Ingredients `json:"ingredients"    validate:"max=200"`
	ReadyIn       *int        `json:"readyIn"        validate:"omitempty,gte=0"`
	SpoonacularID *int64      `json:"spoonacular_id" validate:"omitempty,gt=0"`
}

// Ingredients is an ordered list of ingredient lines, e.g. "2 eggs".
//
// ON-DISK FORMAT:
// The list is always stored as a JSON array in a TEXT column, whatever the
// database. Value and Scan are the only places that encode or decode it, so
// every read path returns exactly the sequence that was written. A nil list
// is stored as "[]" and read back as an empty, non-nil slice.
type Ingredients []string

// Value implements driver.Valuer.
func (in Ingredients) Value() (driver.Value, error) {
	if in == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(in))
	if err != nil {
		return nil, fmt.Errorf("model: encoding ingredients: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (in *Ingredients) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*in = Ingredients{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("model: cannot scan %T into Ingredients", src)
	}

	if len(raw) == 0 {
		*in = Ingredients{}
		return nil
	}

	list := []string{}
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("model: decoding ingredients: %w", err)
	}
	*in = list
	return nil
}
