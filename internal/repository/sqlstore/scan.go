package sqlstore

import (
	"fmt"
	"time"

	"github.com/sakif/recipebox/internal/model"
)

// dbTime scans a timestamp column from either backend.
//
// pgx and modernc both return time.Time for a plain SELECT, but SQLite only
// knows a column is a DATETIME through its declared type, and that
// information is not available for the rows of a RETURNING clause. There
// the value arrives as the text modernc wrote, so we parse it ourselves.
type dbTime struct {
	time.Time
}

// Layouts seen in SQLite columns. The first one is what modernc writes for
// a bound time.Time; the others come from CURRENT_TIMESTAMP and older rows.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into a timestamp", src)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("sqlstore: unrecognised timestamp %q", s)
}

// userRow and recipeRow mirror the tables column for column. They only
// exist so timestamps can go through dbTime; callers get model types.

type userRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    dbTime `db:"created_at"`
	UpdatedAt    dbTime `db:"updated_at"`
}

func (r userRow) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

type recipeRow struct {
	ID            int64             `db:"id"`
	UserID        int64             `db:"user_id"`
	Title         string            `db:"title"`
	Image         string            `db:"image"`
	Instructions  string            `db:"instructions"`
	Ingredients   model.Ingredients `db:"ingredients"`
	ReadyIn       *int              `db:"ready_in"`
	SpoonacularID *int64            `db:"spoonacular_id"`
	CreatedAt     dbTime            `db:"created_at"`
	UpdatedAt     dbTime            `db:"updated_at"`
}

func (r recipeRow) toModel() model.Recipe {
	ingredients := r.Ingredients
	if ingredients == nil {
		ingredients = model.Ingredients{}
	}
	return model.Recipe{
		ID:            r.ID,
		UserID:        r.UserID,
		Title:         r.Title,
		Image:         r.Image,
		Instructions:  r.Instructions,
		Ingredients:   ingredients,
		ReadyIn:       r.ReadyIn,
		SpoonacularID: r.SpoonacularID,
		CreatedAt:     r.CreatedAt.Time,
		UpdatedAt:     r.UpdatedAt.Time,
	}
}
