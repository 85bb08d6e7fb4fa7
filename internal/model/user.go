// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account as stored in the users table.
//
// PasswordHash carries a `json:"-"` tag so the hash can never be serialized
// into an API response, even by accident. Handlers should still prefer
// PublicUser, which does not have the field at all.
type User struct {
	ID           int64     `json:"id"         db:"id"`
	Username     string    `json:"username"   db:"username"`
	Email        string    `json:"email"      db:"email"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// PublicUser is the only user shape that leaves the service layer.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public strips everything but id, username and email.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

// DeletedUser is returned when an account is removed.
type DeletedUser struct {
	ID       int64  `json:"id"       db:"id"`
	Username string `json:"username" db:"username"`
}
