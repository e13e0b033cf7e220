// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. Email is the login key; Avatar holds the
// storage key of the uploaded picture (empty when none is set).
//
// GitHubID is a pointer because most accounts are created with a password and
// never linked; the column is NULL for them and UNIQUE otherwise.
type User struct {
	ID           int64     `db:"id"`
	Email        string    `db:"email"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	PasswordHash string    `db:"password_hash"`
	Avatar       string    `db:"avatar"`
	GitHubID     *int64    `db:"github_id"`
	CreatedAt    time.Time `db:"created_at"`
}

// Profile is a user as seen by a viewer: IsSubscribed is true when the viewer
// follows this user. It is always false for anonymous viewers and for the
// user looking at themselves.
type Profile struct {
	User
	IsSubscribed bool `db:"is_subscribed"`
}

// AuthorWithRecipes is a followed author together with a preview of their
// recipes, as returned by the subscription endpoints.
type AuthorWithRecipes struct {
	Profile
	RecipesCount int `db:"recipes_count"`
	Recipes      []RecipeSummary
}

// AuthToken records an issued access token so it can be revoked on logout.
// ID is the token's "jti" claim.
type AuthToken struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
