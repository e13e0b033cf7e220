package model

import "time"

// Recipe is a published recipe. Image holds the storage key of the picture.
//
// Author, Tags and Ingredients are populated by the repository when a recipe
// is read; they are ignored on write, where tag IDs and ingredient amounts are
// passed separately.
type Recipe struct {
	ID          int64     `db:"id"`
	AuthorID    int64     `db:"author_id"`
	Name        string    `db:"name"`
	Image       string    `db:"image"`
	Text        string    `db:"text"`
	CookingTime int       `db:"cooking_time"`
	ShortCode   string    `db:"short_code"`
	PubDate     time.Time `db:"pub_date"`

	Author      Profile
	Tags        []Tag
	Ingredients []RecipeIngredient

	IsFavorited      bool `db:"is_favorited"`
	IsInShoppingCart bool `db:"is_in_shopping_cart"`
}

// RecipeIngredient is one ingredient line of a recipe: the ingredient itself
// plus the amount the recipe uses.
type RecipeIngredient struct {
	ID              int64  `db:"id"`
	Name            string `db:"name"`
	MeasurementUnit string `db:"measurement_unit"`
	Amount          int    `db:"amount"`
}

// IngredientAmount is the write-side form of a recipe ingredient line.
type IngredientAmount struct {
	IngredientID int64 `json:"id"     validate:"gt=0"`
	Amount       int   `json:"amount" validate:"min=1,max=10000"`
}

// RecipeSummary is the short recipe form used by favorites, the shopping cart
// and subscription previews.
type RecipeSummary struct {
	ID          int64  `db:"id"`
	AuthorID    int64  `db:"author_id"`
	Name        string `db:"name"`
	Image       string `db:"image"`
	CookingTime int    `db:"cooking_time"`
}

// Collection names a per-user set of recipes.
type Collection string

const (
	Favorites    Collection = "favorites"
	ShoppingCart Collection = "shopping_cart"
)

// ShoppingItem is one ingredient line contributed by a recipe in a user's
// cart, or after aggregation, the summed total for one (name, unit) group.
type ShoppingItem struct {
	Name            string `db:"name"`
	MeasurementUnit string `db:"measurement_unit"`
	Amount          int    `db:"amount"`
}
