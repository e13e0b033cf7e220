// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite is the production implementation;
// service tests use in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/foodgram/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// RecipeFilter narrows a recipe listing. Zero values disable a criterion.
// Viewer is the requesting user (0 for anonymous) and only affects the
// computed is_favorited / is_in_shopping_cart / is_subscribed flags.
type RecipeFilter struct {
	Viewer      int64
	AuthorID    int64
	TagSlugs    []string
	FavoritedBy int64
	InCartOf    int64
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	LinkGitHub(ctx context.Context, userID, githubID int64) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	UpdateAvatar(ctx context.Context, userID int64, avatar string) error
	GetProfile(ctx context.Context, viewerID, id int64) (*model.Profile, error)
	ListProfiles(ctx context.Context, viewerID int64, opts ListOptions) ([]model.Profile, int, error)
}

type TokenRepository interface {
	CreateToken(ctx context.Context, token *model.AuthToken) error
	// TokenActive reports whether the token exists and has not expired.
	TokenActive(ctx context.Context, id string) (bool, error)
	DeleteToken(ctx context.Context, id string) error
}

type TagRepository interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
	GetTag(ctx context.Context, id int64) (*model.Tag, error)
	FindTags(ctx context.Context, ids []int64) ([]model.Tag, error)
	// ImportTags inserts tags, skipping any whose name or slug already exists,
	// and returns the number inserted.
	ImportTags(ctx context.Context, tags []model.Tag) (int, error)
}

type IngredientRepository interface {
	// SearchIngredients returns ingredients whose name starts with query,
	// followed by those that contain it elsewhere. Matching ignores case.
	SearchIngredients(ctx context.Context, query string) ([]model.Ingredient, error)
	GetIngredient(ctx context.Context, id int64) (*model.Ingredient, error)
	FindIngredients(ctx context.Context, ids []int64) ([]model.Ingredient, error)
	ImportIngredients(ctx context.Context, ingredients []model.Ingredient) (int, error)
	// DeleteIngredient is maintenance surface with no HTTP route. It refuses
	// to remove an ingredient that a recipe still uses.
	DeleteIngredient(ctx context.Context, id int64) error
}

type RecipeRepository interface {
	// CreateRecipe inserts the recipe with its tags and ingredient lines in
	// one transaction and fills recipe.ID and recipe.PubDate.
	CreateRecipe(ctx context.Context, recipe *model.Recipe, tagIDs []int64, items []model.IngredientAmount) error
	// UpdateRecipe saves the scalar fields. A nil tagIDs or items leaves that
	// association untouched; a non-nil one replaces it wholesale.
	UpdateRecipe(ctx context.Context, recipe *model.Recipe, tagIDs []int64, items []model.IngredientAmount) error
	DeleteRecipe(ctx context.Context, id int64) error
	GetRecipe(ctx context.Context, viewerID, id int64) (*model.Recipe, error)
	ListRecipes(ctx context.Context, filter RecipeFilter, opts ListOptions) ([]model.Recipe, int, error)
	GetRecipeSummary(ctx context.Context, id int64) (*model.RecipeSummary, error)
	// ListAuthorRecipes returns an author's newest recipes; limit <= 0 means all.
	ListAuthorRecipes(ctx context.Context, authorID int64, limit int) ([]model.RecipeSummary, error)

	ShortCodeTaken(ctx context.Context, code string) (bool, error)
	// SetShortCode stores code only when the recipe has none and returns the
	// code the recipe ends up with.
	SetShortCode(ctx context.Context, id int64, code string) (string, error)
	FindRecipeIDByShortCode(ctx context.Context, code string) (int64, error)
}

// CollectionRepository stores the per-user favorites and shopping cart sets.
type CollectionRepository interface {
	AddToCollection(ctx context.Context, c model.Collection, userID, recipeID int64) error
	RemoveFromCollection(ctx context.Context, c model.Collection, userID, recipeID int64) error
	// ShoppingItems returns one row per ingredient line of every recipe in the
	// user's cart, unaggregated.
	ShoppingItems(ctx context.Context, userID int64) ([]model.ShoppingItem, error)
}

type SubscriptionRepository interface {
	Subscribe(ctx context.Context, userID, authorID int64) error
	Unsubscribe(ctx context.Context, userID, authorID int64) error
	ListSubscriptions(ctx context.Context, userID int64, opts ListOptions) ([]model.AuthorWithRecipes, int, error)
	GetAuthorWithCount(ctx context.Context, viewerID, authorID int64) (*model.AuthorWithRecipes, error)
}
