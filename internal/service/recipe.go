package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
	"github.com/sakif/foodgram/internal/storage"
)

// maxCreateAttempts bounds retries when a freshly generated short code loses
// a race with a concurrent insert.
const maxCreateAttempts = 3

// RecipeInput is the body of POST /api/recipes/. Image is a base64 data URI.
type RecipeInput struct {
	Ingredients []model.IngredientAmount `json:"ingredients"  validate:"required,min=1,unique=IngredientID,dive"`
	Tags        []int64                  `json:"tags"         validate:"required,min=1,unique,dive,gt=0"`
	Image       string                   `json:"image"        validate:"required"`
	Name        string                   `json:"name"         validate:"required,max=256"`
	Text        string                   `json:"text"         validate:"required"`
	CookingTime int                      `json:"cooking_time" validate:"required,min=1,max=1440"`
}

// RecipePatch is the body of PATCH /api/recipes/{id}/. A nil field keeps the
// stored value; a non-nil Tags or Ingredients replaces the whole set.
type RecipePatch struct {
	Ingredients *[]model.IngredientAmount `json:"ingredients"`
	Tags        *[]int64                  `json:"tags"`
	Image       *string                   `json:"image"`
	Name        *string                   `json:"name"`
	Text        *string                   `json:"text"`
	CookingTime *int                      `json:"cooking_time"`
}

// RecipeQuery holds the listing filters from the query string. The two
// boolean filters only apply to an authenticated viewer.
type RecipeQuery struct {
	AuthorID         int64
	Tags             []string
	IsFavorited      bool
	IsInShoppingCart bool
}

// RecipeService implements recipe CRUD, the favorites and shopping cart
// toggles, the shopping list download and short links.
type RecipeService struct {
	recipes     repository.RecipeRepository
	collections repository.CollectionRepository
	tags        repository.TagRepository
	ingredients repository.IngredientRepository
	images      storage.ImageStore
	links       *ShortLinkGenerator
	validator   *Validator
	logger      *slog.Logger
}

func NewRecipeService(
	recipes repository.RecipeRepository,
	collections repository.CollectionRepository,
	tags repository.TagRepository,
	ingredients repository.IngredientRepository,
	images storage.ImageStore,
	validator *Validator,
	logger *slog.Logger,
) *RecipeService {
	return &RecipeService{
		recipes:     recipes,
		collections: collections,
		tags:        tags,
		ingredients: ingredients,
		images:      images,
		links:       NewShortLinkGenerator(recipes),
		validator:   validator,
		logger:      logger,
	}
}

// Create validates the input, stores the image and inserts the recipe with a
// fresh short code. The returned recipe is in its full read shape.
func (s *RecipeService) Create(ctx context.Context, authorID int64, in RecipeInput) (*model.Recipe, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Text = strings.TrimSpace(in.Text)

	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	if err := s.checkAssociations(ctx, in.Tags, in.Ingredients); err != nil {
		return nil, err
	}

	img, err := decodeImage(in.Image)
	if err != nil {
		return nil, err
	}
	key := storage.NewKey(storage.RecipeImagePrefix, img.Ext)
	if err := s.images.Save(ctx, key, img.Data, img.ContentType); err != nil {
		return nil, fmt.Errorf("saving recipe image: %w", err)
	}

	recipe := &model.Recipe{
		AuthorID:    authorID,
		Name:        in.Name,
		Image:       key,
		Text:        in.Text,
		CookingTime: in.CookingTime,
	}

	for attempt := 1; ; attempt++ {
		recipe.ShortCode, err = s.links.Generate(ctx)
		if err == nil {
			err = s.recipes.CreateRecipe(ctx, recipe, in.Tags, in.Ingredients)
		}
		if err == nil {
			break
		}
		if errors.Is(err, apperror.ErrConflict) && attempt < maxCreateAttempts {
			continue
		}

		deleteImage(ctx, s.images, s.logger, key)
		s.logger.Error("failed to create recipe",
			slog.Int64("author_id", authorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating recipe: %w", err)
	}

	s.logger.Info("recipe created",
		slog.Int64("id", recipe.ID),
		slog.Int64("author_id", authorID),
		slog.String("short_code", recipe.ShortCode),
	)

	return s.recipes.GetRecipe(ctx, authorID, recipe.ID)
}

// Update applies patch to a recipe owned by userID. The patch is merged onto
// the stored recipe and the result validated with the same rules as Create.
func (s *RecipeService) Update(ctx context.Context, userID, recipeID int64, patch RecipePatch) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, userID, recipeID)
	if err != nil {
		return nil, err
	}
	if recipe.AuthorID != userID {
		return nil, apperror.Forbidden("only the author can change this recipe")
	}

	merged := RecipeInput{
		Image:       recipe.Image,
		Name:        recipe.Name,
		Text:        recipe.Text,
		CookingTime: recipe.CookingTime,
	}
	for _, t := range recipe.Tags {
		merged.Tags = append(merged.Tags, t.ID)
	}
	for _, ing := range recipe.Ingredients {
		merged.Ingredients = append(merged.Ingredients, model.IngredientAmount{IngredientID: ing.ID, Amount: ing.Amount})
	}

	var tagIDs []int64
	var items []model.IngredientAmount
	if patch.Tags != nil {
		tagIDs = *patch.Tags
		if tagIDs == nil {
			tagIDs = []int64{}
		}
		merged.Tags = tagIDs
	}
	if patch.Ingredients != nil {
		items = *patch.Ingredients
		if items == nil {
			items = []model.IngredientAmount{}
		}
		merged.Ingredients = items
	}
	if patch.Image != nil {
		merged.Image = *patch.Image
	}
	if patch.Name != nil {
		merged.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Text != nil {
		merged.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.CookingTime != nil {
		merged.CookingTime = *patch.CookingTime
	}

	if err := s.validator.Struct(merged); err != nil {
		return nil, err
	}
	if err := s.checkAssociations(ctx, tagIDs, items); err != nil {
		return nil, err
	}

	oldImage := recipe.Image
	if patch.Image != nil {
		img, err := decodeImage(*patch.Image)
		if err != nil {
			return nil, err
		}
		recipe.Image = storage.NewKey(storage.RecipeImagePrefix, img.Ext)
		if err := s.images.Save(ctx, recipe.Image, img.Data, img.ContentType); err != nil {
			return nil, fmt.Errorf("saving recipe image: %w", err)
		}
	}

	recipe.Name = merged.Name
	recipe.Text = merged.Text
	recipe.CookingTime = merged.CookingTime

	if err := s.recipes.UpdateRecipe(ctx, recipe, tagIDs, items); err != nil {
		if recipe.Image != oldImage {
			deleteImage(ctx, s.images, s.logger, recipe.Image)
		}
		return nil, fmt.Errorf("updating recipe %d: %w", recipeID, err)
	}
	if recipe.Image != oldImage {
		deleteImage(ctx, s.images, s.logger, oldImage)
	}

	s.logger.Info("recipe updated",
		slog.Int64("id", recipeID),
		slog.Bool("tags_replaced", tagIDs != nil),
		slog.Bool("ingredients_replaced", items != nil),
	)

	return s.recipes.GetRecipe(ctx, userID, recipeID)
}

// Delete removes a recipe owned by userID together with its image.
func (s *RecipeService) Delete(ctx context.Context, userID, recipeID int64) error {
	summary, err := s.recipes.GetRecipeSummary(ctx, recipeID)
	if err != nil {
		return err
	}
	if summary.AuthorID != userID {
		return apperror.Forbidden("only the author can delete this recipe")
	}

	if err := s.recipes.DeleteRecipe(ctx, recipeID); err != nil {
		return fmt.Errorf("deleting recipe %d: %w", recipeID, err)
	}
	deleteImage(ctx, s.images, s.logger, summary.Image)

	s.logger.Info("recipe deleted", slog.Int64("id", recipeID))
	return nil
}

// Get returns a recipe as seen by viewerID (0 for anonymous).
func (s *RecipeService) Get(ctx context.Context, viewerID, id int64) (*model.Recipe, error) {
	return s.recipes.GetRecipe(ctx, viewerID, id)
}

// List returns one page of recipes and the total match count. For anonymous
// viewers IsFavorited and IsInShoppingCart are ignored rather than rejected.
func (s *RecipeService) List(ctx context.Context, viewerID int64, q RecipeQuery, limit, offset int) ([]model.Recipe, int, error) {
	filter := repository.RecipeFilter{
		Viewer:   viewerID,
		AuthorID: q.AuthorID,
		TagSlugs: q.Tags,
	}
	if viewerID != 0 {
		if q.IsFavorited {
			filter.FavoritedBy = viewerID
		}
		if q.IsInShoppingCart {
			filter.InCartOf = viewerID
		}
	}

	recipes, total, err := s.recipes.ListRecipes(ctx, filter, listOptions(limit, offset))
	if err != nil {
		return nil, 0, fmt.Errorf("listing recipes: %w", err)
	}
	return recipes, total, nil
}

// AddToCollection puts a recipe into the user's favorites or shopping cart.
// Adding it twice is a conflict.
func (s *RecipeService) AddToCollection(ctx context.Context, c model.Collection, userID, recipeID int64) (*model.RecipeSummary, error) {
	summary, err := s.recipes.GetRecipeSummary(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	if err := s.collections.AddToCollection(ctx, c, userID, recipeID); err != nil {
		return nil, err
	}

	s.logger.Info("recipe added to collection",
		slog.String("collection", string(c)),
		slog.Int64("user_id", userID),
		slog.Int64("recipe_id", recipeID),
	)
	return summary, nil
}

// RemoveFromCollection takes a recipe out of the user's favorites or cart.
// Removing a recipe that is not there yields apperror.ErrNotPresent.
func (s *RecipeService) RemoveFromCollection(ctx context.Context, c model.Collection, userID, recipeID int64) error {
	if _, err := s.recipes.GetRecipeSummary(ctx, recipeID); err != nil {
		return err
	}
	return s.collections.RemoveFromCollection(ctx, c, userID, recipeID)
}

// ShoppingList renders the aggregated ingredients of every recipe in the
// user's cart as plain text.
func (s *RecipeService) ShoppingList(ctx context.Context, userID int64) (string, error) {
	items, err := s.collections.ShoppingItems(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("loading shopping cart: %w", err)
	}
	return FormatShoppingList(AggregateShoppingList(items)), nil
}

// GetLink returns the recipe's short code, assigning one to recipes that
// predate short links.
func (s *RecipeService) GetLink(ctx context.Context, recipeID int64) (string, error) {
	recipe, err := s.recipes.GetRecipe(ctx, 0, recipeID)
	if err != nil {
		return "", err
	}
	return s.links.Ensure(ctx, recipe.ID, recipe.ShortCode)
}

// ResolveShortLink maps a short code to a recipe id. An all-digit value that
// matches no code is tried as a recipe id; anything else is not found.
func (s *RecipeService) ResolveShortLink(ctx context.Context, code string) (int64, error) {
	id, err := s.recipes.FindRecipeIDByShortCode(ctx, code)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return 0, err
	}

	n, convErr := strconv.ParseInt(code, 10, 64)
	if convErr != nil || n <= 0 {
		return 0, apperror.NotFound("short link", code)
	}
	summary, err := s.recipes.GetRecipeSummary(ctx, n)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return 0, apperror.NotFound("short link", code)
		}
		return 0, err
	}
	return summary.ID, nil
}

// checkAssociations reports tags or ingredients that do not exist. A nil
// slice is skipped.
func (s *RecipeService) checkAssociations(ctx context.Context, tagIDs []int64, items []model.IngredientAmount) error {
	fields := map[string]string{}

	if len(tagIDs) > 0 {
		found, err := s.tags.FindTags(ctx, tagIDs)
		if err != nil {
			return fmt.Errorf("looking up tags: %w", err)
		}
		known := make(map[int64]bool, len(found))
		for _, t := range found {
			known[t.ID] = true
		}
		for _, id := range tagIDs {
			if !known[id] {
				fields["tags"] = fmt.Sprintf("tag %d does not exist", id)
				break
			}
		}
	}

	if len(items) > 0 {
		ids := make([]int64, len(items))
		for i, item := range items {
			ids[i] = item.IngredientID
		}
		found, err := s.ingredients.FindIngredients(ctx, ids)
		if err != nil {
			return fmt.Errorf("looking up ingredients: %w", err)
		}
		known := make(map[int64]bool, len(found))
		for _, ing := range found {
			known[ing.ID] = true
		}
		for _, id := range ids {
			if !known[id] {
				fields["ingredients"] = fmt.Sprintf("ingredient %d does not exist", id)
				break
			}
		}
	}

	if len(fields) > 0 {
		return apperror.ValidationErrors(fields)
	}
	return nil
}

// decodeImage turns a data URI into image bytes, reporting bad input as a
// validation error on the "image" field.
func decodeImage(uri string) (*storage.Image, error) {
	img, err := storage.DecodeDataURI(uri)
	switch {
	case errors.Is(err, storage.ErrImageTooLarge):
		return nil, apperror.ValidationFailed("image",
			fmt.Sprintf("image must be at most %d MiB", storage.MaxImageSize>>20))
	case err != nil:
		return nil, apperror.ValidationFailed("image",
			"image must be a base64 data URI of a png, jpeg, gif or webp picture")
	}
	return img, nil
}
