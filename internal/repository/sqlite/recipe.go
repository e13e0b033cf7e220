package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.RecipeRepository = (*DB)(nil)

// recipeSelect reads the recipe row itself plus the two per-viewer flags.
// The first two placeholders are the viewer ID; 0 never matches a user, so
// anonymous viewers get false for both.
const recipeSelect = `SELECT r.id, r.author_id, r.name, r.image, r.text, r.cooking_time,
	COALESCE(r.short_code, '') AS short_code, r.pub_date,
	EXISTS (SELECT 1 FROM favorites f WHERE f.user_id = ? AND f.recipe_id = r.id) AS is_favorited,
	EXISTS (SELECT 1 FROM shopping_cart c WHERE c.user_id = ? AND c.recipe_id = r.id) AS is_in_shopping_cart
	FROM recipes r`

type recipeRow struct {
	ID               int64     `db:"id"`
	AuthorID         int64     `db:"author_id"`
	Name             string    `db:"name"`
	Image            string    `db:"image"`
	Text             string    `db:"text"`
	CookingTime      int       `db:"cooking_time"`
	ShortCode        string    `db:"short_code"`
	PubDate          time.Time `db:"pub_date"`
	IsFavorited      bool      `db:"is_favorited"`
	IsInShoppingCart bool      `db:"is_in_shopping_cart"`
}

func (r recipeRow) toModel() model.Recipe {
	return model.Recipe{
		ID:               r.ID,
		AuthorID:         r.AuthorID,
		Name:             r.Name,
		Image:            r.Image,
		Text:             r.Text,
		CookingTime:      r.CookingTime,
		ShortCode:        r.ShortCode,
		PubDate:          r.PubDate,
		IsFavorited:      r.IsFavorited,
		IsInShoppingCart: r.IsInShoppingCart,
		Tags:             []model.Tag{},
		Ingredients:      []model.RecipeIngredient{},
	}
}

// CreateRecipe inserts the recipe and its associations atomically.
func (db *DB) CreateRecipe(ctx context.Context, recipe *model.Recipe, tagIDs []int64, items []model.IngredientAmount) error {
	recipe.PubDate = time.Now().UTC()

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (author_id, name, image, text, cooking_time, short_code, pub_date)
			 VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), ?)`,
			recipe.AuthorID,
			recipe.Name,
			recipe.Image,
			recipe.Text,
			recipe.CookingTime,
			recipe.ShortCode,
			recipe.PubDate,
		)
		if err != nil {
			switch constraintViolation(err) {
			case uniqueConstraint:
				return apperror.Conflict("short code", recipe.ShortCode)
			case checkConstraint:
				return apperror.ValidationFailed("cooking_time", "cooking_time is out of range")
			case foreignKeyConstraint:
				return apperror.NotFound("user", fmt.Sprint(recipe.AuthorID))
			}
			return fmt.Errorf("sqlite: creating recipe: %w", err)
		}

		recipe.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: reading recipe id: %w", err)
		}

		if err := insertRecipeTags(ctx, tx, recipe.ID, tagIDs); err != nil {
			return err
		}
		return insertRecipeIngredients(ctx, tx, recipe.ID, items)
	})
}

// UpdateRecipe saves the scalar fields and, for each non-nil association,
// deletes the existing rows and inserts the new set. Everything happens in
// one transaction so readers never see a recipe with half its ingredients.
func (db *DB) UpdateRecipe(ctx context.Context, recipe *model.Recipe, tagIDs []int64, items []model.IngredientAmount) error {
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE recipes SET name = ?, image = ?, text = ?, cooking_time = ? WHERE id = ?`,
			recipe.Name,
			recipe.Image,
			recipe.Text,
			recipe.CookingTime,
			recipe.ID,
		)
		if err != nil {
			if constraintViolation(err) == checkConstraint {
				return apperror.ValidationFailed("cooking_time", "cooking_time is out of range")
			}
			return fmt.Errorf("sqlite: updating recipe %d: %w", recipe.ID, err)
		}
		if err := expectOne(res, "recipe", recipe.ID); err != nil {
			return err
		}

		if tagIDs != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_tags WHERE recipe_id = ?`, recipe.ID); err != nil {
				return fmt.Errorf("sqlite: clearing tags of recipe %d: %w", recipe.ID, err)
			}
			if err := insertRecipeTags(ctx, tx, recipe.ID, tagIDs); err != nil {
				return err
			}
		}

		if items != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE recipe_id = ?`, recipe.ID); err != nil {
				return fmt.Errorf("sqlite: clearing ingredients of recipe %d: %w", recipe.ID, err)
			}
			if err := insertRecipeIngredients(ctx, tx, recipe.ID, items); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertRecipeTags(ctx context.Context, tx *sqlx.Tx, recipeID int64, tagIDs []int64) error {
	for _, tagID := range tagIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_tags (recipe_id, tag_id) VALUES (?, ?)`, recipeID, tagID)
		if err != nil {
			switch constraintViolation(err) {
			case uniqueConstraint:
				return apperror.ValidationFailed("tags", fmt.Sprintf("tag %d is listed more than once", tagID))
			case foreignKeyConstraint:
				return apperror.ValidationFailed("tags", fmt.Sprintf("tag %d does not exist", tagID))
			}
			return fmt.Errorf("sqlite: adding tag %d to recipe %d: %w", tagID, recipeID, err)
		}
	}
	return nil
}

func insertRecipeIngredients(ctx context.Context, tx *sqlx.Tx, recipeID int64, items []model.IngredientAmount) error {
	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, ingredient_id, amount) VALUES (?, ?, ?)`,
			recipeID, item.IngredientID, item.Amount)
		if err != nil {
			switch constraintViolation(err) {
			case uniqueConstraint:
				return apperror.ValidationFailed("ingredients",
					fmt.Sprintf("ingredient %d is listed more than once", item.IngredientID))
			case foreignKeyConstraint:
				return apperror.ValidationFailed("ingredients",
					fmt.Sprintf("ingredient %d does not exist", item.IngredientID))
			case checkConstraint:
				return apperror.ValidationFailed("ingredients", "amount is out of range")
			}
			return fmt.Errorf("sqlite: adding ingredient %d to recipe %d: %w", item.IngredientID, recipeID, err)
		}
	}
	return nil
}

// DeleteRecipe removes a recipe; its tags, ingredient lines, favorites and
// cart entries go with it through ON DELETE CASCADE.
func (db *DB) DeleteRecipe(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting recipe %d: %w", id, err)
	}
	return expectOne(res, "recipe", id)
}

// GetRecipe returns a fully populated recipe as seen by viewerID.
func (db *DB) GetRecipe(ctx context.Context, viewerID, id int64) (*model.Recipe, error) {
	var row recipeRow
	err := db.conn.GetContext(ctx, &row, recipeSelect+` WHERE r.id = ?`, viewerID, viewerID, id)
	if err != nil {
		return nil, notFound(err, "recipe", id, fmt.Sprintf("getting recipe %d", id))
	}

	recipes := []model.Recipe{row.toModel()}
	if err := db.hydrateRecipes(ctx, viewerID, recipes); err != nil {
		return nil, err
	}
	return &recipes[0], nil
}

// ListRecipes returns one page of recipes matching filter, newest first, and
// the total number of matches.
func (db *DB) ListRecipes(ctx context.Context, filter repository.RecipeFilter, opts repository.ListOptions) ([]model.Recipe, int, error) {
	where, whereArgs := recipeWhere(filter)

	countQuery, countArgs, err := sqlx.In(`SELECT COUNT(*) FROM recipes r`+where, whereArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: building recipe count: %w", err)
	}
	var total int
	if err := db.conn.GetContext(ctx, &total, db.conn.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting recipes: %w", err)
	}

	args := append([]any{filter.Viewer, filter.Viewer}, whereArgs...)
	args = append(args, opts.Limit, opts.Offset)
	query, args, err := sqlx.In(
		recipeSelect+where+` ORDER BY r.pub_date DESC, r.id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: building recipe list: %w", err)
	}

	var rows []recipeRow
	if err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing recipes: %w", err)
	}

	recipes := make([]model.Recipe, 0, len(rows))
	for _, row := range rows {
		recipes = append(recipes, row.toModel())
	}
	if err := db.hydrateRecipes(ctx, filter.Viewer, recipes); err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// recipeWhere builds the WHERE clause for a filter. Slice arguments are left
// for sqlx.In to expand.
func recipeWhere(f repository.RecipeFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.AuthorID != 0 {
		conds = append(conds, `r.author_id = ?`)
		args = append(args, f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		conds = append(conds, `r.id IN (SELECT rt.recipe_id FROM recipe_tags rt
			JOIN tags t ON t.id = rt.tag_id WHERE t.slug IN (?))`)
		args = append(args, f.TagSlugs)
	}
	if f.FavoritedBy != 0 {
		conds = append(conds, `r.id IN (SELECT recipe_id FROM favorites WHERE user_id = ?)`)
		args = append(args, f.FavoritedBy)
	}
	if f.InCartOf != 0 {
		conds = append(conds, `r.id IN (SELECT recipe_id FROM shopping_cart WHERE user_id = ?)`)
		args = append(args, f.InCartOf)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// hydrateRecipes loads authors, tags and ingredient lines for a batch of
// recipes with one query each, instead of three queries per recipe.
func (db *DB) hydrateRecipes(ctx context.Context, viewerID int64, recipes []model.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(recipes))
	authorIDs := make([]int64, 0, len(recipes))
	seenAuthor := make(map[int64]bool, len(recipes))
	index := make(map[int64]int, len(recipes))
	for i, r := range recipes {
		ids = append(ids, r.ID)
		index[r.ID] = i
		if !seenAuthor[r.AuthorID] {
			seenAuthor[r.AuthorID] = true
			authorIDs = append(authorIDs, r.AuthorID)
		}
	}

	// Authors
	query, args, err := sqlx.In(
		`SELECT `+userColumns+`, `+isSubscribedColumn+` FROM users u WHERE u.id IN (?)`,
		viewerID, authorIDs)
	if err != nil {
		return fmt.Errorf("sqlite: building author lookup: %w", err)
	}
	var authors []model.Profile
	if err := db.conn.SelectContext(ctx, &authors, db.conn.Rebind(query), args...); err != nil {
		return fmt.Errorf("sqlite: loading recipe authors: %w", err)
	}
	byID := make(map[int64]model.Profile, len(authors))
	for _, a := range authors {
		byID[a.ID] = a
	}
	for i := range recipes {
		recipes[i].Author = byID[recipes[i].AuthorID]
	}

	// Tags
	query, args, err = sqlx.In(
		`SELECT rt.recipe_id, t.id, t.name, t.slug, t.color
		 FROM recipe_tags rt JOIN tags t ON t.id = rt.tag_id
		 WHERE rt.recipe_id IN (?)
		 ORDER BY t.name`, ids)
	if err != nil {
		return fmt.Errorf("sqlite: building tag lookup: %w", err)
	}
	var tagRows []struct {
		RecipeID int64 `db:"recipe_id"`
		model.Tag
	}
	if err := db.conn.SelectContext(ctx, &tagRows, db.conn.Rebind(query), args...); err != nil {
		return fmt.Errorf("sqlite: loading recipe tags: %w", err)
	}
	for _, tr := range tagRows {
		i := index[tr.RecipeID]
		recipes[i].Tags = append(recipes[i].Tags, tr.Tag)
	}

	// Ingredient lines, in the order they were submitted.
	query, args, err = sqlx.In(
		`SELECT ri.recipe_id, i.id, i.name, i.measurement_unit, ri.amount
		 FROM recipe_ingredients ri JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE ri.recipe_id IN (?)
		 ORDER BY ri.id`, ids)
	if err != nil {
		return fmt.Errorf("sqlite: building ingredient lookup: %w", err)
	}
	var lineRows []struct {
		RecipeID int64 `db:"recipe_id"`
		model.RecipeIngredient
	}
	if err := db.conn.SelectContext(ctx, &lineRows, db.conn.Rebind(query), args...); err != nil {
		return fmt.Errorf("sqlite: loading recipe ingredients: %w", err)
	}
	for _, lr := range lineRows {
		i := index[lr.RecipeID]
		recipes[i].Ingredients = append(recipes[i].Ingredients, lr.RecipeIngredient)
	}

	return nil
}

func (db *DB) GetRecipeSummary(ctx context.Context, id int64) (*model.RecipeSummary, error) {
	var s model.RecipeSummary
	err := db.conn.GetContext(ctx, &s,
		`SELECT id, author_id, name, image, cooking_time FROM recipes WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "recipe", id, fmt.Sprintf("getting recipe %d", id))
	}
	return &s, nil
}

func (db *DB) ListAuthorRecipes(ctx context.Context, authorID int64, limit int) ([]model.RecipeSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	recipes := []model.RecipeSummary{}
	err := db.conn.SelectContext(ctx, &recipes,
		`SELECT id, author_id, name, image, cooking_time
		 FROM recipes WHERE author_id = ?
		 ORDER BY pub_date DESC, id DESC
		 LIMIT ?`, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing recipes of author %d: %w", authorID, err)
	}
	return recipes, nil
}

func (db *DB) ShortCodeTaken(ctx context.Context, code string) (bool, error) {
	var taken bool
	err := db.conn.GetContext(ctx, &taken,
		`SELECT EXISTS (SELECT 1 FROM recipes WHERE short_code = ?)`, code)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking short code %s: %w", code, err)
	}
	return taken, nil
}

// SetShortCode assigns code to a recipe that has none. An existing code is
// never overwritten; the code actually stored is returned either way.
func (db *DB) SetShortCode(ctx context.Context, id int64, code string) (string, error) {
	var stored string
	err := db.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE recipes SET short_code = ? WHERE id = ? AND short_code IS NULL`, code, id)
		if err != nil {
			if constraintViolation(err) == uniqueConstraint {
				return apperror.Conflict("short code", code)
			}
			return fmt.Errorf("sqlite: setting short code of recipe %d: %w", id, err)
		}

		err = tx.GetContext(ctx, &stored,
			`SELECT COALESCE(short_code, '') FROM recipes WHERE id = ?`, id)
		if err != nil {
			return notFound(err, "recipe", id, fmt.Sprintf("reading short code of recipe %d", id))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return stored, nil
}

func (db *DB) FindRecipeIDByShortCode(ctx context.Context, code string) (int64, error) {
	var id int64
	err := db.conn.GetContext(ctx, &id, `SELECT id FROM recipes WHERE short_code = ?`, code)
	if err != nil {
		return 0, notFound(err, "recipe", code, "resolving short code")
	}
	return id, nil
}
