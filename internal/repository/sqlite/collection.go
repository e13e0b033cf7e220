package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/foodgram/internal/apperror"
	"github.com/sakif/foodgram/internal/model"
	"github.com/sakif/foodgram/internal/repository"
)

var _ repository.CollectionRepository = (*DB)(nil)

// collectionTables maps a collection to its table. Table names cannot be bound
// as parameters, so only names from this map ever reach the SQL text.
var collectionTables = map[model.Collection]string{
	model.Favorites:    "favorites",
	model.ShoppingCart: "shopping_cart",
}

func collectionTable(c model.Collection) (string, error) {
	table, ok := collectionTables[c]
	if !ok {
		return "", fmt.Errorf("sqlite: unknown collection %q", c)
	}
	return table, nil
}

// AddToCollection inserts the (user, recipe) pair. The UNIQUE constraint is
// the source of truth for "already present": two concurrent adds produce one
// row and one Conflict.
func (db *DB) AddToCollection(ctx context.Context, c model.Collection, userID, recipeID int64) error {
	table, err := collectionTable(c)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO `+table+` (user_id, recipe_id, created_at) VALUES (?, ?, ?)`,
		userID, recipeID, time.Now().UTC())
	if err != nil {
		switch constraintViolation(err) {
		case uniqueConstraint:
			return apperror.AlreadyExists(fmt.Sprintf("recipe %d is already in %s", recipeID, table))
		case foreignKeyConstraint:
			return apperror.NotFound("recipe", fmt.Sprint(recipeID))
		}
		return fmt.Errorf("sqlite: adding recipe %d to %s of user %d: %w", recipeID, table, userID, err)
	}
	return nil
}

// RemoveFromCollection deletes the pair, or reports NotPresent when there was none.
func (db *DB) RemoveFromCollection(ctx context.Context, c model.Collection, userID, recipeID int64) error {
	table, err := collectionTable(c)
	if err != nil {
		return err
	}

	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE user_id = ? AND recipe_id = ?`, userID, recipeID)
	if err != nil {
		return fmt.Errorf("sqlite: removing recipe %d from %s of user %d: %w", recipeID, table, userID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotPresent(fmt.Sprintf("recipe %d is not in %s", recipeID, table))
	}
	return nil
}

// ShoppingItems returns the raw ingredient lines of every recipe in the cart.
// Grouping and summing is done by the caller.
func (db *DB) ShoppingItems(ctx context.Context, userID int64) ([]model.ShoppingItem, error) {
	items := []model.ShoppingItem{}
	err := db.conn.SelectContext(ctx, &items,
		`SELECT i.name, i.measurement_unit, ri.amount
		 FROM shopping_cart sc
		 JOIN recipe_ingredients ri ON ri.recipe_id = sc.recipe_id
		 JOIN ingredients i ON i.id = ri.ingredient_id
		 WHERE sc.user_id = ?
		 ORDER BY sc.id, ri.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading shopping items of user %d: %w", userID, err)
	}
	return items, nil
}
